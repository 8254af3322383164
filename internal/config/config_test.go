package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_CONN_STR", "")
	t.Setenv("API_TOKEN", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("TIER_GREEN_THRESHOLD", "")
	t.Setenv("TIER_YELLOW_THRESHOLD", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, ":8080", cfg.GRPCAddr)
	assert.Empty(t, cfg.APIToken)
	assert.True(t, decimal.NewFromInt(80).Equal(cfg.Tiers.Green))
	assert.True(t, decimal.NewFromInt(50).Equal(cfg.Tiers.Yellow))
	assert.Equal(t, 15*time.Second, cfg.AlertTimeout)
	assert.False(t, cfg.Quote.Enabled())
	assert.Contains(t, cfg.DBConnStr, "dbname=bookvalue")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Memory")
	t.Setenv("API_TOKEN", "  s3cret ")
	t.Setenv("QUOTE_SOURCE_URL", "https://quotes.example.com/")
	t.Setenv("ALERT_TIMEOUT", "3s")
	t.Setenv("ALERT_CONCURRENCY", "16")
	t.Setenv("SCHEDULER_ENABLED", "yes")
	t.Setenv("TIER_GREEN_THRESHOLD", "75.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "s3cret", cfg.APIToken)
	assert.Equal(t, "https://quotes.example.com", cfg.Quote.URL)
	assert.True(t, cfg.Quote.Enabled())
	assert.Equal(t, 3*time.Second, cfg.AlertTimeout)
	assert.Equal(t, 16, cfg.AlertConcurrency)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.True(t, decimal.RequireFromString("75.5").Equal(cfg.Tiers.Green))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "yellow above green", env: map[string]string{"TIER_GREEN_THRESHOLD": "40", "TIER_YELLOW_THRESHOLD": "60"}},
		{name: "green out of range", env: map[string]string{"TIER_GREEN_THRESHOLD": "120"}},
		{name: "unknown storage", env: map[string]string{"STORAGE_BACKEND": "redis"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetenvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "-5s")

	assert.False(t, getenvBool("X_BOOL", true))
	assert.Equal(t, int64(7), getenvInt64("X_INT", 7))
	assert.Equal(t, time.Minute, getenvDuration("X_DUR", time.Minute))
	assert.Equal(t, "fallback", getenv("X_MISSING_KEY", "fallback"))
}
