package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	Storage       string
	DBConnStr     string
	DBAutoMigrate bool

	GRPCAddr    string
	MetricsAddr string
	APIToken    string
	LogLevel    string

	Quote QuoteConfig

	Tiers domain.TierThresholds

	AlertConcurrency       int
	AlertTimeout           time.Duration
	SnapshotConcurrency    int
	ComparisonLazyGenerate bool

	Scheduler SchedulerConfig
}

// QuoteConfig points at the vendor price aggregation API
type QuoteConfig struct {
	URL           string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

// Enabled reports whether live quote refresh is configured
func (q QuoteConfig) Enabled() bool {
	return q.URL != ""
}

type SchedulerConfig struct {
	Enabled          bool
	AlertInterval    time.Duration
	SnapshotInterval time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Storage:       strings.ToLower(getenv("STORAGE_BACKEND", StoragePostgres)),
		DBConnStr:     dbConnString(),
		DBAutoMigrate: getenvBool("DB_AUTO_MIGRATE", true),
		GRPCAddr:      getenv("GRPC_ADDR", ":8080"),
		MetricsAddr:   getenv("METRICS_ADDR", ":9090"),
		APIToken:      strings.TrimSpace(getenv("API_TOKEN", "")),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		Quote: QuoteConfig{
			URL:           strings.TrimRight(strings.TrimSpace(getenv("QUOTE_SOURCE_URL", "")), "/"),
			APIKey:        strings.TrimSpace(getenv("QUOTE_SOURCE_API_KEY", "")),
			Timeout:       getenvDuration("QUOTE_TIMEOUT", 10*time.Second),
			RatePerSecond: float64(getenvInt64("QUOTE_RATE_PER_SECOND", 5)),
			Burst:         int(getenvInt64("QUOTE_BURST", 5)),
		},
		Tiers: domain.TierThresholds{
			Green:  getenvDecimal("TIER_GREEN_THRESHOLD", decimal.NewFromInt(80)),
			Yellow: getenvDecimal("TIER_YELLOW_THRESHOLD", decimal.NewFromInt(50)),
		},
		AlertConcurrency:       int(getenvInt64("ALERT_CONCURRENCY", 8)),
		AlertTimeout:           getenvDuration("ALERT_TIMEOUT", 15*time.Second),
		SnapshotConcurrency:    int(getenvInt64("SNAPSHOT_CONCURRENCY", 4)),
		ComparisonLazyGenerate: getenvBool("COMPARISON_LAZY_GENERATE", false),
		Scheduler: SchedulerConfig{
			Enabled:          getenvBool("SCHEDULER_ENABLED", false),
			AlertInterval:    getenvDuration("ALERT_INTERVAL", 15*time.Minute),
			SnapshotInterval: getenvDuration("SNAPSHOT_INTERVAL", time.Hour),
		},
	}

	if cfg.Storage != StorageMemory && cfg.Storage != StoragePostgres {
		return Config{}, fmt.Errorf("STORAGE_BACKEND must be %s or %s, got %q", StorageMemory, StoragePostgres, cfg.Storage)
	}

	if err := cfg.Tiers.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid tier thresholds: %w", err)
	}

	return cfg, nil
}

func dbConnString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		getenv("DB_HOST", "localhost"),
		getenv("DB_PORT", "5432"),
		getenv("DB_USER", "postgres"),
		getenv("DB_PASSWORD", "postgres"),
		getenv("DB_NAME", "bookvalue"),
		getenv("DB_SSLMODE", "disable"),
	)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getenvDecimal(key string, def decimal.Decimal) decimal.Decimal {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return def
	}
	return parsed
}
