package quotesource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		BaseURL:       srv.URL,
		APIKey:        "secret",
		Timeout:       timeout,
		RatePerSecond: 1000,
		Burst:         10,
	}, clock.NewFakeClock(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)), metrics.New(prometheus.NewRegistry()), nil)
}

func TestFetchCurrentPrice_PicksBestOffer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/prices/9780441013593", r.URL.Path)
		assert.Equal(t, "GOOD", r.URL.Query().Get("condition"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"isbn": "9780441013593",
			"offers": [
				{"vendor": "BookScouter", "price": "11.40", "currency": "usd", "condition": "GOOD"},
				{"vendor": "Decluttr", "price": "14.05", "condition": "good"},
				{"vendor": "Ziffit", "price": "30.00", "condition": "NEW"},
				{"vendor": "Broken", "price": "n/a", "condition": "GOOD"}
			]
		}`))
	}, time.Second)

	quote, err := client.FetchCurrentPrice(context.Background(), "9780441013593", domain.ConditionGood)

	require.NoError(t, err)
	assert.Equal(t, "Decluttr", quote.Vendor)
	assert.True(t, decimal.RequireFromString("14.05").Equal(quote.Price))
	assert.Equal(t, "USD", quote.Currency)
	assert.Equal(t, domain.ConditionGood, quote.Condition)
	assert.Equal(t, time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC), quote.ObservedAt)
}

func TestFetchCurrentPrice_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not listed", http.StatusNotFound, `{}`, domain.ErrQuoteUnavailable},
		{"explicitly unavailable", http.StatusOK, `{"available": false, "offers": []}`, domain.ErrQuoteUnavailable},
		{"no offers for condition", http.StatusOK, `{"offers": [{"vendor": "A", "price": "3", "condition": "NEW"}]}`, domain.ErrQuoteUnavailable},
		{"server error", http.StatusBadGateway, `oops`, domain.ErrQuoteUpstream},
		{"bad json", http.StatusOK, `{"offers": [`, domain.ErrQuoteUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, time.Second)

			_, err := client.FetchCurrentPrice(context.Background(), "9780441013593", domain.ConditionGood)

			assert.ErrorIs(t, err, tt.wantErr)
			if errors.Is(tt.wantErr, domain.ErrQuoteUnavailable) {
				assert.NotErrorIs(t, err, domain.ErrQuoteUpstream, "unavailable must stay distinguishable from error")
			}
		})
	}
}

func TestFetchCurrentPrice_TimesOut(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	_, err := client.FetchCurrentPrice(context.Background(), "9780441013593", domain.ConditionGood)

	assert.ErrorIs(t, err, domain.ErrQuoteUpstream)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchCurrentPrice_MissingISBN(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}, time.Second)

	_, err := client.FetchCurrentPrice(context.Background(), "  ", domain.ConditionGood)
	assert.ErrorIs(t, err, domain.ErrMissingISBN)
}

func TestNormalizeOffers_ConditionlessOffersApply(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	quote, err := NormalizeOffers("123", domain.ConditionAcceptable, []Offer{
		{Vendor: "Any", Price: "$2.50"},
		{Vendor: "Negative", Price: "-4", Condition: "ACCEPTABLE"},
	}, at)

	require.NoError(t, err)
	assert.Equal(t, "Any", quote.Vendor)
	assert.True(t, decimal.RequireFromString("2.5").Equal(quote.Price))

	_, err = NormalizeOffers("123", domain.ConditionAcceptable, nil, at)
	assert.ErrorIs(t, err, domain.ErrQuoteUnavailable)
}

func TestNormalizeOffers_HighestOfferWinsTiesKeepFirst(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	quote, err := NormalizeOffers("123", domain.ConditionGood, []Offer{
		{Vendor: "Low", Price: "3.00", Condition: "GOOD"},
		{Vendor: "First", Price: "9.10", Condition: "GOOD"},
		{Vendor: "Second", Price: "9.10", Condition: "GOOD"},
	}, at)

	require.NoError(t, err)
	assert.Equal(t, "First", quote.Vendor)
	assert.True(t, decimal.RequireFromString("9.1").Equal(quote.Price))
}
