package quotesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/metrics"
)

// Config configures the vendor aggregation API client
type Config struct {
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

type priceResponse struct {
	ISBN      string  `json:"isbn"`
	Available *bool   `json:"available,omitempty"`
	Offers    []Offer `json:"offers"`
}

// Client fetches current buy-back prices from the vendor aggregation API
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration

	client      *resty.Client
	rateLimiter *rate.Limiter
	clock       clock.Clock
	metrics     *metrics.Metrics
	log         *zap.Logger
}

// NewClient creates a rate-limited quote source client
func NewClient(cfg Config, clk clock.Clock, m *metrics.Metrics, log *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}

	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetHeader("Accept", "application/json")
	client.SetHeader("User-Agent", "bookvalue-backend/1.0")

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		timeout:     cfg.Timeout,
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		clock:       clk,
		metrics:     m,
		log:         log,
	}
}

// FetchCurrentPrice returns the best current offer for isbn in condition.
// A 404 or an empty offer list is ErrQuoteUnavailable; transport failures,
// timeouts and other non-2xx answers are ErrQuoteUpstream.
func (c *Client) FetchCurrentPrice(ctx context.Context, isbn string, condition domain.Condition) (*domain.Quote, error) {
	quote, err := c.fetch(ctx, isbn, condition)

	switch {
	case err == nil:
		c.metrics.IncQuoteFetch(metrics.QuoteOutcomeOK)
	case isUnavailable(err):
		c.metrics.IncQuoteFetch(metrics.QuoteOutcomeUnavailable)
	default:
		c.metrics.IncQuoteFetch(metrics.QuoteOutcomeError)
		c.log.Warn("quote fetch failed", zap.String("isbn", isbn), zap.Error(err))
	}

	return quote, err
}

func (c *Client) fetch(ctx context.Context, isbn string, condition domain.Condition) (*domain.Quote, error) {
	isbn = strings.TrimSpace(isbn)
	if isbn == "" {
		return nil, domain.ErrMissingISBN
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %w", domain.ErrQuoteUpstream, err)
	}

	endpoint := fmt.Sprintf("%s/v1/prices/%s", c.baseURL, url.PathEscape(isbn))

	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("condition", string(condition))
	if c.apiKey != "" {
		req.SetAuthToken(c.apiKey)
	}

	resp, err := req.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrQuoteUpstream, err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s not listed", domain.ErrQuoteUnavailable, isbn)
	case !resp.IsSuccess():
		return nil, fmt.Errorf("%w: vendor API returned status %d", domain.ErrQuoteUpstream, resp.StatusCode())
	}

	var body priceResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("%w: decode price response: %w", domain.ErrQuoteUpstream, err)
	}

	if body.Available != nil && !*body.Available {
		return nil, fmt.Errorf("%w: %s not buyable", domain.ErrQuoteUnavailable, isbn)
	}

	return NormalizeOffers(isbn, condition, body.Offers, c.clock.Now())
}

func isUnavailable(err error) bool {
	return errors.Is(err, domain.ErrQuoteUnavailable) || errors.Is(err, domain.ErrMissingISBN)
}
