package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/metrics"
)

const (
	ReasonFired           = "condition met, notification sent"
	ReasonAlreadyNotified = "condition met, already notified for this crossing"
	ReasonRearmed         = "condition cleared, alert re-armed"
	ReasonNotMet          = "condition not met"
	ReasonLookupFailed    = "price lookup failed"
	ReasonWriteFailed     = "alert state write failed"
)

// BookRefresher fetches a fresh quote for a book and returns the updated book
type BookRefresher interface {
	RefreshBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error)
}

// Config tunes an evaluation pass
type Config struct {
	Concurrency int
	Timeout     time.Duration // per alert, covering lookup and writes
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 8
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}

// Result is the outcome for one alert in a pass
type Result struct {
	AlertID       uuid.UUID
	BookID        uuid.UUID
	Mode          domain.AlertMode
	Triggered     bool // a notification was produced in this pass
	Rearmed       bool
	CurrentPrice  decimal.Decimal
	PercentOfHigh decimal.Decimal
	TargetPrice   decimal.Decimal
	Reason        string
	Err           error
}

// CheckSummary reports a pass. Every active alert has exactly one result,
// in the order the alerts were listed.
type CheckSummary struct {
	CheckedAt      time.Time
	Results        []Result
	TotalChecked   int
	TriggeredCount int
	FailedCount    int
	Success        bool
}

// AlertService evaluates standing price alerts and produces notifications
type AlertService struct {
	AlertRepo domain.AlertRepository
	BookRepo  domain.BookRepository
	Refresher BookRefresher // nil evaluates against stored prices

	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewAlertService creates a new AlertService instance
func NewAlertService(
	alertRepo domain.AlertRepository,
	bookRepo domain.BookRepository,
	refresher BookRefresher,
	cfg Config,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
) *AlertService {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AlertService{
		AlertRepo: alertRepo,
		BookRepo:  bookRepo,
		Refresher: refresher,
		cfg:       cfg.withDefaults(),
		clock:     clk,
		metrics:   m,
		log:       log,
	}
}

// CheckAllAlerts evaluates every active alert once.
// Alerts are independent: a failing alert is recorded in its own result and
// the pass continues. Failed state writes are also joined into the returned
// error; notifications already committed stay committed.
func (s *AlertService) CheckAllAlerts(ctx context.Context) (*CheckSummary, error) {
	alerts, err := s.AlertRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}

	now := s.clock.Now()
	results := make([]Result, len(alerts))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, a := range alerts {
		g.Go(func() error {
			results[i] = s.evaluate(ctx, a, now)
			return nil
		})
	}
	_ = g.Wait()

	summary := &CheckSummary{
		CheckedAt:    now,
		Results:      results,
		TotalChecked: len(results),
		Success:      true,
	}

	var errs error
	for _, r := range results {
		if r.Triggered {
			summary.TriggeredCount++
		}
		if r.Err == nil {
			continue
		}

		summary.FailedCount++
		summary.Success = false
		s.log.Warn("alert evaluation failed",
			zap.String("alert_id", r.AlertID.String()),
			zap.String("book_id", r.BookID.String()),
			zap.String("reason", r.Reason),
			zap.Error(r.Err),
		)
		if !domain.IsTransient(r.Err) {
			errs = errors.Join(errs, r.Err)
		}
	}

	s.metrics.ObserveAlertPass(summary.TotalChecked, summary.TriggeredCount, summary.FailedCount)
	s.log.Info("alert check finished",
		zap.Int("checked", summary.TotalChecked),
		zap.Int("triggered", summary.TriggeredCount),
		zap.Int("failed", summary.FailedCount),
	)

	return summary, errs
}

// evaluate runs the state machine for one alert:
//   - condition true, not yet notified: mark triggered and notify
//   - condition true, already notified: nothing
//   - condition false, previously triggered: re-arm
//   - condition false otherwise: nothing
func (s *AlertService) evaluate(parent context.Context, a *domain.PriceAlert, now time.Time) Result {
	ctx, cancel := context.WithTimeout(parent, s.cfg.Timeout)
	defer cancel()

	r := Result{
		AlertID:     a.ID,
		BookID:      a.BookID,
		Mode:        a.Mode,
		TargetPrice: a.TargetPrice,
	}

	book, err := s.currentBook(ctx, a.BookID)
	if err != nil {
		r.Reason = ReasonLookupFailed
		r.Err = err
		return r
	}

	r.CurrentPrice = book.CurrentPrice
	r.PercentOfHigh = book.PercentOfHigh

	met := a.ConditionMet(book.CurrentPrice, book.PercentOfHigh)

	switch {
	case met && !a.Triggered:
		notification := domain.NewAlertNotification(a, book, now)
		fired, err := s.AlertRepo.MarkTriggered(ctx, a.ID, now, notification)
		if err != nil {
			r.Reason = ReasonWriteFailed
			r.Err = fmt.Errorf("failed to mark alert %s triggered: %w", a.ID, err)
			return r
		}
		if !fired {
			// Another pass won the compare-and-set, or the alert was deactivated since listing
			r.Reason = ReasonAlreadyNotified
			return r
		}
		r.Triggered = true
		r.Reason = ReasonFired

	case met:
		r.Reason = ReasonAlreadyNotified

	case a.Triggered:
		if _, err := s.AlertRepo.ResetTrigger(ctx, a.ID); err != nil {
			r.Reason = ReasonWriteFailed
			r.Err = fmt.Errorf("failed to re-arm alert %s: %w", a.ID, err)
			return r
		}
		r.Rearmed = true
		r.Reason = ReasonRearmed

	default:
		r.Reason = ReasonNotMet
	}

	return r
}

type lookupResult struct {
	book *domain.Book
	err  error
}

// currentBook returns fresh price data for the book, giving up when ctx
// expires even if the underlying call does not honour cancellation
func (s *AlertService) currentBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	ch := make(chan lookupResult, 1)
	go func() {
		var res lookupResult
		if s.Refresher != nil {
			res.book, res.err = s.Refresher.RefreshBook(ctx, bookID)
		} else {
			res.book, res.err = s.BookRepo.GetByID(ctx, bookID)
		}
		ch <- res
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		if !res.book.HasPriceData() {
			return nil, fmt.Errorf("book %s: %w", bookID, domain.ErrNoPriceData)
		}
		return res.book, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("price lookup for book %s: %w", bookID, ctx.Err())
	}
}

// SetActive enables or disables an alert. Reactivating re-arms it.
func (s *AlertService) SetActive(ctx context.Context, alertID uuid.UUID, active bool) (*domain.PriceAlert, error) {
	a, err := s.AlertRepo.SetActive(ctx, alertID, active)
	if err != nil {
		return nil, fmt.Errorf("failed to set alert %s active=%t: %w", alertID, active, err)
	}

	s.log.Info("alert state changed",
		zap.String("alert_id", alertID.String()),
		zap.String("state", string(a.State())),
	)

	return a, nil
}
