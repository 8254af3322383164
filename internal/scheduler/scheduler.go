package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/metrics"
	"github.com/simaogato/bookvalue-backend/internal/usecase/alert"
	"github.com/simaogato/bookvalue-backend/internal/usecase/snapshot"
)

const (
	JobCheckAlerts       = "check_alerts"
	JobGenerateSnapshots = "generate_snapshots"
)

// AlertChecker runs one alert evaluation pass
type AlertChecker interface {
	CheckAllAlerts(ctx context.Context) (*alert.CheckSummary, error)
}

// SnapshotGenerator produces current-period snapshots for every user
type SnapshotGenerator interface {
	GenerateForAllUsers(ctx context.Context, asOf time.Time) (*snapshot.GenerationSummary, error)
}

// Config controls job intervals and timeouts.
type Config struct {
	AlertInterval    time.Duration
	SnapshotInterval time.Duration
	AlertTimeout     time.Duration // whole pass, not per alert
	SnapshotTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		AlertInterval:    15 * time.Minute,
		SnapshotInterval: time.Hour,
		AlertTimeout:     5 * time.Minute,
		SnapshotTimeout:  30 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.AlertInterval <= 0 {
		c.AlertInterval = defaults.AlertInterval
	}
	if c.SnapshotInterval <= 0 {
		c.SnapshotInterval = defaults.SnapshotInterval
	}
	if c.AlertTimeout <= 0 {
		c.AlertTimeout = defaults.AlertTimeout
	}
	if c.SnapshotTimeout <= 0 {
		c.SnapshotTimeout = defaults.SnapshotTimeout
	}
	return c
}

// tickInterval is how often RunForever wakes to look for due jobs
func (c Config) tickInterval() time.Duration {
	return min(c.AlertInterval, c.SnapshotInterval)
}

// Scheduler triggers the recurring valuation jobs in process. It calls the
// same operations the trigger RPCs do, so running it alongside an external
// scheduler is safe.
type Scheduler struct {
	alerts    AlertChecker
	snapshots SnapshotGenerator
	cfg       Config
	clock     clock.Clock
	metrics   *metrics.Metrics
	log       *zap.Logger

	mu      sync.Mutex
	lastRun map[string]time.Time
}

// New creates a scheduler. Either job source may be nil to disable that job.
func New(alerts AlertChecker, snapshots SnapshotGenerator, cfg Config, clk clock.Clock, m *metrics.Metrics, log *zap.Logger) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{
		alerts:    alerts,
		snapshots: snapshots,
		cfg:       cfg.withDefaults(),
		clock:     clk,
		metrics:   m,
		log:       log.Named("scheduler").With(zap.String("component", "scheduler")),
		lastRun:   make(map[string]time.Time),
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	log.Debug("job started")

	err := fn(ctx)
	s.metrics.ObserveJob(name, s.clock.Now().Sub(start), err)
	if err == nil {
		log.Debug("job finished", zap.Duration("elapsed", s.clock.Now().Sub(start)))
		return nil
	}

	// A timed out pass is retried at the next interval
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// due reports whether name has not run within interval, and if so marks it run
func (s *Scheduler) due(name string, interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	last, ok := s.lastRun[name]
	if ok && now.Sub(last) < interval {
		return false
	}
	s.lastRun[name] = now
	return true
}

// RunOnce runs every job whose interval has elapsed. The first call runs all jobs.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	if s.alerts != nil && s.due(JobCheckAlerts, s.cfg.AlertInterval) {
		err = errors.Join(err, s.runJob(parent, JobCheckAlerts, s.cfg.AlertTimeout, s.checkAlerts))
	}

	if s.snapshots != nil && s.due(JobGenerateSnapshots, s.cfg.SnapshotInterval) {
		err = errors.Join(err, s.runJob(parent, JobGenerateSnapshots, s.cfg.SnapshotTimeout, s.generateSnapshots))
	}

	return err
}

func (s *Scheduler) checkAlerts(ctx context.Context) error {
	summary, err := s.alerts.CheckAllAlerts(ctx)
	if summary != nil {
		s.log.Info("alert pass complete",
			zap.Int("checked", summary.TotalChecked),
			zap.Int("triggered", summary.TriggeredCount),
			zap.Int("failed", summary.FailedCount),
		)
	}
	return err
}

func (s *Scheduler) generateSnapshots(ctx context.Context) error {
	summary, err := s.snapshots.GenerateForAllUsers(ctx, s.clock.Now())
	if summary != nil {
		s.log.Info("snapshot generation complete",
			zap.Int("generated", summary.Generated),
			zap.Int("failed", summary.Failed),
		)
	}
	return err
}

// RunForever runs due jobs on every tick until ctx is done
func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.tickInterval())
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
