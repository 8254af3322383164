package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/metrics"
)

const (
	defaultListLimit = 30
	maxListLimit     = 366
)

// Config tunes batch generation
type Config struct {
	TimeFrames  []domain.TimeFrame
	Concurrency int
}

func (c Config) withDefaults() Config {
	if len(c.TimeFrames) == 0 {
		c.TimeFrames = domain.AllTimeFrames()
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

// SubjectResult is the outcome of one (subject, time frame) generation
type SubjectResult struct {
	SubjectID   uuid.UUID
	SubjectKind domain.SubjectKind
	TimeFrame   domain.TimeFrame
	PeriodStart time.Time
	Snapshot    *domain.AnalyticsSnapshot
	Err         error
}

// GenerationSummary reports a multi-subject pass. Every attempted
// (subject, time frame) pair has exactly one result.
type GenerationSummary struct {
	AsOf      time.Time
	Results   []SubjectResult
	Generated int
	Failed    int
	Success   bool
}

// SnapshotService builds and stores point-in-time aggregates per user and per batch
type SnapshotService struct {
	BookRepo     domain.BookRepository
	BatchRepo    domain.BatchRepository
	SnapshotRepo domain.SnapshotRepository

	cfg     Config
	clock   clock.Clock
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewSnapshotService creates a new SnapshotService instance
func NewSnapshotService(
	bookRepo domain.BookRepository,
	batchRepo domain.BatchRepository,
	snapshotRepo domain.SnapshotRepository,
	cfg Config,
	clk clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
) *SnapshotService {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &SnapshotService{
		BookRepo:     bookRepo,
		BatchRepo:    batchRepo,
		SnapshotRepo: snapshotRepo,
		cfg:          cfg.withDefaults(),
		clock:        clk,
		metrics:      m,
		log:          log,
	}
}

// GenerateSnapshot aggregates the subject's books and stores the snapshot for
// the period containing asOf. Running it again within the current period
// replaces the stored row. A closed period is only filled when it has no
// row yet; an existing closed-period snapshot is returned unchanged.
func (s *SnapshotService) GenerateSnapshot(ctx context.Context, subjectID uuid.UUID, kind domain.SubjectKind, tf domain.TimeFrame, asOf time.Time) (*domain.AnalyticsSnapshot, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}

	books, err := s.subjectBooks(ctx, subjectID, kind)
	if err != nil {
		return nil, err
	}

	snap, err := s.store(ctx, subjectID, kind, tf, asOf, books)
	s.metrics.IncSnapshot(kind, tf, err)
	return snap, err
}

// GetByTimeFrame returns up to limit snapshots for the subject, newest period first
func (s *SnapshotService) GetByTimeFrame(ctx context.Context, subjectID uuid.UUID, kind domain.SubjectKind, tf domain.TimeFrame, limit int) ([]*domain.AnalyticsSnapshot, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	snaps, err := s.SnapshotRepo.ListByTimeFrame(ctx, subjectID, kind, tf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s snapshots for %s: %w", tf, subjectID, err)
	}

	return snaps, nil
}

// GenerateForUser writes the current-period snapshots of a user and of each
// of the user's batches, for every configured time frame
func (s *SnapshotService) GenerateForUser(ctx context.Context, userID uuid.UUID, asOf time.Time) (*GenerationSummary, error) {
	subjects, err := s.userSubjects(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.generate(ctx, subjects, asOf), nil
}

// GenerateForAllUsers runs GenerateForUser over every book owner.
// Owners whose batches cannot be listed are skipped and their errors joined.
func (s *SnapshotService) GenerateForAllUsers(ctx context.Context, asOf time.Time) (*GenerationSummary, error) {
	owners, err := s.BookRepo.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}

	var (
		subjects []subject
		errs     error
	)
	for _, owner := range owners {
		userSubjects, err := s.userSubjects(ctx, owner)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		subjects = append(subjects, userSubjects...)
	}

	summary := s.generate(ctx, subjects, asOf)
	if errs != nil {
		summary.Success = false
	}

	return summary, errs
}

type subject struct {
	id   uuid.UUID
	kind domain.SubjectKind
}

func (s *SnapshotService) userSubjects(ctx context.Context, userID uuid.UUID) ([]subject, error) {
	batches, err := s.BatchRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches for user %s: %w", userID, err)
	}

	subjects := make([]subject, 0, len(batches)+1)
	subjects = append(subjects, subject{id: userID, kind: domain.SubjectKindUser})
	for _, b := range batches {
		subjects = append(subjects, subject{id: b.ID, kind: domain.SubjectKindBatch})
	}
	return subjects, nil
}

// generate fans out over subjects. Each subject's books are read once and
// reused for every time frame.
func (s *SnapshotService) generate(ctx context.Context, subjects []subject, asOf time.Time) *GenerationSummary {
	if asOf.IsZero() {
		asOf = s.clock.Now()
	}
	frames := s.cfg.TimeFrames
	results := make([]SubjectResult, len(subjects)*len(frames))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, subj := range subjects {
		g.Go(func() error {
			books, listErr := s.subjectBooks(ctx, subj.id, subj.kind)
			for j, tf := range frames {
				r := SubjectResult{SubjectID: subj.id, SubjectKind: subj.kind, TimeFrame: tf}
				r.PeriodStart, _ = tf.PeriodStart(asOf)
				if listErr != nil {
					r.Err = listErr
				} else {
					r.Snapshot, r.Err = s.store(ctx, subj.id, subj.kind, tf, asOf, books)
				}
				s.metrics.IncSnapshot(subj.kind, tf, r.Err)
				results[i*len(frames)+j] = r
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := &GenerationSummary{AsOf: asOf.UTC(), Results: results, Success: true}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			summary.Success = false
			s.log.Warn("snapshot generation failed",
				zap.String("subject_id", r.SubjectID.String()),
				zap.String("subject_kind", string(r.SubjectKind)),
				zap.String("time_frame", string(r.TimeFrame)),
				zap.Error(r.Err),
			)
			continue
		}
		summary.Generated++
	}

	s.log.Info("snapshot generation finished",
		zap.Time("as_of", summary.AsOf),
		zap.Int("subjects", len(subjects)),
		zap.Int("generated", summary.Generated),
		zap.Int("failed", summary.Failed),
	)

	return summary
}

func (s *SnapshotService) subjectBooks(ctx context.Context, subjectID uuid.UUID, kind domain.SubjectKind) ([]*domain.Book, error) {
	switch kind {
	case domain.SubjectKindUser:
		books, err := s.BookRepo.ListByUser(ctx, subjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to list books for user %s: %w", subjectID, err)
		}
		return books, nil
	case domain.SubjectKindBatch:
		books, err := s.BatchRepo.ListBooks(ctx, subjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to list books for batch %s: %w", subjectID, err)
		}
		return books, nil
	}
	return nil, fmt.Errorf("unknown subject kind %q", kind)
}

func (s *SnapshotService) store(ctx context.Context, subjectID uuid.UUID, kind domain.SubjectKind, tf domain.TimeFrame, asOf time.Time, books []*domain.Book) (*domain.AnalyticsSnapshot, error) {
	periodStart, err := tf.PeriodStart(asOf)
	if err != nil {
		return nil, err
	}

	snap := &domain.AnalyticsSnapshot{
		ID: uuid.New(),
		SnapshotKey: domain.SnapshotKey{
			SubjectID:   subjectID,
			SubjectKind: kind,
			TimeFrame:   tf,
			PeriodStart: periodStart,
		},
		InventorySummary: domain.SummarizeBooks(books),
		GeneratedAt:      s.clock.Now(),
	}

	currentStart, err := tf.PeriodStart(snap.GeneratedAt)
	if err != nil {
		return nil, err
	}

	if periodStart.Before(currentStart) {
		stored, err := s.SnapshotRepo.InsertIfAbsent(ctx, snap)
		if err != nil {
			return nil, fmt.Errorf("failed to backfill %s snapshot for %s %s: %w", tf, kind, subjectID, err)
		}
		return stored, nil
	}

	stored, err := s.SnapshotRepo.Upsert(ctx, snap)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s snapshot for %s %s: %w", tf, kind, subjectID, err)
	}

	return stored, nil
}
