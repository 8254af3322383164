package comparison

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
)

// SnapshotGenerator produces a snapshot on demand when lazy generation is on
type SnapshotGenerator interface {
	GenerateSnapshot(ctx context.Context, subjectID uuid.UUID, kind domain.SubjectKind, tf domain.TimeFrame, asOf time.Time) (*domain.AnalyticsSnapshot, error)
}

// Row is one batch's figures in a side-by-side comparison.
// A batch without a snapshot has HasSnapshot false and zero figures.
type Row struct {
	BatchID     uuid.UUID
	BatchName   string
	HasSnapshot bool
	PeriodStart *time.Time

	TotalBooks       int
	TotalValue       decimal.Decimal
	AvgBookValue     decimal.Decimal
	AvgPercentOfHigh decimal.Decimal
	GreenCount       int
	YellowCount      int
	RedCount         int
	GreenPercent     decimal.Decimal
	YellowPercent    decimal.Decimal
	RedPercent       decimal.Decimal
}

// ComparisonService builds comparison rows from stored batch snapshots
type ComparisonService struct {
	BatchRepo    domain.BatchRepository
	SnapshotRepo domain.SnapshotRepository
	Generator    SnapshotGenerator // nil disables lazy generation

	clock clock.Clock
	log   *zap.Logger
}

// NewComparisonService creates a new ComparisonService instance
func NewComparisonService(batchRepo domain.BatchRepository, snapshotRepo domain.SnapshotRepository, generator SnapshotGenerator, clk clock.Clock, log *zap.Logger) *ComparisonService {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ComparisonService{
		BatchRepo:    batchRepo,
		SnapshotRepo: snapshotRepo,
		Generator:    generator,
		clock:        clk,
		log:          log,
	}
}

// Compare returns one row per distinct batch ID, in request order.
// Every ID is resolved before anything is aggregated: an unknown ID fails
// with ErrUnresolvableBatch and, when ownerID is set, a batch owned by
// someone else fails with ErrBatchOwnership.
func (s *ComparisonService) Compare(ctx context.Context, ownerID uuid.UUID, batchIDs []uuid.UUID, tf domain.TimeFrame) ([]Row, error) {
	if err := tf.Validate(); err != nil {
		return nil, err
	}

	if len(batchIDs) == 0 {
		return nil, errors.New("at least one batch ID is required")
	}

	batches := make([]*domain.Batch, 0, len(batchIDs))
	seen := make(map[uuid.UUID]struct{}, len(batchIDs))
	for _, id := range batchIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		b, err := s.BatchRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnresolvableBatch, id)
			}
			return nil, fmt.Errorf("failed to resolve batch %s: %w", id, err)
		}

		if ownerID != uuid.Nil && b.UserID != ownerID {
			return nil, fmt.Errorf("%w: %s", domain.ErrBatchOwnership, id)
		}

		batches = append(batches, b)
	}

	rows := make([]Row, 0, len(batches))
	for _, b := range batches {
		snap, err := s.latest(ctx, b.ID, tf)
		if err != nil {
			return nil, err
		}
		rows = append(rows, buildRow(b, snap))
	}

	return rows, nil
}

func (s *ComparisonService) latest(ctx context.Context, batchID uuid.UUID, tf domain.TimeFrame) (*domain.AnalyticsSnapshot, error) {
	snap, err := s.SnapshotRepo.GetLatest(ctx, batchID, domain.SubjectKindBatch, tf)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to get latest snapshot for batch %s: %w", batchID, err)
	}

	if s.Generator == nil {
		return nil, nil
	}

	snap, err = s.Generator.GenerateSnapshot(ctx, batchID, domain.SubjectKindBatch, tf, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to generate snapshot for batch %s: %w", batchID, err)
	}

	s.log.Debug("generated missing snapshot for comparison",
		zap.String("batch_id", batchID.String()),
		zap.String("time_frame", string(tf)),
	)

	return snap, nil
}

func buildRow(b *domain.Batch, snap *domain.AnalyticsSnapshot) Row {
	row := Row{
		BatchID:          b.ID,
		BatchName:        b.Name,
		TotalValue:       decimal.Zero,
		AvgBookValue:     decimal.Zero,
		AvgPercentOfHigh: decimal.Zero,
		GreenPercent:     decimal.Zero,
		YellowPercent:    decimal.Zero,
		RedPercent:       decimal.Zero,
	}

	if snap == nil {
		return row
	}

	periodStart := snap.PeriodStart
	row.HasSnapshot = true
	row.PeriodStart = &periodStart
	row.TotalBooks = snap.TotalBooks
	row.TotalValue = snap.TotalValue
	row.AvgBookValue = snap.AvgBookValue
	row.AvgPercentOfHigh = snap.AvgPercentOfHigh
	row.GreenCount = snap.GreenCount
	row.YellowCount = snap.YellowCount
	row.RedCount = snap.RedCount
	row.GreenPercent = domain.TierPercent(snap.GreenCount, snap.TotalBooks)
	row.YellowPercent = domain.TierPercent(snap.YellowCount, snap.TotalBooks)
	row.RedPercent = domain.TierPercent(snap.RedCount, snap.TotalBooks)

	return row
}
