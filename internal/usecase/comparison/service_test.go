package comparison

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/bookvalue-backend/internal/adapter/repository/memory"
	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/usecase/snapshot"
)

var asOf = time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)

type fixture struct {
	store     *memory.Store
	snapshots *snapshot.SnapshotService
	owner     uuid.UUID
	batches   []*domain.Batch
}

// newFixture creates three batches; only the first two get snapshots
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	f := &fixture{
		store:     store,
		snapshots: snapshot.NewSnapshotService(store.Books(), store.Batches(), store.Snapshots(), snapshot.Config{}, clock.NewFakeClock(asOf), nil, nil),
		owner:     uuid.New(),
	}

	tiers := [][]domain.RankTier{
		{domain.RankTierGreen, domain.RankTierGreen, domain.RankTierRed},
		{domain.RankTierYellow},
		{domain.RankTierRed, domain.RankTierRed},
	}
	for i, bookTiers := range tiers {
		b := &domain.Batch{UserID: f.owner, Name: []string{"Alpha", "Beta", "Gamma"}[i]}
		require.NoError(t, store.Batches().Create(ctx, b))
		for _, tier := range bookTiers {
			book := &domain.Book{UserID: f.owner, Condition: domain.ConditionGood, CurrentPrice: decimal.NewFromInt(10), RankTier: tier}
			require.NoError(t, store.Books().Create(ctx, book))
			require.NoError(t, store.Batches().AddBooks(ctx, b.ID, []uuid.UUID{book.ID}))
		}
		f.batches = append(f.batches, b)
	}

	for _, b := range f.batches[:2] {
		_, err := f.snapshots.GenerateSnapshot(ctx, b.ID, domain.SubjectKindBatch, domain.TimeFrameMonth, asOf)
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) ids() []uuid.UUID {
	ids := make([]uuid.UUID, len(f.batches))
	for i, b := range f.batches {
		ids[i] = b.ID
	}
	return ids
}

func TestCompare_UnsnapshottedBatchYieldsZeroRow(t *testing.T) {
	f := newFixture(t)
	service := NewComparisonService(f.store.Batches(), f.store.Snapshots(), nil, nil, nil)

	rows, err := service.Compare(context.Background(), f.owner, f.ids(), domain.TimeFrameMonth)

	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Alpha", rows[0].BatchName)
	assert.True(t, rows[0].HasSnapshot)
	assert.Equal(t, 3, rows[0].TotalBooks)
	assert.True(t, decimal.RequireFromString("66.67").Equal(rows[0].GreenPercent))
	assert.True(t, decimal.RequireFromString("33.33").Equal(rows[0].RedPercent))
	assert.True(t, decimal.NewFromInt(30).Equal(rows[0].TotalValue))

	assert.Equal(t, "Beta", rows[1].BatchName)
	assert.True(t, decimal.NewFromInt(100).Equal(rows[1].YellowPercent))

	assert.Equal(t, f.batches[2].ID, rows[2].BatchID)
	assert.False(t, rows[2].HasSnapshot)
	assert.Nil(t, rows[2].PeriodStart)
	assert.Equal(t, 0, rows[2].TotalBooks)
	assert.True(t, rows[2].TotalValue.IsZero())
	assert.True(t, rows[2].RedPercent.IsZero())
}

func TestCompare_LazyGeneration(t *testing.T) {
	f := newFixture(t)
	service := NewComparisonService(f.store.Batches(), f.store.Snapshots(), f.snapshots, clock.NewFakeClock(asOf), nil)

	rows, err := service.Compare(context.Background(), f.owner, f.ids(), domain.TimeFrameMonth)

	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[2].HasSnapshot)
	assert.Equal(t, 2, rows[2].TotalBooks)
	assert.True(t, decimal.NewFromInt(100).Equal(rows[2].RedPercent))
}

func TestCompare_FailsClosed(t *testing.T) {
	f := newFixture(t)
	service := NewComparisonService(f.store.Batches(), f.store.Snapshots(), nil, nil, nil)
	ctx := context.Background()

	_, err := service.Compare(ctx, f.owner, append(f.ids(), uuid.New()), domain.TimeFrameMonth)
	assert.ErrorIs(t, err, domain.ErrUnresolvableBatch)

	_, err = service.Compare(ctx, uuid.New(), f.ids(), domain.TimeFrameMonth)
	assert.ErrorIs(t, err, domain.ErrBatchOwnership)

	_, err = service.Compare(ctx, f.owner, nil, domain.TimeFrameMonth)
	assert.Error(t, err)

	_, err = service.Compare(ctx, f.owner, f.ids(), "DECADE")
	assert.ErrorIs(t, err, domain.ErrInvalidTimeFrame)
}

func TestCompare_DuplicatesCollapseInOrder(t *testing.T) {
	f := newFixture(t)
	service := NewComparisonService(f.store.Batches(), f.store.Snapshots(), nil, nil, nil)
	ids := f.ids()

	rows, err := service.Compare(context.Background(), uuid.Nil, []uuid.UUID{ids[1], ids[0], ids[1]}, domain.TimeFrameMonth)

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ids[1], rows[0].BatchID)
	assert.Equal(t, ids[0], rows[1].BatchID)
}
