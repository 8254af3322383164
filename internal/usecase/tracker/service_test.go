package tracker

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/bookvalue-backend/internal/adapter/repository/memory"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/usecase/classifier"
)

// MockCeilingRepository is a mock implementation of CeilingRepository for testing
type MockCeilingRepository struct {
	mock.Mock
}

func (m *MockCeilingRepository) Raise(ctx context.Context, obs domain.CeilingObservation, reprice domain.RepriceFunc) (bool, error) {
	args := m.Called(ctx, obs, reprice)
	return args.Bool(0), args.Error(1)
}

func (m *MockCeilingRepository) Get(ctx context.Context, bookID uuid.UUID, condition domain.Condition) (*domain.CeilingObservation, error) {
	args := m.Called(ctx, bookID, condition)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CeilingObservation), args.Error(1)
}

func newClassifier(t *testing.T) *classifier.Classifier {
	t.Helper()
	c, err := classifier.NewClassifier(domain.DefaultTierThresholds())
	require.NoError(t, err)
	return c
}

func TestObserve_PassesObservationToRepository(t *testing.T) {
	ctx := context.Background()
	mockCeilingRepo := new(MockCeilingRepository)
	service := NewTrackerService(mockCeilingRepo, nil, newClassifier(t), nil)

	bookID := uuid.New()
	observedAt := time.Date(2026, 10, 15, 12, 0, 0, 0, time.FixedZone("X", 3600))

	mockCeilingRepo.On("Raise", ctx, mock.MatchedBy(func(obs domain.CeilingObservation) bool {
		return obs.BookID == bookID &&
			obs.Condition == domain.ConditionGood &&
			obs.Price.Equal(decimal.NewFromInt(50)) &&
			obs.ObservedAt.Location() == time.UTC
	}), mock.Anything).Return(true, nil)

	raised, err := service.Observe(ctx, bookID, domain.ConditionGood, decimal.NewFromInt(50), observedAt)

	assert.NoError(t, err)
	assert.True(t, raised)
	mockCeilingRepo.AssertExpectations(t)
}

func TestObserve_RepositoryError(t *testing.T) {
	ctx := context.Background()
	mockCeilingRepo := new(MockCeilingRepository)
	service := NewTrackerService(mockCeilingRepo, nil, newClassifier(t), nil)

	mockCeilingRepo.On("Raise", ctx, mock.Anything, mock.Anything).Return(false, errors.New("connection reset"))

	raised, err := service.Observe(ctx, uuid.New(), domain.ConditionGood, decimal.NewFromInt(50), time.Now())

	assert.False(t, raised)
	assert.ErrorContains(t, err, "failed to raise ceiling")
	assert.ErrorContains(t, err, "connection reset")
}

func TestObserve_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	mockCeilingRepo := new(MockCeilingRepository)
	service := NewTrackerService(mockCeilingRepo, nil, newClassifier(t), nil)

	_, err := service.Observe(ctx, uuid.New(), domain.ConditionGood, decimal.NewFromInt(-1), time.Now())
	assert.ErrorIs(t, err, domain.ErrNegativePrice)

	_, err = service.Observe(ctx, uuid.New(), "MINT", decimal.NewFromInt(1), time.Now())
	assert.ErrorContains(t, err, "unknown condition")

	mockCeilingRepo.AssertNotCalled(t, "Raise", mock.Anything, mock.Anything, mock.Anything)
}

func seedBook(t *testing.T, store *memory.Store, current string) *domain.Book {
	t.Helper()
	book := &domain.Book{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		ISBN:         "9780441013593",
		Title:        "Dune",
		Condition:    domain.ConditionGood,
		CurrentPrice: decimal.RequireFromString(current),
	}
	require.NoError(t, store.Books().Create(context.Background(), book))
	return book
}

func TestObserve_CeilingAndValuationMoveTogether(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := NewTrackerService(store.Ceilings(), store.Books(), newClassifier(t), nil)
	book := seedBook(t, store, "45")
	now := time.Now()

	raised, err := service.Observe(ctx, book.ID, domain.ConditionGood, decimal.NewFromInt(50), now)
	require.NoError(t, err)
	assert.True(t, raised)

	got, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(got.HistoricalHigh))
	assert.True(t, decimal.NewFromInt(90).Equal(got.PercentOfHigh))
	assert.Equal(t, domain.RankTierGreen, got.RankTier)

	// A tie is a no-op
	raised, err = service.Observe(ctx, book.ID, domain.ConditionGood, decimal.NewFromInt(50), now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, raised)

	// A higher ceiling drags the same current price down a tier
	raised, err = service.Observe(ctx, book.ID, domain.ConditionGood, decimal.NewFromInt(90), now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, raised)

	got, err = store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(got.PercentOfHigh))
	assert.Equal(t, domain.RankTierYellow, got.RankTier)
}

func TestObserve_StoredHighIsAFloor(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := NewTrackerService(store.Ceilings(), store.Books(), newClassifier(t), nil)

	book := &domain.Book{
		UserID:         uuid.New(),
		ISBN:           "9780441013593",
		Title:          "Dune",
		Condition:      domain.ConditionGood,
		CurrentPrice:   decimal.NewFromInt(45),
		HistoricalHigh: decimal.NewFromInt(50),
		PercentOfHigh:  decimal.NewFromInt(90),
		RankTier:       domain.RankTierGreen,
	}
	require.NoError(t, store.Books().Create(ctx, book))

	ceiling, err := store.Ceilings().Get(ctx, book.ID, domain.ConditionGood)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(ceiling.Price), "create seeds the ceiling")

	raised, err := service.Observe(ctx, book.ID, domain.ConditionGood, decimal.NewFromInt(30), time.Now())
	require.NoError(t, err)
	assert.False(t, raised)

	got, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(got.HistoricalHigh))
	assert.True(t, decimal.NewFromInt(90).Equal(got.PercentOfHigh))
	assert.Equal(t, domain.RankTierGreen, got.RankTier)
}

func TestObserve_OtherConditionDoesNotTouchBook(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := NewTrackerService(store.Ceilings(), store.Books(), newClassifier(t), nil)
	book := seedBook(t, store, "10")

	raised, err := service.Observe(ctx, book.ID, domain.ConditionNew, decimal.NewFromInt(80), time.Now())
	require.NoError(t, err)
	assert.True(t, raised)

	got, err := store.Books().GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, got.HistoricalHigh.IsZero())

	ceiling, err := store.Ceilings().Get(ctx, book.ID, domain.ConditionNew)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(80).Equal(ceiling.Price))
}

func TestObserve_OutOfOrderNeverLowersCeiling(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := NewTrackerService(store.Ceilings(), store.Books(), newClassifier(t), nil)
	book := seedBook(t, store, "12")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []int64{5, 17, 3, 42, 42, 8, 39, 41, 1, 30, 12, 40}
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 20; round++ {
		rng.Shuffle(len(prices), func(i, j int) { prices[i], prices[j] = prices[j], prices[i] })

		previous := decimal.Zero
		for i, p := range prices {
			_, err := service.Observe(ctx, book.ID, domain.ConditionGood, decimal.NewFromInt(p), base.AddDate(0, 0, -i))
			require.NoError(t, err)

			got, err := store.Books().GetByID(ctx, book.ID)
			require.NoError(t, err)
			assert.True(t, got.HistoricalHigh.GreaterThanOrEqual(previous), "ceiling went from %s to %s", previous, got.HistoricalHigh)
			previous = got.HistoricalHigh

			want, err := service.Classifier.Classify(got.CurrentPrice, got.HistoricalHigh)
			require.NoError(t, err)
			assert.True(t, want.PercentOfHigh.Equal(got.PercentOfHigh), "percent out of step with ceiling")
			assert.Equal(t, want.RankTier, got.RankTier)
		}
		assert.True(t, decimal.NewFromInt(42).Equal(previous))
	}
}

func TestApplyPrice_ReclassifiesAndIgnoresStaleQuotes(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	service := NewTrackerService(store.Ceilings(), store.Books(), newClassifier(t), nil)
	book := seedBook(t, store, "0")
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	_, err := service.Observe(ctx, book.ID, domain.ConditionGood, decimal.NewFromInt(50), now)
	require.NoError(t, err)

	got, err := service.ApplyPrice(ctx, domain.PriceUpdate{BookID: book.ID, Price: decimal.NewFromInt(20), VendorName: "BuyBackCo", ObservedAt: now})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(40).Equal(got.PercentOfHigh))
	assert.Equal(t, domain.RankTierRed, got.RankTier)
	assert.Equal(t, "BuyBackCo", got.BestVendorName)

	// An older quote arriving late must not replace the newer price
	got, err = service.ApplyPrice(ctx, domain.PriceUpdate{BookID: book.ID, Price: decimal.NewFromInt(45), VendorName: "Late", ObservedAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(20).Equal(got.CurrentPrice))
	assert.Equal(t, "BuyBackCo", got.BestVendorName)

	_, err = service.ApplyPrice(ctx, domain.PriceUpdate{BookID: book.ID, Price: decimal.NewFromInt(-5), ObservedAt: now})
	assert.ErrorIs(t, err, domain.ErrNegativePrice)
}
