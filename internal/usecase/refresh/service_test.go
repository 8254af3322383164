package refresh

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/bookvalue-backend/internal/adapter/repository/memory"
	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/usecase/batch"
	"github.com/simaogato/bookvalue-backend/internal/usecase/classifier"
	"github.com/simaogato/bookvalue-backend/internal/usecase/tracker"
)

// MockQuoteSource is a mock implementation of QuoteSource for testing
type MockQuoteSource struct {
	mock.Mock
}

func (m *MockQuoteSource) FetchCurrentPrice(ctx context.Context, isbn string, condition domain.Condition) (*domain.Quote, error) {
	args := m.Called(ctx, isbn, condition)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so the service can stamp BookID freely
	q := *args.Get(0).(*domain.Quote)
	return &q, args.Error(1)
}

type fixture struct {
	store   *memory.Store
	source  *MockQuoteSource
	service *RefreshService
	owner   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	c, err := classifier.NewClassifier(domain.DefaultTierThresholds())
	require.NoError(t, err)

	source := new(MockQuoteSource)
	trackerService := tracker.NewTrackerService(store.Ceilings(), store.Books(), c, nil)
	batchService := batch.NewBatchService(store.Batches(), store.Books(), nil, nil)

	return &fixture{
		store:   store,
		source:  source,
		service: NewRefreshService(store.Books(), store.Quotes(), source, trackerService, batchService, 2, nil),
		owner:   uuid.New(),
	}
}

func (f *fixture) addBook(t *testing.T, isbn string) *domain.Book {
	t.Helper()
	b := &domain.Book{UserID: f.owner, ISBN: isbn, Condition: domain.ConditionGood}
	require.NoError(t, f.store.Books().Create(context.Background(), b))
	return b
}

func quote(price string, at time.Time) *domain.Quote {
	return &domain.Quote{Vendor: "BuyBackCo", Price: decimal.RequireFromString(price), Currency: "USD", Condition: domain.ConditionGood, ObservedAt: at}
}

func TestRefreshBook_AppliesQuoteEverywhere(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	book := f.addBook(t, "9780441013593")

	b := &domain.Batch{UserID: f.owner, Name: "Sci-fi"}
	require.NoError(t, f.store.Batches().Create(ctx, b))
	require.NoError(t, f.store.Batches().AddBooks(ctx, b.ID, []uuid.UUID{book.ID}))

	t0 := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	f.source.On("FetchCurrentPrice", ctx, "9780441013593", domain.ConditionGood).Return(quote("50", t0), nil).Once()
	f.source.On("FetchCurrentPrice", ctx, "9780441013593", domain.ConditionGood).Return(quote("45", t0.Add(24*time.Hour)), nil).Once()

	first, err := f.service.RefreshBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(first.PercentOfHigh))

	second, err := f.service.RefreshBook(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(45).Equal(second.CurrentPrice))
	assert.True(t, decimal.NewFromInt(50).Equal(second.HistoricalHigh))
	assert.True(t, decimal.NewFromInt(90).Equal(second.PercentOfHigh))
	assert.Equal(t, domain.RankTierGreen, second.RankTier)

	quotes, err := f.store.Quotes().ListByBook(ctx, book.ID, 10)
	require.NoError(t, err)
	assert.Len(t, quotes, 2, "quotes are appended, never overwritten")

	gotBatch, err := f.store.Batches().GetByID(ctx, b.ID)
	require.NoError(t, err)
	members, err := f.store.Batches().ListBooks(ctx, b.ID)
	require.NoError(t, err)
	assert.NoError(t, gotBatch.CheckCounters(members))
	assert.True(t, decimal.NewFromInt(45).Equal(gotBatch.Counters.TotalValue))
}

func TestRefreshBook_MissingISBN(t *testing.T) {
	f := newFixture(t)
	book := f.addBook(t, "")

	_, err := f.service.RefreshBook(context.Background(), book.ID)

	assert.ErrorIs(t, err, domain.ErrMissingISBN)
	f.source.AssertNotCalled(t, "FetchCurrentPrice", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshUser_OneFailureDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		isbn := fmt.Sprintf("97800000000%02d", i)
		f.addBook(t, isbn)
		f.source.On("FetchCurrentPrice", ctx, isbn, domain.ConditionGood).Return(quote("10", now), nil)
	}
	broken := f.addBook(t, "9789999999999")
	f.source.On("FetchCurrentPrice", ctx, "9789999999999", domain.ConditionGood).
		Return(nil, fmt.Errorf("%w: status 503", domain.ErrQuoteUpstream))

	summary, err := f.service.RefreshUser(ctx, f.owner)

	require.NoError(t, err)
	assert.False(t, summary.Success)
	assert.Equal(t, 3, summary.Refreshed)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 4)

	for _, r := range summary.Results {
		if r.BookID == broken.ID {
			assert.True(t, errors.Is(r.Err, domain.ErrQuoteUpstream))
			continue
		}
		assert.NoError(t, r.Err)
		assert.True(t, decimal.NewFromInt(10).Equal(r.Book.CurrentPrice))
	}
}
