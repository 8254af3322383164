package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/bookvalue-backend/internal/adapter/repository/memory"
	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
)

// MockNotificationRepository is a mock implementation of NotificationRepository for testing
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*domain.Notification, error) {
	args := m.Called(ctx, alertID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Notification), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func TestList_LimitClamping(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		expected int
	}{
		{name: "default", limit: 0, expected: 50},
		{name: "negative", limit: -3, expected: 50},
		{name: "within range", limit: 10, expected: 10},
		{name: "capped", limit: 10000, expected: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockNotificationRepository)
			userID := uuid.New()
			repo.On("ListByUser", mock.Anything, userID, true, tt.expected).Return([]*domain.Notification{}, nil)

			svc := NewNotificationService(repo, nil, nil)
			_, err := svc.List(context.Background(), userID, true, tt.limit)
			require.NoError(t, err)
			repo.AssertExpectations(t)
		})
	}
}

func seedNotification(t *testing.T, store *memory.Store, userID uuid.UUID, at time.Time) *domain.Notification {
	t.Helper()
	ctx := context.Background()

	book := &domain.Book{UserID: userID, ISBN: "9780000000000", Title: "Dune", Condition: domain.ConditionGood}
	require.NoError(t, store.Books().Create(ctx, book))
	book.CurrentPrice = decimal.NewFromInt(12)

	a := &domain.PriceAlert{
		UserID:      userID,
		BookID:      book.ID,
		TargetPrice: decimal.NewFromInt(15),
		Mode:        domain.AlertModeBelow,
		Active:      true,
		CreatedAt:   at,
	}
	require.NoError(t, store.Alerts().Create(ctx, a))

	n := domain.NewAlertNotification(a, book, at)
	fired, err := store.Alerts().MarkTriggered(ctx, a.ID, at, n)
	require.NoError(t, err)
	require.True(t, fired)
	return n
}

func TestMarkRead_KeepsFirstReadTime(t *testing.T) {
	store := memory.NewStore()
	clk := clock.NewFakeClock(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC))
	svc := NewNotificationService(store.Notifications(), clk, nil)
	userID := uuid.New()

	n := seedNotification(t, store, userID, clk.Now())
	firstRead := clk.Now()

	require.NoError(t, svc.MarkRead(context.Background(), n.ID))
	clk.Advance(time.Hour)
	require.NoError(t, svc.MarkRead(context.Background(), n.ID))

	all, err := svc.List(context.Background(), userID, false, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Read)
	require.NotNil(t, all[0].ReadAt)
	assert.True(t, firstRead.Equal(*all[0].ReadAt))

	unread, err := svc.List(context.Background(), userID, true, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestMarkRead_NotFound(t *testing.T) {
	svc := NewNotificationService(memory.NewStore().Notifications(), nil, nil)
	err := svc.MarkRead(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
