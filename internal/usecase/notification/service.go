package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// NotificationService reads and acknowledges alert notifications
type NotificationService struct {
	NotificationRepo domain.NotificationRepository

	clock clock.Clock
	log   *zap.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(repo domain.NotificationRepository, clk clock.Clock, log *zap.Logger) *NotificationService {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{NotificationRepo: repo, clock: clk, log: log}
}

// List returns a user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	notifications, err := s.NotificationRepo.ListByUser(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %s: %w", userID, err)
	}
	return notifications, nil
}

// MarkRead acknowledges a notification. Marking twice keeps the first read time.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	if err := s.NotificationRepo.MarkRead(ctx, notificationID, s.clock.Now()); err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", notificationID, err)
	}

	s.log.Debug("notification read", zap.String("notification_id", notificationID.String()))
	return nil
}
