package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification is produced once per alert crossing.
// Only Read and ReadAt change after creation.
type Notification struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	AlertID      uuid.UUID
	BookID       uuid.UUID
	Title        string
	Message      string
	CurrentPrice decimal.Decimal
	TargetPrice  decimal.Decimal
	Read         bool
	ReadAt       *time.Time
	CreatedAt    time.Time
}

// NewAlertNotification builds the notification for a fired alert
func NewAlertNotification(alert *PriceAlert, book *Book, at time.Time) *Notification {
	title := book.Title
	if title == "" {
		title = book.ISBN
	}

	var message string
	switch alert.Mode {
	case AlertModeBelow:
		message = fmt.Sprintf("%s dropped to %s (target %s or less)", title, book.CurrentPrice.StringFixed(2), alert.TargetPrice.StringFixed(2))
	case AlertModeAbove:
		message = fmt.Sprintf("%s rose to %s (target %s or more)", title, book.CurrentPrice.StringFixed(2), alert.TargetPrice.StringFixed(2))
	default:
		message = fmt.Sprintf("%s is at %s%% of its high (target %s%%)", title, book.PercentOfHigh.StringFixed(2), alert.TargetPrice.StringFixed(2))
	}

	return &Notification{
		ID:           uuid.New(),
		UserID:       alert.UserID,
		AlertID:      alert.ID,
		BookID:       book.ID,
		Title:        "Price alert: " + title,
		Message:      message,
		CurrentPrice: book.CurrentPrice,
		TargetPrice:  alert.TargetPrice,
		CreatedAt:    at,
	}
}
