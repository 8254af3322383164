package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BookRepository defines the interface for book persistence operations
type BookRepository interface {
	// GetByID retrieves a book by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Book, error)

	// Create inserts a new book
	Create(ctx context.Context, book *Book) error

	// ListByUser retrieves every book owned by a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Book, error)

	// ListOwners returns the distinct owners of at least one book
	ListOwners(ctx context.Context) ([]uuid.UUID, error)

	// ApplyPrice writes a new current price and the valuation derived from it
	// against the stored ceiling, in one transaction. A price observed before
	// the book's lastPriceUpdate is ignored and the stored book is returned.
	ApplyPrice(ctx context.Context, update PriceUpdate, reprice RepriceFunc) (*Book, error)
}

// CeilingRepository defines the interface for the per-(book, condition) high-water mark
type CeilingRepository interface {
	// Raise stores obs.Price as the ceiling when it is strictly greater than
	// the current one. When it moved and obs.Condition is the book's own
	// condition, the book's historicalHigh and the valuation from reprice are
	// written in the same transaction. Returns whether the ceiling moved.
	Raise(ctx context.Context, obs CeilingObservation, reprice RepriceFunc) (bool, error)

	// Get returns the ceiling, ErrNotFound when nothing was observed yet
	Get(ctx context.Context, bookID uuid.UUID, condition Condition) (*CeilingObservation, error)
}

// QuoteRepository defines the interface for the append-only quote history
type QuoteRepository interface {
	// Add records a quote
	Add(ctx context.Context, quote *Quote) error

	// ListByBook retrieves the most recent quotes for a book, newest first
	ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]*Quote, error)
}

// BatchRepository defines the interface for batch persistence operations
type BatchRepository interface {
	// GetByID retrieves a batch by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Batch, error)

	// Create inserts a new batch
	Create(ctx context.Context, batch *Batch) error

	// ListByUser retrieves every batch owned by a user
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Batch, error)

	// ListBooks retrieves the current member books of a batch
	ListBooks(ctx context.Context, batchID uuid.UUID) ([]*Book, error)

	// ListIDsByBook returns the batches a book is a member of
	ListIDsByBook(ctx context.Context, bookID uuid.UUID) ([]uuid.UUID, error)

	// AddBooks adds members; existing members are left as they are
	AddBooks(ctx context.Context, batchID uuid.UUID, bookIDs []uuid.UUID) error

	// RemoveBook removes a member
	RemoveBook(ctx context.Context, batchID, bookID uuid.UUID) error

	// RecomputeCounters locks the batch, reads its members and stores
	// compute(members) in one transaction. Concurrent recomputes of the same
	// batch serialize, so the last writer always saw the latest members.
	RecomputeCounters(ctx context.Context, batchID uuid.UUID, compute func([]*Book) BatchCounters, at time.Time) (*Batch, error)
}

// SnapshotRepository defines the interface for analytics snapshot persistence
type SnapshotRepository interface {
	// Upsert writes the snapshot keyed by its SnapshotKey in a single statement.
	// An existing row for the key is replaced and keeps its ID.
	Upsert(ctx context.Context, snapshot *AnalyticsSnapshot) (*AnalyticsSnapshot, error)

	// InsertIfAbsent writes the snapshot only when no row exists for its
	// SnapshotKey and returns the stored row either way. Closed periods use it
	// so a late backfill never rewrites history.
	InsertIfAbsent(ctx context.Context, snapshot *AnalyticsSnapshot) (*AnalyticsSnapshot, error)

	// ListByTimeFrame retrieves up to limit snapshots, periodStart descending
	ListByTimeFrame(ctx context.Context, subjectID uuid.UUID, kind SubjectKind, tf TimeFrame, limit int) ([]*AnalyticsSnapshot, error)

	// GetLatest retrieves the newest snapshot, ErrNotFound when none exists
	GetLatest(ctx context.Context, subjectID uuid.UUID, kind SubjectKind, tf TimeFrame) (*AnalyticsSnapshot, error)
}

// AlertRepository defines the interface for price alert persistence operations
type AlertRepository interface {
	// GetByID retrieves an alert by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*PriceAlert, error)

	// Create inserts a new alert
	Create(ctx context.Context, alert *PriceAlert) error

	// ListActive retrieves every alert with active = true
	ListActive(ctx context.Context) ([]*PriceAlert, error)

	// SetActive toggles the alert; reactivation clears the crossing flag
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*PriceAlert, error)

	// MarkTriggered flips triggered from false to true, stamps lastTriggeredAt
	// and inserts the notification, all in one transaction. Returns false
	// without inserting anything when the alert was already triggered.
	MarkTriggered(ctx context.Context, alertID uuid.UUID, at time.Time, notification *Notification) (bool, error)

	// ResetTrigger clears the crossing flag. Returns whether it was set.
	ResetTrigger(ctx context.Context, alertID uuid.UUID) (bool, error)
}

// NotificationRepository defines the interface for reading notifications
type NotificationRepository interface {
	// ListByUser retrieves a user's notifications, newest first
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*Notification, error)

	// ListByAlert retrieves the notifications an alert produced, newest first
	ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*Notification, error)

	// MarkRead sets read and readAt. Marking twice keeps the first readAt.
	MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error
}
