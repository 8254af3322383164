package memory

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

type ceilingKey struct {
	bookID    uuid.UUID
	condition domain.Condition
}

// Store keeps every entity in process memory behind a single lock.
// It honours the same atomicity contracts as the postgres adapter.
type Store struct {
	mu sync.RWMutex

	books         map[uuid.UUID]domain.Book
	ceilings      map[ceilingKey]domain.CeilingObservation
	quotes        []domain.Quote
	batches       map[uuid.UUID]domain.Batch
	members       map[uuid.UUID][]uuid.UUID
	snapshots     map[domain.SnapshotKey]domain.AnalyticsSnapshot
	alerts        map[uuid.UUID]domain.PriceAlert
	notifications []domain.Notification
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		books:     make(map[uuid.UUID]domain.Book),
		ceilings:  make(map[ceilingKey]domain.CeilingObservation),
		batches:   make(map[uuid.UUID]domain.Batch),
		members:   make(map[uuid.UUID][]uuid.UUID),
		snapshots: make(map[domain.SnapshotKey]domain.AnalyticsSnapshot),
		alerts:    make(map[uuid.UUID]domain.PriceAlert),
	}
}

func (s *Store) Books() domain.BookRepository                 { return &bookRepository{s} }
func (s *Store) Ceilings() domain.CeilingRepository           { return &ceilingRepository{s} }
func (s *Store) Quotes() domain.QuoteRepository               { return &quoteRepository{s} }
func (s *Store) Batches() domain.BatchRepository              { return &batchRepository{s} }
func (s *Store) Snapshots() domain.SnapshotRepository         { return &snapshotRepository{s} }
func (s *Store) Alerts() domain.AlertRepository               { return &alertRepository{s} }
func (s *Store) Notifications() domain.NotificationRepository { return &notificationRepository{s} }

// SnapshotCount returns the number of stored snapshots
func (s *Store) SnapshotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snapshots)
}

// NotificationCount returns the number of stored notifications for an alert
func (s *Store) NotificationCount(alertID uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, notif := range s.notifications {
		if notif.AlertID == alertID {
			n++
		}
	}
	return n
}

// sortBooks orders books by ID so listings are deterministic
func sortBooks(books []*domain.Book) {
	sort.Slice(books, func(i, j int) bool {
		return books[i].ID.String() < books[j].ID.String()
	})
}
