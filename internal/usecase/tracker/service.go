package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/usecase/classifier"
)

// TrackerService maintains the per-(book, condition) price ceiling and keeps
// each book's percentOfHigh and tier consistent with it
type TrackerService struct {
	CeilingRepo domain.CeilingRepository
	BookRepo    domain.BookRepository
	Classifier  *classifier.Classifier

	log *zap.Logger
}

// NewTrackerService creates a new TrackerService instance
func NewTrackerService(ceilingRepo domain.CeilingRepository, bookRepo domain.BookRepository, c *classifier.Classifier, log *zap.Logger) *TrackerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TrackerService{
		CeilingRepo: ceilingRepo,
		BookRepo:    bookRepo,
		Classifier:  c,
		log:         log,
	}
}

// Observe feeds one price sighting into the high-water mark.
// Only a strictly greater price moves the ceiling; ties and late quotes
// with lower prices are no-ops. When the ceiling moves for the book's own
// condition, the repository rewrites the ceiling, percent and tier together.
// Returns whether the ceiling moved.
func (s *TrackerService) Observe(ctx context.Context, bookID uuid.UUID, condition domain.Condition, price decimal.Decimal, observedAt time.Time) (bool, error) {
	if price.IsNegative() {
		return false, domain.ErrNegativePrice
	}

	if !condition.Valid() {
		return false, fmt.Errorf("unknown condition %q", condition)
	}

	obs := domain.CeilingObservation{
		BookID:     bookID,
		Condition:  condition,
		Price:      price,
		ObservedAt: observedAt.UTC(),
	}

	raised, err := s.CeilingRepo.Raise(ctx, obs, s.Classifier.Reprice())
	if err != nil {
		return false, fmt.Errorf("failed to raise ceiling for book %s: %w", bookID, err)
	}

	if raised {
		s.log.Debug("historical high raised",
			zap.String("book_id", bookID.String()),
			zap.String("condition", string(condition)),
			zap.String("ceiling", price.String()),
		)
	}

	return raised, nil
}

// ApplyPrice records a new current price and reclassifies the book against
// its stored ceiling in the same write
func (s *TrackerService) ApplyPrice(ctx context.Context, update domain.PriceUpdate) (*domain.Book, error) {
	if update.Price.IsNegative() {
		return nil, domain.ErrNegativePrice
	}

	update.ObservedAt = update.ObservedAt.UTC()

	book, err := s.BookRepo.ApplyPrice(ctx, update, s.Classifier.Reprice())
	if err != nil {
		return nil, fmt.Errorf("failed to apply price for book %s: %w", update.BookID, err)
	}

	return book, nil
}
