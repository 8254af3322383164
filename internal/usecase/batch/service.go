package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/simaogato/bookvalue-backend/internal/clock"
	"github.com/simaogato/bookvalue-backend/internal/domain"
)

// BatchService keeps batch membership and the derived counters in sync
type BatchService struct {
	BatchRepo domain.BatchRepository
	BookRepo  domain.BookRepository

	clock clock.Clock
	log   *zap.Logger
}

// NewBatchService creates a new BatchService instance
func NewBatchService(batchRepo domain.BatchRepository, bookRepo domain.BookRepository, clk clock.Clock, log *zap.Logger) *BatchService {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BatchService{
		BatchRepo: batchRepo,
		BookRepo:  bookRepo,
		clock:     clk,
		log:       log,
	}
}

// Recompute rebuilds a batch's counters from its current members
func (s *BatchService) Recompute(ctx context.Context, batchID uuid.UUID) (*domain.Batch, error) {
	batch, err := s.BatchRepo.RecomputeCounters(ctx, batchID, domain.ComputeBatchCounters, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to recompute counters for batch %s: %w", batchID, err)
	}

	return batch, nil
}

// RecomputeForBook recomputes every batch the book belongs to.
// All batches are attempted; failures are joined.
func (s *BatchService) RecomputeForBook(ctx context.Context, bookID uuid.UUID) error {
	batchIDs, err := s.BatchRepo.ListIDsByBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to list batches for book %s: %w", bookID, err)
	}

	var errs error
	for _, id := range batchIDs {
		if _, err := s.Recompute(ctx, id); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	return errs
}

// AddBooks adds books to a batch and recomputes its counters.
// Every book must belong to the batch owner.
func (s *BatchService) AddBooks(ctx context.Context, batchID uuid.UUID, bookIDs []uuid.UUID) (*domain.Batch, error) {
	if len(bookIDs) == 0 {
		return nil, errors.New("at least one book is required")
	}

	batch, err := s.BatchRepo.GetByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get batch %s: %w", batchID, err)
	}

	for _, id := range bookIDs {
		book, err := s.BookRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get book %s: %w", id, err)
		}
		if book.UserID != batch.UserID {
			return nil, fmt.Errorf("book %s: %w", id, domain.ErrBookOwnership)
		}
	}

	if err := s.BatchRepo.AddBooks(ctx, batchID, bookIDs); err != nil {
		return nil, fmt.Errorf("failed to add books to batch %s: %w", batchID, err)
	}

	s.log.Info("books added to batch",
		zap.String("batch_id", batchID.String()),
		zap.Int("count", len(bookIDs)),
	)

	return s.Recompute(ctx, batchID)
}

// RemoveBook removes a book from a batch and recomputes its counters
func (s *BatchService) RemoveBook(ctx context.Context, batchID, bookID uuid.UUID) (*domain.Batch, error) {
	if err := s.BatchRepo.RemoveBook(ctx, batchID, bookID); err != nil {
		return nil, fmt.Errorf("failed to remove book %s from batch %s: %w", bookID, batchID, err)
	}

	return s.Recompute(ctx, batchID)
}
