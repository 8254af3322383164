package refresh

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/bookvalue-backend/internal/domain"
	"github.com/simaogato/bookvalue-backend/internal/usecase/batch"
	"github.com/simaogato/bookvalue-backend/internal/usecase/tracker"
)

// QuoteSource supplies normalized current prices
type QuoteSource interface {
	FetchCurrentPrice(ctx context.Context, isbn string, condition domain.Condition) (*domain.Quote, error)
}

// BookResult is the outcome for one book in a refresh pass
type BookResult struct {
	BookID uuid.UUID
	Book   *domain.Book
	Err    error
}

// Summary reports a refresh pass. Every requested book has a result.
type Summary struct {
	Results   []BookResult
	Refreshed int
	Failed    int
	Success   bool
}

// RefreshService pulls fresh quotes for books and pushes them through the
// tracker and the batch counters
type RefreshService struct {
	BookRepo  domain.BookRepository
	QuoteRepo domain.QuoteRepository
	Source    QuoteSource
	Tracker   *tracker.TrackerService
	Batches   *batch.BatchService

	concurrency int
	log         *zap.Logger
}

// NewRefreshService creates a new RefreshService instance
func NewRefreshService(
	bookRepo domain.BookRepository,
	quoteRepo domain.QuoteRepository,
	source QuoteSource,
	trackerService *tracker.TrackerService,
	batchService *batch.BatchService,
	concurrency int,
	log *zap.Logger,
) *RefreshService {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RefreshService{
		BookRepo:    bookRepo,
		QuoteRepo:   quoteRepo,
		Source:      source,
		Tracker:     trackerService,
		Batches:     batchService,
		concurrency: concurrency,
		log:         log,
	}
}

// RefreshBook fetches the current quote for one book and applies it.
// Logic:
//  1. Fetch the best offer for the book's ISBN and condition
//  2. Append the quote to history
//  3. Feed the price to the high-water mark (may reclassify)
//  4. Apply it as the current price (reclassifies against the ceiling)
//  5. Recompute the counters of every batch containing the book
func (s *RefreshService) RefreshBook(ctx context.Context, bookID uuid.UUID) (*domain.Book, error) {
	book, err := s.BookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", bookID, err)
	}

	if strings.TrimSpace(book.ISBN) == "" {
		return nil, fmt.Errorf("book %s: %w", bookID, domain.ErrMissingISBN)
	}

	if s.Source == nil {
		return nil, fmt.Errorf("book %s: %w: no quote source configured", bookID, domain.ErrQuoteUnavailable)
	}

	quote, err := s.Source.FetchCurrentPrice(ctx, book.ISBN, book.Condition)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for book %s: %w", bookID, err)
	}
	quote.BookID = book.ID

	if err := s.QuoteRepo.Add(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to record quote for book %s: %w", bookID, err)
	}

	if _, err := s.Tracker.Observe(ctx, book.ID, quote.Condition, quote.Price, quote.ObservedAt); err != nil {
		return nil, err
	}

	updated, err := s.Tracker.ApplyPrice(ctx, domain.PriceUpdate{
		BookID:     book.ID,
		Price:      quote.Price,
		VendorName: quote.Vendor,
		ObservedAt: quote.ObservedAt,
	})
	if err != nil {
		return nil, err
	}

	if s.Batches != nil {
		if err := s.Batches.RecomputeForBook(ctx, book.ID); err != nil {
			return nil, fmt.Errorf("failed to recompute batches for book %s: %w", bookID, err)
		}
	}

	return updated, nil
}

// RefreshUser refreshes every book a user owns with bounded concurrency.
// One book failing does not stop the others.
func (s *RefreshService) RefreshUser(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	books, err := s.BookRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books for user %s: %w", userID, err)
	}

	results := make([]BookResult, len(books))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, b := range books {
		g.Go(func() error {
			updated, err := s.RefreshBook(ctx, b.ID)
			results[i] = BookResult{BookID: b.ID, Book: updated, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	summary := &Summary{Results: results, Success: true}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			summary.Success = false
			s.log.Warn("book refresh failed",
				zap.String("book_id", r.BookID.String()),
				zap.Error(r.Err),
			)
			continue
		}
		summary.Refreshed++
	}

	s.log.Info("user refresh finished",
		zap.String("user_id", userID.String()),
		zap.Int("refreshed", summary.Refreshed),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}
