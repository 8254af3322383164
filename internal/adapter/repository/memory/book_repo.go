package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

type bookRepository struct {
	s *Store
}

func (r *bookRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.books[id]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", id, domain.ErrNotFound)
	}
	return &b, nil
}

func (r *bookRepository) Create(_ context.Context, book *domain.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	if book.RankTier == "" {
		book.RankTier = domain.RankTierRed
	}
	r.s.books[book.ID] = *book

	if book.HistoricalHigh.IsPositive() {
		observedAt := time.Now().UTC()
		if book.LastPriceUpdate != nil {
			observedAt = *book.LastPriceUpdate
		}
		r.s.ceilings[ceilingKey{bookID: book.ID, condition: book.Condition}] = domain.CeilingObservation{
			BookID:     book.ID,
			Condition:  book.Condition,
			Price:      book.HistoricalHigh,
			ObservedAt: observedAt,
		}
	}
	return nil
}

func (r *bookRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	books := make([]*domain.Book, 0)
	for _, b := range r.s.books {
		if b.UserID == userID {
			books = append(books, &b)
		}
	}
	sortBooks(books)
	return books, nil
}

func (r *bookRepository) ListOwners(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	owners := make([]uuid.UUID, 0)
	for _, b := range r.s.books {
		if _, ok := seen[b.UserID]; ok {
			continue
		}
		seen[b.UserID] = struct{}{}
		owners = append(owners, b.UserID)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i].String() < owners[j].String() })
	return owners, nil
}

func (r *bookRepository) ApplyPrice(_ context.Context, update domain.PriceUpdate, reprice domain.RepriceFunc) (*domain.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.books[update.BookID]
	if !ok {
		return nil, fmt.Errorf("book %s: %w", update.BookID, domain.ErrNotFound)
	}

	if b.LastPriceUpdate != nil && update.ObservedAt.Before(*b.LastPriceUpdate) {
		return &b, nil
	}

	v, err := reprice(update.Price, b.HistoricalHigh)
	if err != nil {
		return nil, err
	}

	observedAt := update.ObservedAt
	b.CurrentPrice = update.Price
	b.BestVendorName = update.VendorName
	b.LastPriceUpdate = &observedAt
	b.PercentOfHigh = v.PercentOfHigh
	b.RankTier = v.RankTier
	r.s.books[b.ID] = b

	return &b, nil
}

type ceilingRepository struct {
	s *Store
}

func (r *ceilingRepository) Raise(_ context.Context, obs domain.CeilingObservation, reprice domain.RepriceFunc) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, hasBook := r.s.books[obs.BookID]
	if !hasBook {
		return false, fmt.Errorf("book %s: %w", obs.BookID, domain.ErrNotFound)
	}

	key := ceilingKey{bookID: obs.BookID, condition: obs.Condition}
	existing, ok := r.s.ceilings[key]
	if ok && !obs.Price.GreaterThan(existing.Price) {
		return false, nil
	}
	if b.Condition == obs.Condition && !obs.Price.GreaterThan(b.HistoricalHigh) {
		return false, nil
	}

	if b.Condition == obs.Condition {
		v, err := reprice(b.CurrentPrice, obs.Price)
		if err != nil {
			return false, err
		}
		b.HistoricalHigh = obs.Price
		b.PercentOfHigh = v.PercentOfHigh
		b.RankTier = v.RankTier
		r.s.books[b.ID] = b
	}

	r.s.ceilings[key] = obs
	return true, nil
}

func (r *ceilingRepository) Get(_ context.Context, bookID uuid.UUID, condition domain.Condition) (*domain.CeilingObservation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	obs, ok := r.s.ceilings[ceilingKey{bookID: bookID, condition: condition}]
	if !ok {
		return nil, fmt.Errorf("ceiling for book %s: %w", bookID, domain.ErrNotFound)
	}
	return &obs, nil
}

type quoteRepository struct {
	s *Store
}

func (r *quoteRepository) Add(_ context.Context, quote *domain.Quote) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}
	r.s.quotes = append(r.s.quotes, *quote)
	return nil
}

func (r *quoteRepository) ListByBook(_ context.Context, bookID uuid.UUID, limit int) ([]*domain.Quote, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	quotes := make([]*domain.Quote, 0)
	for i := len(r.s.quotes) - 1; i >= 0; i-- {
		q := r.s.quotes[i]
		if q.BookID == bookID {
			quotes = append(quotes, &q)
		}
	}
	sort.SliceStable(quotes, func(i, j int) bool { return quotes[i].ObservedAt.After(quotes[j].ObservedAt) })
	if limit > 0 && len(quotes) > limit {
		quotes = quotes[:limit]
	}
	return quotes, nil
}
