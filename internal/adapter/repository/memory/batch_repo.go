package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

type batchRepository struct {
	s *Store
}

func (r *batchRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	b, ok := r.s.batches[id]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", id, domain.ErrNotFound)
	}
	return &b, nil
}

func (r *batchRepository) Create(_ context.Context, batch *domain.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	r.s.batches[batch.ID] = *batch
	return nil
}

func (r *batchRepository) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Batch, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	batches := make([]*domain.Batch, 0)
	for _, b := range r.s.batches {
		if b.UserID == userID {
			batches = append(batches, &b)
		}
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Name < batches[j].Name })
	return batches, nil
}

func (r *batchRepository) ListBooks(_ context.Context, batchID uuid.UUID) ([]*domain.Book, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if _, ok := r.s.batches[batchID]; !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
	}

	books := make([]*domain.Book, 0, len(r.s.members[batchID]))
	for _, id := range r.s.members[batchID] {
		if b, ok := r.s.books[id]; ok {
			books = append(books, &b)
		}
	}
	sortBooks(books)
	return books, nil
}

func (r *batchRepository) ListIDsByBook(_ context.Context, bookID uuid.UUID) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]uuid.UUID, 0)
	for batchID, members := range r.s.members {
		for _, id := range members {
			if id == bookID {
				ids = append(ids, batchID)
				break
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (r *batchRepository) AddBooks(_ context.Context, batchID uuid.UUID, bookIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.batches[batchID]; !ok {
		return fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
	}

	present := make(map[uuid.UUID]struct{})
	for _, id := range r.s.members[batchID] {
		present[id] = struct{}{}
	}
	for _, id := range bookIDs {
		if _, ok := r.s.books[id]; !ok {
			return fmt.Errorf("book %s: %w", id, domain.ErrNotFound)
		}
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		r.s.members[batchID] = append(r.s.members[batchID], id)
	}
	return nil
}

func (r *batchRepository) RemoveBook(_ context.Context, batchID, bookID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	members := r.s.members[batchID]
	for i, id := range members {
		if id == bookID {
			r.s.members[batchID] = append(members[:i:i], members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("book %s in batch %s: %w", bookID, batchID, domain.ErrNotFound)
}

func (r *batchRepository) RecomputeCounters(_ context.Context, batchID uuid.UUID, compute func([]*domain.Book) domain.BatchCounters, at time.Time) (*domain.Batch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	b, ok := r.s.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
	}

	books := make([]*domain.Book, 0, len(r.s.members[batchID]))
	for _, id := range r.s.members[batchID] {
		if book, ok := r.s.books[id]; ok {
			books = append(books, &book)
		}
	}
	sortBooks(books)

	b.Counters = compute(books)
	b.UpdatedAt = at
	r.s.batches[batchID] = b
	return &b, nil
}
