package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

const batchColumns = `
	id, user_id, name, green_count, yellow_count, red_count, total_books,
	total_value, average_percent, updated_at
`

func scanBatch(row rowScanner) (*domain.Batch, error) {
	var batch domain.Batch
	var totalStr, avgStr string

	err := row.Scan(
		&batch.ID,
		&batch.UserID,
		&batch.Name,
		&batch.Counters.GreenCount,
		&batch.Counters.YellowCount,
		&batch.Counters.RedCount,
		&batch.Counters.TotalBooks,
		&totalStr,
		&avgStr,
		&batch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if batch.Counters.TotalValue, err = parseDecimal(totalStr, "total_value"); err != nil {
		return nil, err
	}
	if batch.Counters.AveragePercent, err = parseDecimal(avgStr, "average_percent"); err != nil {
		return nil, err
	}
	batch.UpdatedAt = batch.UpdatedAt.UTC()

	return &batch, nil
}

// batchRepository implements domain.BatchRepository
type batchRepository struct {
	db *DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *DB) domain.BatchRepository {
	return &batchRepository{db: db}
}

// GetByID retrieves a batch by its ID
func (r *batchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`

	batch, err := scanBatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get batch by ID: %w", notFound(err, "batch "+id.String()))
	}
	return batch, nil
}

// Create creates a new batch
func (r *batchRepository) Create(ctx context.Context, batch *domain.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.UpdatedAt.IsZero() {
		batch.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO batches (id, user_id, name, green_count, yellow_count, red_count,
			total_books, total_value, average_percent, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	c := batch.Counters
	_, err := r.db.ExecContext(ctx, query,
		batch.ID,
		batch.UserID,
		batch.Name,
		c.GreenCount,
		c.YellowCount,
		c.RedCount,
		c.TotalBooks,
		c.TotalValue.String(),
		c.AveragePercent.String(),
		batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}

	return nil
}

// ListByUser retrieves every batch owned by a user
func (r *batchRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE user_id = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches for user: %w", err)
	}
	defer rows.Close()

	batches := make([]*domain.Batch, 0)
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batches: %w", err)
	}

	return batches, nil
}

// ListBooks retrieves the current member books of a batch
func (r *batchRepository) ListBooks(ctx context.Context, batchID uuid.UUID) ([]*domain.Book, error) {
	if _, err := r.GetByID(ctx, batchID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + qualified("b", bookColumns) + `
		FROM books b
		JOIN batch_books bb ON bb.book_id = b.id
		WHERE bb.batch_id = $1
		ORDER BY b.id
	`

	rows, err := r.db.QueryContext(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch books: %w", err)
	}
	return collectBooks(rows)
}

// ListIDsByBook returns the batches a book is a member of
func (r *batchRepository) ListIDsByBook(ctx context.Context, bookID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT batch_id FROM batch_books WHERE book_id = $1 ORDER BY batch_id`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches for book: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan batch id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate batch ids: %w", err)
	}
	return ids, nil
}

// AddBooks adds members in one transaction; existing members are skipped
func (r *batchRepository) AddBooks(ctx context.Context, batchID uuid.UUID, bookIDs []uuid.UUID) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var exists bool
	if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM batches WHERE id = $1)`, batchID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check batch: %w", err)
	}
	if !exists {
		return fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
	}

	query := `
		INSERT INTO batch_books (batch_id, book_id)
		SELECT $1, id FROM books WHERE id = $2
		ON CONFLICT (batch_id, book_id) DO NOTHING
	`
	for _, bookID := range bookIDs {
		res, err := dbTx.ExecContext(ctx, query, batchID, bookID)
		if err != nil {
			return fmt.Errorf("failed to add book to batch: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var bookExists bool
			if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, bookID).Scan(&bookExists); err != nil {
				return fmt.Errorf("failed to check book: %w", err)
			}
			if !bookExists {
				return fmt.Errorf("book %s: %w", bookID, domain.ErrNotFound)
			}
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RemoveBook removes a member
func (r *batchRepository) RemoveBook(ctx context.Context, batchID, bookID uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM batch_books WHERE batch_id = $1 AND book_id = $2`,
		batchID, bookID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove book from batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("book %s in batch %s: %w", bookID, batchID, domain.ErrNotFound)
	}
	return nil
}

// RecomputeCounters locks the batch row, reads the members and writes the
// counters in one transaction
func (r *batchRepository) RecomputeCounters(ctx context.Context, batchID uuid.UUID, compute func([]*domain.Book) domain.BatchCounters, at time.Time) (*domain.Batch, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	lockQuery := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1 FOR UPDATE`
	batch, err := scanBatch(dbTx.QueryRowContext(ctx, lockQuery, batchID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock batch: %w", notFound(err, "batch "+batchID.String()))
	}

	membersQuery := `
		SELECT ` + qualified("b", bookColumns) + `
		FROM books b
		JOIN batch_books bb ON bb.book_id = b.id
		WHERE bb.batch_id = $1
		ORDER BY b.id
	`
	rows, err := dbTx.QueryContext(ctx, membersQuery, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch books: %w", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, err
	}

	counters := compute(books)

	updateQuery := `
		UPDATE batches
		SET green_count = $2, yellow_count = $3, red_count = $4, total_books = $5,
			total_value = $6, average_percent = $7, updated_at = $8
		WHERE id = $1
	`
	_, err = dbTx.ExecContext(ctx, updateQuery,
		batchID,
		counters.GreenCount,
		counters.YellowCount,
		counters.RedCount,
		counters.TotalBooks,
		counters.TotalValue.String(),
		counters.AveragePercent.String(),
		at,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update batch counters: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	batch.Counters = counters
	batch.UpdatedAt = at.UTC()
	return batch, nil
}
