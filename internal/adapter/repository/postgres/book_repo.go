package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

const bookColumns = `
	id, user_id, isbn, title, condition, current_price, historical_high,
	percent_of_high, rank_tier, best_vendor_name, purchase_price, last_price_update
`

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBook(row rowScanner) (*domain.Book, error) {
	var book domain.Book
	var currentStr, highStr, percentStr string
	var purchase sql.NullString
	var lastUpdate sql.NullTime

	err := row.Scan(
		&book.ID,
		&book.UserID,
		&book.ISBN,
		&book.Title,
		&book.Condition,
		&currentStr,
		&highStr,
		&percentStr,
		&book.RankTier,
		&book.BestVendorName,
		&purchase,
		&lastUpdate,
	)
	if err != nil {
		return nil, err
	}

	if book.CurrentPrice, err = parseDecimal(currentStr, "current_price"); err != nil {
		return nil, err
	}
	if book.HistoricalHigh, err = parseDecimal(highStr, "historical_high"); err != nil {
		return nil, err
	}
	if book.PercentOfHigh, err = parseDecimal(percentStr, "percent_of_high"); err != nil {
		return nil, err
	}
	if book.PurchasePrice, err = parseNullDecimal(purchase, "purchase_price"); err != nil {
		return nil, err
	}
	book.LastPriceUpdate = nullTime(lastUpdate)

	return &book, nil
}

func collectBooks(rows *sql.Rows) ([]*domain.Book, error) {
	defer rows.Close()

	books := make([]*domain.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}
	return books, nil
}

// bookRepository implements domain.BookRepository
type bookRepository struct {
	db *DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *DB) domain.BookRepository {
	return &bookRepository{db: db}
}

// GetByID retrieves a book by its ID
func (r *bookRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1`

	book, err := scanBook(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get book by ID: %w", notFound(err, "book "+id.String()))
	}
	return book, nil
}

// Create creates a new book
func (r *bookRepository) Create(ctx context.Context, book *domain.Book) error {
	if err := book.Validate(); err != nil {
		return err
	}
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	if book.RankTier == "" {
		book.RankTier = domain.RankTierRed
	}

	query := `
		INSERT INTO books (id, user_id, isbn, title, condition, current_price, historical_high,
			percent_of_high, rank_tier, best_vendor_name, purchase_price, last_price_update)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var lastUpdate interface{}
	if book.LastPriceUpdate != nil {
		lastUpdate = *book.LastPriceUpdate
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	_, err = dbTx.ExecContext(ctx, query,
		book.ID,
		book.UserID,
		book.ISBN,
		book.Title,
		string(book.Condition),
		book.CurrentPrice.String(),
		book.HistoricalHigh.String(),
		book.PercentOfHigh.String(),
		string(book.RankTier),
		book.BestVendorName,
		nullDecimal(book.PurchasePrice),
		lastUpdate,
	)
	if err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	// A book created with a known high starts with that ceiling for its condition
	if book.HistoricalHigh.IsPositive() {
		_, err = dbTx.ExecContext(ctx, `
			INSERT INTO price_ceilings (book_id, condition, ceiling, observed_at)
			VALUES ($1, $2, $3, COALESCE($4::timestamptz, NOW()))
		`,
			book.ID,
			string(book.Condition),
			book.HistoricalHigh.String(),
			lastUpdate,
		)
		if err != nil {
			return fmt.Errorf("failed to seed ceiling: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListByUser retrieves every book owned by a user
func (r *bookRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE user_id = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books for user: %w", err)
	}
	return collectBooks(rows)
}

// ListOwners returns the distinct owners of at least one book
func (r *bookRepository) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM books ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list book owners: %w", err)
	}
	defer rows.Close()

	owners := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan owner: %w", err)
		}
		owners = append(owners, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate owners: %w", err)
	}
	return owners, nil
}

// ApplyPrice locks the book row, derives the valuation against the stored
// historical high and writes both in one transaction
func (r *bookRepository) ApplyPrice(ctx context.Context, update domain.PriceUpdate, reprice domain.RepriceFunc) (*domain.Book, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR UPDATE`
	book, err := scanBook(dbTx.QueryRowContext(ctx, query, update.BookID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock book: %w", notFound(err, "book "+update.BookID.String()))
	}

	if book.LastPriceUpdate != nil && update.ObservedAt.Before(*book.LastPriceUpdate) {
		return book, nil
	}

	v, err := reprice(update.Price, book.HistoricalHigh)
	if err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE books
		SET current_price = $2, best_vendor_name = $3, last_price_update = $4,
			percent_of_high = $5, rank_tier = $6
		WHERE id = $1
	`
	_, err = dbTx.ExecContext(ctx, updateQuery,
		book.ID,
		update.Price.String(),
		update.VendorName,
		update.ObservedAt,
		v.PercentOfHigh.String(),
		string(v.RankTier),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update book price: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	observedAt := update.ObservedAt.UTC()
	book.CurrentPrice = update.Price
	book.BestVendorName = update.VendorName
	book.LastPriceUpdate = &observedAt
	book.PercentOfHigh = v.PercentOfHigh
	book.RankTier = v.RankTier

	return book, nil
}

// ceilingRepository implements domain.CeilingRepository
type ceilingRepository struct {
	db *DB
}

// NewCeilingRepository creates a new ceiling repository
func NewCeilingRepository(db *DB) domain.CeilingRepository {
	return &ceilingRepository{db: db}
}

// Raise moves the ceiling with a conditional upsert. The book row is locked
// first so a concurrent ApplyPrice sees either the old or the new high, never
// a mix.
func (r *ceilingRepository) Raise(ctx context.Context, obs domain.CeilingObservation, reprice domain.RepriceFunc) (bool, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	var bookCondition domain.Condition
	var currentStr, highStr string
	err = dbTx.QueryRowContext(ctx,
		`SELECT condition, current_price, historical_high FROM books WHERE id = $1 FOR UPDATE`,
		obs.BookID,
	).Scan(&bookCondition, &currentStr, &highStr)
	if err != nil {
		return false, fmt.Errorf("failed to lock book: %w", notFound(err, "book "+obs.BookID.String()))
	}

	// The book's own high is a floor for its condition even before any ceiling row exists
	if bookCondition == obs.Condition {
		high, err := parseDecimal(highStr, "historical_high")
		if err != nil {
			return false, err
		}
		if !obs.Price.GreaterThan(high) {
			return false, nil
		}
	}

	upsert := `
		INSERT INTO price_ceilings (book_id, condition, ceiling, observed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (book_id, condition) DO UPDATE
		SET ceiling = EXCLUDED.ceiling, observed_at = EXCLUDED.observed_at
		WHERE price_ceilings.ceiling < EXCLUDED.ceiling
		RETURNING ceiling
	`
	var stored string
	err = dbTx.QueryRowContext(ctx, upsert,
		obs.BookID,
		string(obs.Condition),
		obs.Price.String(),
		obs.ObservedAt,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		// Existing ceiling is at least as high
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to upsert ceiling: %w", err)
	}

	if bookCondition == obs.Condition {
		current, err := parseDecimal(currentStr, "current_price")
		if err != nil {
			return false, err
		}
		v, err := reprice(current, obs.Price)
		if err != nil {
			return false, err
		}

		_, err = dbTx.ExecContext(ctx,
			`UPDATE books SET historical_high = GREATEST(historical_high, $2::numeric), percent_of_high = $3, rank_tier = $4 WHERE id = $1`,
			obs.BookID,
			obs.Price.String(),
			v.PercentOfHigh.String(),
			string(v.RankTier),
		)
		if err != nil {
			return false, fmt.Errorf("failed to update historical high: %w", err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// Get retrieves the ceiling for a book and condition
func (r *ceilingRepository) Get(ctx context.Context, bookID uuid.UUID, condition domain.Condition) (*domain.CeilingObservation, error) {
	query := `
		SELECT book_id, condition, ceiling, observed_at
		FROM price_ceilings
		WHERE book_id = $1 AND condition = $2
	`

	var obs domain.CeilingObservation
	var ceilingStr string
	err := r.db.QueryRowContext(ctx, query, bookID, string(condition)).Scan(
		&obs.BookID,
		&obs.Condition,
		&ceilingStr,
		&obs.ObservedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get ceiling: %w", notFound(err, "ceiling for book "+bookID.String()))
	}

	if obs.Price, err = parseDecimal(ceilingStr, "ceiling"); err != nil {
		return nil, err
	}
	obs.ObservedAt = obs.ObservedAt.UTC()

	return &obs, nil
}

// quoteRepository implements domain.QuoteRepository
type quoteRepository struct {
	db *DB
}

// NewQuoteRepository creates a new quote repository
func NewQuoteRepository(db *DB) domain.QuoteRepository {
	return &quoteRepository{db: db}
}

// Add creates a new quote history entry
func (r *quoteRepository) Add(ctx context.Context, quote *domain.Quote) error {
	if quote.ID == uuid.Nil {
		quote.ID = uuid.New()
	}

	query := `
		INSERT INTO price_quotes (id, book_id, isbn, vendor, price, currency, condition, observed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		quote.ID,
		quote.BookID,
		quote.ISBN,
		quote.Vendor,
		quote.Price.String(),
		quote.Currency,
		string(quote.Condition),
		quote.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert quote: %w", err)
	}

	return nil
}

// ListByBook retrieves the most recent quotes for a book
func (r *quoteRepository) ListByBook(ctx context.Context, bookID uuid.UUID, limit int) ([]*domain.Quote, error) {
	query := `
		SELECT id, book_id, isbn, vendor, price, currency, condition, observed_at
		FROM price_quotes
		WHERE book_id = $1
		ORDER BY observed_at DESC
	`
	args := []interface{}{bookID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]*domain.Quote, 0)
	for rows.Next() {
		var q domain.Quote
		var priceStr string
		if err := rows.Scan(&q.ID, &q.BookID, &q.ISBN, &q.Vendor, &priceStr, &q.Currency, &q.Condition, &q.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		if q.Price, err = parseDecimal(priceStr, "price"); err != nil {
			return nil, err
		}
		q.ObservedAt = q.ObservedAt.UTC()
		quotes = append(quotes, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}

	return quotes, nil
}
