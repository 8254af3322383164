package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

const snapshotColumns = `
	id, subject_id, subject_kind, time_frame, period_start, total_books,
	green_count, yellow_count, red_count, total_value, avg_book_value,
	avg_percent_of_high, highest_value, total_purchase_value, potential_profit, generated_at
`

func scanSnapshot(row rowScanner) (*domain.AnalyticsSnapshot, error) {
	var s domain.AnalyticsSnapshot
	var totalStr, avgValueStr, avgPercentStr, highestStr string
	var purchase, profit sql.NullString

	err := row.Scan(
		&s.ID,
		&s.SubjectID,
		&s.SubjectKind,
		&s.TimeFrame,
		&s.PeriodStart,
		&s.TotalBooks,
		&s.GreenCount,
		&s.YellowCount,
		&s.RedCount,
		&totalStr,
		&avgValueStr,
		&avgPercentStr,
		&highestStr,
		&purchase,
		&profit,
		&s.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}

	if s.TotalValue, err = parseDecimal(totalStr, "total_value"); err != nil {
		return nil, err
	}
	if s.AvgBookValue, err = parseDecimal(avgValueStr, "avg_book_value"); err != nil {
		return nil, err
	}
	if s.AvgPercentOfHigh, err = parseDecimal(avgPercentStr, "avg_percent_of_high"); err != nil {
		return nil, err
	}
	if s.HighestValue, err = parseDecimal(highestStr, "highest_value"); err != nil {
		return nil, err
	}
	if s.TotalPurchaseValue, err = parseNullDecimal(purchase, "total_purchase_value"); err != nil {
		return nil, err
	}
	if s.PotentialProfit, err = parseNullDecimal(profit, "potential_profit"); err != nil {
		return nil, err
	}
	s.PeriodStart = s.PeriodStart.UTC()
	s.GeneratedAt = s.GeneratedAt.UTC()

	return &s, nil
}

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Upsert writes the snapshot in a single statement keyed by the unique
// constraint, so concurrent generators for one key cannot produce two rows
func (r *snapshotRepository) Upsert(ctx context.Context, snapshot *domain.AnalyticsSnapshot) (*domain.AnalyticsSnapshot, error) {
	query := `
		INSERT INTO analytics_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (subject_id, subject_kind, time_frame, period_start) DO UPDATE
		SET total_books = EXCLUDED.total_books,
			green_count = EXCLUDED.green_count,
			yellow_count = EXCLUDED.yellow_count,
			red_count = EXCLUDED.red_count,
			total_value = EXCLUDED.total_value,
			avg_book_value = EXCLUDED.avg_book_value,
			avg_percent_of_high = EXCLUDED.avg_percent_of_high,
			highest_value = EXCLUDED.highest_value,
			total_purchase_value = EXCLUDED.total_purchase_value,
			potential_profit = EXCLUDED.potential_profit,
			generated_at = EXCLUDED.generated_at
		RETURNING ` + snapshotColumns

	stored, err := scanSnapshot(r.db.QueryRowContext(ctx, query, snapshotArgs(snapshot)...))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert snapshot: %w", err)
	}

	return stored, nil
}

// InsertIfAbsent writes the snapshot unless its key already has a row, in
// which case the existing row is returned unchanged
func (r *snapshotRepository) InsertIfAbsent(ctx context.Context, snapshot *domain.AnalyticsSnapshot) (*domain.AnalyticsSnapshot, error) {
	insert := `
		INSERT INTO analytics_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (subject_id, subject_kind, time_frame, period_start) DO NOTHING
		RETURNING ` + snapshotColumns

	stored, err := scanSnapshot(r.db.QueryRowContext(ctx, insert, snapshotArgs(snapshot)...))
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to insert snapshot: %w", err)
	}

	existing := `
		SELECT ` + snapshotColumns + `
		FROM analytics_snapshots
		WHERE subject_id = $1 AND subject_kind = $2 AND time_frame = $3 AND period_start = $4
	`
	stored, err = scanSnapshot(r.db.QueryRowContext(ctx, existing,
		snapshot.SubjectID,
		string(snapshot.SubjectKind),
		string(snapshot.TimeFrame),
		snapshot.PeriodStart,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to read existing snapshot: %w", err)
	}
	return stored, nil
}

func snapshotArgs(snapshot *domain.AnalyticsSnapshot) []interface{} {
	id := snapshot.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return []interface{}{
		id,
		snapshot.SubjectID,
		string(snapshot.SubjectKind),
		string(snapshot.TimeFrame),
		snapshot.PeriodStart,
		snapshot.TotalBooks,
		snapshot.GreenCount,
		snapshot.YellowCount,
		snapshot.RedCount,
		snapshot.TotalValue.String(),
		snapshot.AvgBookValue.String(),
		snapshot.AvgPercentOfHigh.String(),
		snapshot.HighestValue.String(),
		nullDecimal(snapshot.TotalPurchaseValue),
		nullDecimal(snapshot.PotentialProfit),
		snapshot.GeneratedAt,
	}
}

// ListByTimeFrame retrieves snapshots for one subject, newest period first
func (r *snapshotRepository) ListByTimeFrame(ctx context.Context, subjectID uuid.UUID, kind domain.SubjectKind, tf domain.TimeFrame, limit int) ([]*domain.AnalyticsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM analytics_snapshots
		WHERE subject_id = $1 AND subject_kind = $2 AND time_frame = $3
		ORDER BY period_start DESC
	`
	args := []interface{}{subjectID, string(kind), string(tf)}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*domain.AnalyticsSnapshot, 0)
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}

	return snapshots, nil
}

// GetLatest retrieves the most recent snapshot for a subject and time frame
func (r *snapshotRepository) GetLatest(ctx context.Context, subjectID uuid.UUID, kind domain.SubjectKind, tf domain.TimeFrame) (*domain.AnalyticsSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM analytics_snapshots
		WHERE subject_id = $1 AND subject_kind = $2 AND time_frame = $3
		ORDER BY period_start DESC
		LIMIT 1
	`

	s, err := scanSnapshot(r.db.QueryRowContext(ctx, query, subjectID, string(kind), string(tf)))
	if err != nil {
		what := fmt.Sprintf("snapshot for %s %s", kind, subjectID)
		return nil, fmt.Errorf("failed to get latest snapshot: %w", notFound(err, what))
	}
	return s, nil
}
