package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

const alertColumns = `
	id, user_id, book_id, target_price, mode, active, triggered, last_triggered_at, created_at
`

func scanAlert(row rowScanner) (*domain.PriceAlert, error) {
	var a domain.PriceAlert
	var targetStr string
	var lastTriggered sql.NullTime

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.BookID,
		&targetStr,
		&a.Mode,
		&a.Active,
		&a.Triggered,
		&lastTriggered,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.TargetPrice, err = parseDecimal(targetStr, "target_price"); err != nil {
		return nil, err
	}
	a.LastTriggeredAt = nullTime(lastTriggered)
	a.CreatedAt = a.CreatedAt.UTC()

	return &a, nil
}

// alertRepository implements domain.AlertRepository
type alertRepository struct {
	db *DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *DB) domain.AlertRepository {
	return &alertRepository{db: db}
}

// GetByID retrieves an alert by its ID
func (r *alertRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PriceAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM price_alerts WHERE id = $1`

	a, err := scanAlert(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get alert by ID: %w", notFound(err, "alert "+id.String()))
	}
	return a, nil
}

// Create creates a new alert
func (r *alertRepository) Create(ctx context.Context, alert *domain.PriceAlert) error {
	if err := alert.Validate(); err != nil {
		return err
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO price_alerts (id, user_id, book_id, target_price, mode, active, triggered, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.ID,
		alert.UserID,
		alert.BookID,
		alert.TargetPrice.String(),
		string(alert.Mode),
		alert.Active,
		alert.Triggered,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alert: %w", err)
	}

	return nil
}

// ListActive retrieves every active alert, oldest first
func (r *alertRepository) ListActive(ctx context.Context) ([]*domain.PriceAlert, error) {
	query := `SELECT ` + alertColumns + ` FROM price_alerts WHERE active ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active alerts: %w", err)
	}
	defer rows.Close()

	alerts := make([]*domain.PriceAlert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

// SetActive toggles an alert; switching an inactive alert on re-arms it
func (r *alertRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.PriceAlert, error) {
	query := `
		UPDATE price_alerts
		SET triggered = CASE WHEN $2 AND NOT active THEN false ELSE triggered END,
			active = $2
		WHERE id = $1
		RETURNING ` + alertColumns

	a, err := scanAlert(r.db.QueryRowContext(ctx, query, id, active))
	if err != nil {
		return nil, fmt.Errorf("failed to set alert active: %w", notFound(err, "alert "+id.String()))
	}
	return a, nil
}

// MarkTriggered flips the crossing flag and records the notification.
// The conditional update is the compare-and-set: of two concurrent passes
// only one sees a row affected and inserts.
func (r *alertRepository) MarkTriggered(ctx context.Context, alertID uuid.UUID, at time.Time, n *domain.Notification) (bool, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx,
		`UPDATE price_alerts SET triggered = true, last_triggered_at = $2 WHERE id = $1 AND active AND NOT triggered`,
		alertID, at,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark alert triggered: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := dbTx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM price_alerts WHERE id = $1)`, alertID).Scan(&exists); err != nil {
			return false, fmt.Errorf("failed to check alert: %w", err)
		}
		if !exists {
			return false, fmt.Errorf("alert %s: %w", alertID, domain.ErrNotFound)
		}
		return false, nil
	}

	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}

	insert := `
		INSERT INTO notifications (id, user_id, alert_id, book_id, title, message,
			current_price, target_price, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9)
	`
	_, err = dbTx.ExecContext(ctx, insert,
		n.ID,
		n.UserID,
		n.AlertID,
		n.BookID,
		n.Title,
		n.Message,
		n.CurrentPrice.String(),
		n.TargetPrice.String(),
		n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// ResetTrigger clears the crossing flag
func (r *alertRepository) ResetTrigger(ctx context.Context, alertID uuid.UUID) (bool, error) {
	var triggered bool
	err := r.db.QueryRowContext(ctx,
		`UPDATE price_alerts SET triggered = false WHERE id = $1 AND triggered RETURNING true`,
		alertID,
	).Scan(&triggered)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reset alert trigger: %w", err)
	}
	return true, nil
}

// notificationRepository implements domain.NotificationRepository
type notificationRepository struct {
	db *DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *DB) domain.NotificationRepository {
	return &notificationRepository{db: db}
}

const notificationColumns = `
	id, user_id, alert_id, book_id, title, message, current_price, target_price, read, read_at, created_at
`

func (r *notificationRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	out := make([]*domain.Notification, 0)
	for rows.Next() {
		var n domain.Notification
		var currentStr, targetStr string
		var readAt sql.NullTime

		err := rows.Scan(&n.ID, &n.UserID, &n.AlertID, &n.BookID, &n.Title, &n.Message,
			&currentStr, &targetStr, &n.Read, &readAt, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if n.CurrentPrice, err = parseDecimal(currentStr, "current_price"); err != nil {
			return nil, err
		}
		if n.TargetPrice, err = parseDecimal(targetStr, "target_price"); err != nil {
			return nil, err
		}
		n.ReadAt = nullTime(readAt)
		n.CreatedAt = n.CreatedAt.UTC()
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return out, nil
}

// ListByUser retrieves a user's notifications, newest first
func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR NOT read)
		ORDER BY created_at DESC, id
	`
	args := []interface{}{userID, unreadOnly}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	return r.list(ctx, query, args...)
}

// ListByAlert retrieves the notifications one alert produced, newest first
func (r *notificationRepository) ListByAlert(ctx context.Context, alertID uuid.UUID) ([]*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE alert_id = $1
		ORDER BY created_at DESC, id
	`
	return r.list(ctx, query, alertID)
}

// MarkRead sets read and keeps the first read time
func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true, read_at = COALESCE(read_at, $2) WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
