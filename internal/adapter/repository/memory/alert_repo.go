package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

type alertRepository struct {
	s *Store
}

func (r *alertRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.PriceAlert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	return &a, nil
}

func (r *alertRepository) Create(_ context.Context, alert *domain.PriceAlert) error {
	if err := alert.Validate(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	r.s.alerts[alert.ID] = *alert
	return nil
}

func (r *alertRepository) ListActive(_ context.Context) ([]*domain.PriceAlert, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	alerts := make([]*domain.PriceAlert, 0)
	for _, a := range r.s.alerts {
		if a.Active {
			alerts = append(alerts, &a)
		}
	}
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CreatedAt.Equal(alerts[j].CreatedAt) {
			return alerts[i].ID.String() < alerts[j].ID.String()
		}
		return alerts[i].CreatedAt.Before(alerts[j].CreatedAt)
	})
	return alerts, nil
}

func (r *alertRepository) SetActive(_ context.Context, id uuid.UUID, active bool) (*domain.PriceAlert, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("alert %s: %w", id, domain.ErrNotFound)
	}
	if active && !a.Active {
		a.Triggered = false
	}
	a.Active = active
	r.s.alerts[id] = a
	return &a, nil
}

func (r *alertRepository) MarkTriggered(_ context.Context, alertID uuid.UUID, at time.Time, notification *domain.Notification) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.alerts[alertID]
	if !ok {
		return false, fmt.Errorf("alert %s: %w", alertID, domain.ErrNotFound)
	}
	if !a.Active || a.Triggered {
		return false, nil
	}

	a.Triggered = true
	a.LastTriggeredAt = &at
	r.s.alerts[alertID] = a
	r.s.notifications = append(r.s.notifications, *notification)
	return true, nil
}

func (r *alertRepository) ResetTrigger(_ context.Context, alertID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.alerts[alertID]
	if !ok {
		return false, fmt.Errorf("alert %s: %w", alertID, domain.ErrNotFound)
	}
	if !a.Triggered {
		return false, nil
	}
	a.Triggered = false
	r.s.alerts[alertID] = a
	return true, nil
}

type notificationRepository struct {
	s *Store
}

func (r *notificationRepository) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Notification, 0)
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, &n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *notificationRepository) ListByAlert(_ context.Context, alertID uuid.UUID) ([]*domain.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Notification, 0)
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.AlertID == alertID {
			out = append(out, &n)
		}
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i := range r.s.notifications {
		if r.s.notifications[i].ID != id {
			continue
		}
		if !r.s.notifications[i].Read {
			r.s.notifications[i].Read = true
			r.s.notifications[i].ReadAt = &at
		}
		return nil
	}
	return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
}
