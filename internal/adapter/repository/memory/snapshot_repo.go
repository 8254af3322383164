package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

type snapshotRepository struct {
	s *Store
}

func (r *snapshotRepository) Upsert(_ context.Context, snapshot *domain.AnalyticsSnapshot) (*domain.AnalyticsSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *snapshot
	if existing, ok := r.s.snapshots[snapshot.SnapshotKey]; ok {
		stored.ID = existing.ID
	} else if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	r.s.snapshots[snapshot.SnapshotKey] = stored

	return &stored, nil
}

func (r *snapshotRepository) InsertIfAbsent(_ context.Context, snapshot *domain.AnalyticsSnapshot) (*domain.AnalyticsSnapshot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing, ok := r.s.snapshots[snapshot.SnapshotKey]; ok {
		return &existing, nil
	}

	stored := *snapshot
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	r.s.snapshots[snapshot.SnapshotKey] = stored

	return &stored, nil
}

func (r *snapshotRepository) ListByTimeFrame(_ context.Context, subjectID uuid.UUID, kind domain.SubjectKind, tf domain.TimeFrame, limit int) ([]*domain.AnalyticsSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.AnalyticsSnapshot, 0)
	for key, snap := range r.s.snapshots {
		if key.SubjectID == subjectID && key.SubjectKind == kind && key.TimeFrame == tf {
			out = append(out, &snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *snapshotRepository) GetLatest(ctx context.Context, subjectID uuid.UUID, kind domain.SubjectKind, tf domain.TimeFrame) (*domain.AnalyticsSnapshot, error) {
	snaps, err := r.ListByTimeFrame(ctx, subjectID, kind, tf, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("snapshot for %s %s: %w", kind, subjectID, domain.ErrNotFound)
	}
	return snaps[0], nil
}
