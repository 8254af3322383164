package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubjectKind identifies what a snapshot summarizes
type SubjectKind string

const (
	SubjectKindUser  SubjectKind = "USER"
	SubjectKindBatch SubjectKind = "BATCH"
)

// ParseSubjectKind accepts any casing of USER or BATCH
func ParseSubjectKind(s string) (SubjectKind, error) {
	k := SubjectKind(strings.ToUpper(strings.TrimSpace(s)))
	if k != SubjectKindUser && k != SubjectKindBatch {
		return "", fmt.Errorf("subject kind must be USER or BATCH, got %q", s)
	}
	return k, nil
}

// SnapshotKey is the unique generation key. One row per key, ever.
type SnapshotKey struct {
	SubjectID   uuid.UUID
	SubjectKind SubjectKind
	TimeFrame   TimeFrame
	PeriodStart time.Time
}

// AnalyticsSnapshot is the aggregate for one subject and one period
type AnalyticsSnapshot struct {
	ID uuid.UUID
	SnapshotKey
	InventorySummary
	GeneratedAt time.Time
}
