package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote is one vendor's offer for a book in a given condition.
// Quotes are append-only; a later quote supersedes but never overwrites.
type Quote struct {
	ID         uuid.UUID
	BookID     uuid.UUID
	ISBN       string
	Vendor     string
	Price      decimal.Decimal
	Currency   string
	Condition  Condition
	ObservedAt time.Time
}

// CeilingObservation is a single price sighting fed to the high-water mark
type CeilingObservation struct {
	BookID     uuid.UUID
	Condition  Condition
	Price      decimal.Decimal
	ObservedAt time.Time
}
