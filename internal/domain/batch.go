package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Batch is a named collection of books owned by one user.
// The counters are a cache of SummarizeBooks over the members and are
// always rewritten from scratch, never incremented.
type Batch struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string

	Counters  BatchCounters
	UpdatedAt time.Time
}

// BatchCounters is the denormalized view stored on a batch
type BatchCounters struct {
	GreenCount     int
	YellowCount    int
	RedCount       int
	TotalBooks     int
	TotalValue     decimal.Decimal
	AveragePercent decimal.Decimal
}

// Validate ensures the batch adheres to domain rules
func (b *Batch) Validate() error {
	if b.Name == "" {
		return errors.New("batch name cannot be empty")
	}

	if b.UserID == uuid.Nil {
		return errors.New("batch must have an owner")
	}

	return nil
}

// ComputeBatchCounters derives the counters for the given member books
func ComputeBatchCounters(books []*Book) BatchCounters {
	s := SummarizeBooks(books)
	return BatchCounters{
		GreenCount:     s.GreenCount,
		YellowCount:    s.YellowCount,
		RedCount:       s.RedCount,
		TotalBooks:     s.TotalBooks,
		TotalValue:     s.TotalValue,
		AveragePercent: s.AvgPercentOfHigh,
	}
}

// CheckCounters returns an error describing the first counter that disagrees
// with the aggregate of members.
func (b *Batch) CheckCounters(members []*Book) error {
	want := ComputeBatchCounters(members)
	got := b.Counters

	if got.GreenCount+got.YellowCount+got.RedCount != got.TotalBooks {
		return fmt.Errorf("batch %s: tier counts %d+%d+%d do not sum to %d",
			b.ID, got.GreenCount, got.YellowCount, got.RedCount, got.TotalBooks)
	}

	switch {
	case got.TotalBooks != want.TotalBooks:
		return fmt.Errorf("batch %s: totalBooks %d, members %d", b.ID, got.TotalBooks, want.TotalBooks)
	case got.GreenCount != want.GreenCount, got.YellowCount != want.YellowCount, got.RedCount != want.RedCount:
		return fmt.Errorf("batch %s: tier counts %d/%d/%d, members %d/%d/%d", b.ID,
			got.GreenCount, got.YellowCount, got.RedCount,
			want.GreenCount, want.YellowCount, want.RedCount)
	case !got.TotalValue.Equal(want.TotalValue):
		return fmt.Errorf("batch %s: totalValue %s, members %s", b.ID, got.TotalValue, want.TotalValue)
	case !got.AveragePercent.Equal(want.AveragePercent):
		return fmt.Errorf("batch %s: averagePercent %s, members %s", b.ID, got.AveragePercent, want.AveragePercent)
	}

	return nil
}
