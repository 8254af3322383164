package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Condition is the physical condition a price applies to
type Condition string

const (
	ConditionNew        Condition = "NEW"
	ConditionLikeNew    Condition = "LIKE_NEW"
	ConditionVeryGood   Condition = "VERY_GOOD"
	ConditionGood       Condition = "GOOD"
	ConditionAcceptable Condition = "ACCEPTABLE"
)

// Valid reports whether c is a known condition
func (c Condition) Valid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionVeryGood, ConditionGood, ConditionAcceptable:
		return true
	}
	return false
}

// Book is a single owned copy whose resale value is tracked
type Book struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	ISBN            string
	Title           string
	Condition       Condition
	CurrentPrice    decimal.Decimal
	HistoricalHigh  decimal.Decimal // Non-decreasing over the life of the book
	PercentOfHigh   decimal.Decimal // 0-100, rounded to 2 places
	RankTier        RankTier
	BestVendorName  string
	PurchasePrice   *decimal.Decimal // NULL when the owner never recorded it
	LastPriceUpdate *time.Time       // NULL until the first successful refresh
}

// Validate ensures the book adheres to domain rules
func (b *Book) Validate() error {
	if b.UserID == uuid.Nil {
		return errors.New("book must have an owner")
	}

	if !b.Condition.Valid() {
		return errors.New("book condition is not recognised")
	}

	if b.CurrentPrice.IsNegative() || b.HistoricalHigh.IsNegative() {
		return ErrNegativePrice
	}

	if b.PurchasePrice != nil && b.PurchasePrice.IsNegative() {
		return errors.New("purchase price cannot be negative")
	}

	if b.PercentOfHigh.IsNegative() || b.PercentOfHigh.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("percent of high must be between 0 and 100")
	}

	return nil
}

// HasPriceData reports whether the book has been priced at least once
func (b *Book) HasPriceData() bool {
	return b.LastPriceUpdate != nil
}

// Valuation is the derived pair written together with a price or ceiling change
type Valuation struct {
	PercentOfHigh decimal.Decimal
	RankTier      RankTier
}

// RepriceFunc derives a Valuation from a current price and a ceiling.
// Repositories call it inside the transaction that writes the result.
type RepriceFunc func(currentPrice, historicalHigh decimal.Decimal) (Valuation, error)

// PriceUpdate carries a freshly fetched current price for a book
type PriceUpdate struct {
	BookID     uuid.UUID
	Price      decimal.Decimal
	VendorName string
	ObservedAt time.Time
}
