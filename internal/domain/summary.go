package domain

import "github.com/shopspring/decimal"

// InventorySummary is the aggregate of a set of books at one instant.
// Batch counters and analytics snapshots are both projections of it.
type InventorySummary struct {
	TotalBooks  int
	GreenCount  int
	YellowCount int
	RedCount    int

	TotalValue       decimal.Decimal
	AvgBookValue     decimal.Decimal
	AvgPercentOfHigh decimal.Decimal
	HighestValue     decimal.Decimal

	// Both are nil when none of the books carries a purchase price
	TotalPurchaseValue *decimal.Decimal
	PotentialProfit    *decimal.Decimal
}

// SummarizeBooks aggregates books. An empty input yields all-zero figures.
// Books without a tier (never classified) count as RED.
func SummarizeBooks(books []*Book) InventorySummary {
	s := InventorySummary{
		TotalValue:       decimal.Zero,
		AvgBookValue:     decimal.Zero,
		AvgPercentOfHigh: decimal.Zero,
		HighestValue:     decimal.Zero,
	}

	percentSum := decimal.Zero
	purchaseSum := decimal.Zero
	hasPurchase := false

	for _, b := range books {
		s.TotalBooks++

		switch b.RankTier {
		case RankTierGreen:
			s.GreenCount++
		case RankTierYellow:
			s.YellowCount++
		default:
			s.RedCount++
		}

		s.TotalValue = s.TotalValue.Add(b.CurrentPrice)
		percentSum = percentSum.Add(b.PercentOfHigh)
		if b.CurrentPrice.GreaterThan(s.HighestValue) {
			s.HighestValue = b.CurrentPrice
		}

		if b.PurchasePrice != nil {
			hasPurchase = true
			purchaseSum = purchaseSum.Add(*b.PurchasePrice)
		}
	}

	if s.TotalBooks > 0 {
		n := decimal.NewFromInt(int64(s.TotalBooks))
		s.AvgBookValue = s.TotalValue.Div(n).Round(2)
		s.AvgPercentOfHigh = percentSum.Div(n).Round(2)
	}

	if hasPurchase {
		profit := s.TotalValue.Sub(purchaseSum)
		s.TotalPurchaseValue = &purchaseSum
		s.PotentialProfit = &profit
	}

	return s
}

// TierPercent returns count as a percentage of total, rounded to 2 places
func TierPercent(count, total int) decimal.Decimal {
	if total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(count)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2)
}
