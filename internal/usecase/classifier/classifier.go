package classifier

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Classifier maps a current price and a historical ceiling onto a tier
// using an injected threshold policy. It holds no other state.
type Classifier struct {
	Thresholds domain.TierThresholds
}

// NewClassifier creates a classifier after validating the policy
func NewClassifier(thresholds domain.TierThresholds) (*Classifier, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tier thresholds: %w", err)
	}
	return &Classifier{Thresholds: thresholds}, nil
}

// Classify computes percentOfHigh and the tier.
// Logic:
//  1. A zero ceiling means nothing to compare against: 0% and RED
//  2. Otherwise percent = current / high * 100, capped at 100 and rounded to 2 places
//  3. The tier is decided on the rounded percent so stored fields always agree
//
// Negative inputs return ErrNegativePrice.
func (c *Classifier) Classify(currentPrice, historicalHigh decimal.Decimal) (domain.Valuation, error) {
	if currentPrice.IsNegative() || historicalHigh.IsNegative() {
		return domain.Valuation{}, domain.ErrNegativePrice
	}

	if historicalHigh.IsZero() {
		return domain.Valuation{PercentOfHigh: decimal.Zero, RankTier: domain.RankTierRed}, nil
	}

	percent := currentPrice.Mul(hundred).Div(historicalHigh).Round(2)
	if percent.GreaterThan(hundred) {
		percent = hundred
	}

	return domain.Valuation{
		PercentOfHigh: percent,
		RankTier:      c.Thresholds.TierFor(percent),
	}, nil
}

// Reprice exposes Classify as the callback repositories run inside their write
func (c *Classifier) Reprice() domain.RepriceFunc {
	return c.Classify
}
