package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// RankTier is the coarse classification of percentOfHigh
type RankTier string

const (
	RankTierGreen  RankTier = "GREEN"
	RankTierYellow RankTier = "YELLOW"
	RankTierRed    RankTier = "RED"
)

// TierThresholds is the business policy that splits percentOfHigh into tiers.
// A percent at or above Green is GREEN, at or above Yellow is YELLOW, else RED.
type TierThresholds struct {
	Green  decimal.Decimal
	Yellow decimal.Decimal
}

// DefaultTierThresholds returns the 80/50 policy
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{
		Green:  decimal.NewFromInt(80),
		Yellow: decimal.NewFromInt(50),
	}
}

// Validate ensures 0 <= Yellow <= Green <= 100
func (t TierThresholds) Validate() error {
	hundred := decimal.NewFromInt(100)

	if t.Green.LessThan(decimal.Zero) || t.Green.GreaterThan(hundred) {
		return errors.New("green threshold must be between 0 and 100")
	}

	if t.Yellow.LessThan(decimal.Zero) || t.Yellow.GreaterThan(hundred) {
		return errors.New("yellow threshold must be between 0 and 100")
	}

	if t.Yellow.GreaterThan(t.Green) {
		return errors.New("yellow threshold cannot exceed green threshold")
	}

	return nil
}

// TierFor maps a percent of high onto a tier
func (t TierThresholds) TierFor(percent decimal.Decimal) RankTier {
	switch {
	case percent.GreaterThanOrEqual(t.Green):
		return RankTierGreen
	case percent.GreaterThanOrEqual(t.Yellow):
		return RankTierYellow
	default:
		return RankTierRed
	}
}
