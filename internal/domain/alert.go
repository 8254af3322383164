package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertMode selects what the target is compared against
type AlertMode string

const (
	AlertModeBelow         AlertMode = "below"           // current price <= target
	AlertModeAbove         AlertMode = "above"           // current price >= target
	AlertModePercentOfHigh AlertMode = "percent_of_high" // percentOfHigh >= target
)

// AlertState is the lifecycle position of an alert, derived from its flags
type AlertState string

const (
	AlertStateActive    AlertState = "ACTIVE"
	AlertStateTriggered AlertState = "TRIGGERED"
	AlertStateInactive  AlertState = "INACTIVE"
)

// PriceAlert is a standing condition on one book.
// Triggered is set when a notification was produced for the current crossing
// and cleared once the condition is observed false again.
type PriceAlert struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	BookID          uuid.UUID
	TargetPrice     decimal.Decimal
	Mode            AlertMode
	Active          bool
	Triggered       bool
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

// Validate ensures the alert adheres to domain rules
func (a *PriceAlert) Validate() error {
	if a.BookID == uuid.Nil {
		return errors.New("alert must reference a book")
	}

	if a.TargetPrice.IsNegative() {
		return errors.New("alert target cannot be negative")
	}

	switch a.Mode {
	case AlertModeBelow, AlertModeAbove:
	case AlertModePercentOfHigh:
		if a.TargetPrice.GreaterThan(decimal.NewFromInt(100)) {
			return errors.New("percent_of_high target must be between 0 and 100")
		}
	default:
		return errors.New("alert mode must be below, above, or percent_of_high")
	}

	return nil
}

// State derives the lifecycle state
func (a *PriceAlert) State() AlertState {
	switch {
	case !a.Active:
		return AlertStateInactive
	case a.Triggered:
		return AlertStateTriggered
	default:
		return AlertStateActive
	}
}

// ConditionMet evaluates the alert against a book's current figures
func (a *PriceAlert) ConditionMet(currentPrice, percentOfHigh decimal.Decimal) bool {
	switch a.Mode {
	case AlertModeBelow:
		return currentPrice.LessThanOrEqual(a.TargetPrice)
	case AlertModeAbove:
		return currentPrice.GreaterThanOrEqual(a.TargetPrice)
	case AlertModePercentOfHigh:
		return percentOfHigh.GreaterThanOrEqual(a.TargetPrice)
	}
	return false
}
