package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBook_Validate(t *testing.T) {
	negative := decimal.NewFromInt(-3)

	tests := []struct {
		name    string
		book    Book
		wantErr bool
		errMsg  string
	}{
		{
			name:    "Priced book should pass",
			book:    Book{UserID: uuid.New(), Condition: ConditionGood, CurrentPrice: decimal.NewFromInt(12), HistoricalHigh: decimal.NewFromInt(20), PercentOfHigh: decimal.NewFromInt(60)},
			wantErr: false,
		},
		{
			name:    "Current price above a stale ceiling is allowed",
			book:    Book{UserID: uuid.New(), Condition: ConditionNew, CurrentPrice: decimal.NewFromInt(30), HistoricalHigh: decimal.NewFromInt(20), PercentOfHigh: decimal.NewFromInt(100)},
			wantErr: false,
		},
		{
			name:    "Missing owner should fail",
			book:    Book{Condition: ConditionGood},
			wantErr: true,
			errMsg:  "book must have an owner",
		},
		{
			name:    "Unknown condition should fail",
			book:    Book{UserID: uuid.New(), Condition: "MINT"},
			wantErr: true,
			errMsg:  "book condition is not recognised",
		},
		{
			name:    "Negative price should fail",
			book:    Book{UserID: uuid.New(), Condition: ConditionGood, CurrentPrice: negative},
			wantErr: true,
			errMsg:  ErrNegativePrice.Error(),
		},
		{
			name:    "Negative purchase price should fail",
			book:    Book{UserID: uuid.New(), Condition: ConditionGood, PurchasePrice: &negative},
			wantErr: true,
			errMsg:  "purchase price cannot be negative",
		},
		{
			name:    "Percent above 100 should fail",
			book:    Book{UserID: uuid.New(), Condition: ConditionGood, PercentOfHigh: decimal.NewFromInt(101)},
			wantErr: true,
			errMsg:  "percent of high must be between 0 and 100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.book.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, tt.errMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
