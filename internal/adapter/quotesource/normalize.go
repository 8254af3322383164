package quotesource

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/bookvalue-backend/internal/domain"
)

// Offer is one vendor line in the aggregator's price response
type Offer struct {
	Vendor    string `json:"vendor"`
	Price     string `json:"price"`
	Currency  string `json:"currency"`
	Condition string `json:"condition"`
}

// NormalizeOffers turns raw vendor offers into a single Quote: the best
// (highest) buy-back offer for the requested condition. Offers without a
// condition apply to every condition. Unparseable or negative prices are
// skipped. No usable offer yields ErrQuoteUnavailable.
func NormalizeOffers(isbn string, condition domain.Condition, offers []Offer, observedAt time.Time) (*domain.Quote, error) {
	var best *domain.Quote

	for _, o := range offers {
		offerCondition := domain.Condition(strings.ToUpper(strings.TrimSpace(o.Condition)))
		if offerCondition != "" && offerCondition != condition {
			continue
		}

		price, err := decimal.NewFromString(strings.TrimPrefix(strings.TrimSpace(o.Price), "$"))
		if err != nil || price.IsNegative() {
			continue
		}

		if best != nil && !price.GreaterThan(best.Price) {
			continue
		}

		currency := strings.ToUpper(strings.TrimSpace(o.Currency))
		if currency == "" {
			currency = "USD"
		}

		best = &domain.Quote{
			ID:         uuid.New(),
			ISBN:       isbn,
			Vendor:     strings.TrimSpace(o.Vendor),
			Price:      price,
			Currency:   currency,
			Condition:  condition,
			ObservedAt: observedAt.UTC(),
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no offers for %s in %s condition", domain.ErrQuoteUnavailable, isbn, condition)
	}

	return best, nil
}
