package domain

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by repositories when the requested row does not exist
	ErrNotFound = errors.New("not found")

	// ErrQuoteUnavailable means the quote source answered but has no offer for the book
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrQuoteUpstream means the quote source could not be reached or answered with an error
	ErrQuoteUpstream = errors.New("quote source error")

	// ErrNoPriceData is returned when a book has never been priced
	ErrNoPriceData = errors.New("no price data for book")

	ErrMissingISBN       = errors.New("book has no ISBN")
	ErrUnresolvableBatch = errors.New("unresolvable batch")
	ErrBatchOwnership    = errors.New("batch does not belong to owner")
	ErrBookOwnership     = errors.New("book is not owned by the batch owner")
	ErrInvalidTimeFrame  = errors.New("invalid time frame")
	ErrNegativePrice     = errors.New("price cannot be negative")
)

// IsTransient reports whether err is a per-item failure that should be
// recorded and retried on the next scheduled run rather than surfaced.
func IsTransient(err error) bool {
	return errors.Is(err, ErrQuoteUnavailable) ||
		errors.Is(err, ErrQuoteUpstream) ||
		errors.Is(err, ErrNoPriceData) ||
		errors.Is(err, ErrMissingISBN) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, context.DeadlineExceeded)
}
