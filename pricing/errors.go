/*
errors.go - Centralized error types for the pricing system

PURPOSE:
  All error categories in one place. Components wrap these with context
  via fmt.Errorf("...: %w", err) so callers can branch on errors.Is().

ERROR CATEGORIES:
  1. Source errors  - The price-list feed is missing or unparseable
  2. Store errors   - The replace transaction failed
  3. Auth errors    - Remote rate-card token acquisition failed

A missing record on lookup is NOT an error: the store returns (nil, nil)
and the API maps that to 404.
*/
package pricing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSourceUnavailable is returned when the price-list file is missing
	// or unreadable.
	ErrSourceUnavailable = errors.New("price source unavailable")

	// ErrSourceInvalid is returned when the file parses but does not carry
	// the expected column set.
	ErrSourceInvalid = errors.New("price source invalid")

	// ErrNoActivePrices is returned when no row of the feed is valid at
	// import time. The store is left untouched.
	ErrNoActivePrices = errors.New("no active prices in source")

	// ErrStoreWriteFailure is returned when the replace transaction aborts.
	ErrStoreWriteFailure = errors.New("store write failed")

	// ErrAuthFailure is returned when remote-API token acquisition fails.
	ErrAuthFailure = errors.New("authentication failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingColumnsError reports which required columns a source lacked.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("source missing required columns: %v", e.Columns)
}

func (e *MissingColumnsError) Unwrap() error {
	return ErrSourceInvalid
}

// IsSourceError returns true if the error is a problem with the feed
// rather than with the store.
func IsSourceError(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrSourceInvalid) ||
		errors.Is(err, ErrNoActivePrices)
}
