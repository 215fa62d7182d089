// Package repository defines error types that are reused across
// multiple repositories. These sentinel values let higher layers such
// as the arbitration services distinguish between different failure
// scenarios. ErrPredicateFailed signals that a conditional update found
// the row in a different state than required; it is a terminal outcome
// for that attempt, not a transient error. ErrStoreUnavailable wraps
// infrastructure failures and is the only condition callers may retry.
package repository

import (
	"errors"
	"fmt"
)

// ErrSeatNotFound is returned when a seat lookup yields no rows.
var ErrSeatNotFound = errors.New("seat not found")

// ErrTicketNotFound is returned when a ticket lookup yields no rows.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrPredicateFailed is returned by a conditional update when the row
// exists but its current state does not satisfy the update's predicate.
// Nothing is written in that case.
var ErrPredicateFailed = errors.New("predicate failed")

// ErrStoreUnavailable wraps transient store failures (connection loss,
// timeouts). Handlers must surface it distinctly from arbitration
// outcomes; callers may retry with backoff.
var ErrStoreUnavailable = errors.New("store unavailable")

// storeErr wraps a driver error so it matches ErrStoreUnavailable with
// errors.Is while preserving the underlying cause.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
