package booking

import (
	"errors"
	"fmt"
)

// Rejections the engine can produce.  These are expected, user-correctable
// outcomes and are never logged as errors; handlers map them onto HTTP
// status codes.
var (
	// ErrSessionNotFound: the session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotBookable: the session exists but is not published.
	ErrSessionNotBookable = errors.New("session is not open for reservations")

	// ErrDuplicateReservation: the holder already has an active
	// reservation for this session.
	ErrDuplicateReservation = errors.New("holder already has an active reservation")

	// ErrReservationNotFound: the reservation does not exist or is not
	// visible to the requester.  Ownership failures intentionally map
	// here so that probing for foreign reservation IDs leaks nothing.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationNotCancellable: the reservation has already been
	// completed; its slot was consumed and cannot be freed.
	ErrReservationNotCancellable = errors.New("reservation can no longer be cancelled")

	// ErrTransientConflict: the store aborted the transaction due to
	// concurrent access and the bounded retries were exhausted.  The
	// request may be retried by the caller.
	ErrTransientConflict = errors.New("transient store conflict")
)

// CapacityExceededError rejects an admission because the session is full.
// Remaining carries the actual free-slot count observed under the row lock
// so clients can present it; it is zero unless the rejection raced with a
// cancellation.
type CapacityExceededError struct {
	Remaining uint32
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("session capacity exceeded (%d remaining)", e.Remaining)
}
