package model

import "time"

// Reservation status values as stored in the `reservations.status` column.
// The engine admits reservations directly as CONFIRMED; PENDING exists only
// for rows imported from older data and is treated like CONFIRMED when
// cancelling.
const (
	ReservationPending   = "PENDING"
	ReservationConfirmed = "CONFIRMED"
	ReservationCancelled = "CANCELLED"
	ReservationCompleted = "COMPLETED"
)

// Reservation records one holder's claim on one slot of a session.  The
// amount is a snapshot of the session price at admission time and is never
// recomputed afterwards.  A cancelled reservation is immutable; it can
// never transition back to an active state.
//
// Fields:
//  ID          - UUID primary key.
//  SessionID   - session whose slot is claimed.
//  HolderID    - user holding the slot.
//  Status      - PENDING, CONFIRMED, CANCELLED or COMPLETED.
//  AmountCents - price snapshot in cents taken at admission.
//  CreatedAt   - admission timestamp (UTC).
//  CancelledAt - cancellation timestamp (nullable).
type Reservation struct {
	ID          string     // reservations.id
	SessionID   string     // reservations.session_id
	HolderID    string     // reservations.holder_id
	Status      string     // reservations.status
	AmountCents uint32     // reservations.amount_cents
	CreatedAt   time.Time  // reservations.created_at
	CancelledAt *time.Time // reservations.cancelled_at (nullable)
}

// Active reports whether the reservation still occupies a slot.  Completed
// reservations consumed their slot, so only cancellation frees capacity.
func (r *Reservation) Active() bool {
	return r.Status != ReservationCancelled
}
