package booking

import (
	"context"
	"time"

	"github.com/bookably/session-reservation/internal/model"
)

// Store is the transactional boundary the engine runs against.  Within
// executes fn inside one store transaction: every row operation fn performs
// through the Tx view commits or rolls back as a single unit.  When fn
// returns an error the transaction is rolled back and the error is
// returned unchanged, except that transient serialization failures may be
// retried a bounded number of times before surfacing as
// ErrTransientConflict.
//
// The store transaction is the sole synchronization point.  Operations on
// the same session must serialize until commit or abort; operations on
// different sessions must not block one another.
type Store interface {
	Within(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of row operations available inside one store transaction.
// Implementations must guarantee that SessionForUpdate and
// ReservationForUpdate block other transactions touching the same rows
// until the enclosing transaction resolves.
type Tx interface {
	// SessionForUpdate loads a session and write-locks its row.
	// Returns ErrSessionNotFound when absent.
	SessionForUpdate(ctx context.Context, sessionID string) (*model.Session, error)

	// SessionCreator returns the creator of a session.
	SessionCreator(ctx context.Context, sessionID string) (string, error)

	// ActiveReservationExists reports whether the holder has a
	// non-cancelled reservation for the session.
	ActiveReservationExists(ctx context.Context, sessionID, holderID string) (bool, error)

	// InsertReservation adds a new reservation row.
	InsertReservation(ctx context.Context, res *model.Reservation) error

	// ReservationForUpdate loads a reservation and write-locks its row.
	// Returns ErrReservationNotFound when absent.
	ReservationForUpdate(ctx context.Context, reservationID string) (*model.Reservation, error)

	// IncrementOccupancy raises the session's occupancy by one, failing
	// rather than exceeding capacity.
	IncrementOccupancy(ctx context.Context, sessionID string) error

	// DecrementOccupancy lowers the session's occupancy by one, failing
	// rather than dropping below zero.
	DecrementOccupancy(ctx context.Context, sessionID string) error

	// MarkCancelled sets a reservation to CANCELLED at the given time.
	MarkCancelled(ctx context.Context, reservationID string, at time.Time) error

	// MarkCompleted sets a CONFIRMED reservation to COMPLETED.
	MarkCompleted(ctx context.Context, reservationID string) error

	// DueConfirmedReservations lists confirmed reservations whose session
	// ended at or before now, capped at limit.
	DueConfirmedReservations(ctx context.Context, now time.Time, limit int) ([]string, error)
}
