// Package booking implements the capacity-constrained reservation engine:
// transactional admission control against a session's capacity, lifecycle
// transitions with symmetric occupancy adjustments, and time-driven
// completion.  The engine never performs external calls (payment,
// notification) inside a store transaction; collaborators react to the
// committed result.
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookably/session-reservation/internal/model"
)

// completionBatchSize caps how many reservations one completion sweep
// transitions in a single transaction.
const completionBatchSize = 500

// Engine decides, under concurrent access, whether a reservation may be
// admitted and keeps the session occupancy counter consistent with the
// ledger of live reservations.  All mutations run inside a single Store
// transaction: either the reservation write and the counter adjustment are
// both visible, or neither is.
type Engine struct {
	store Store
	now   func() time.Time
	newID func() string
}

// NewEngine returns an Engine backed by the given store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// RequestReservation admits or rejects a reservation for one slot of the
// session.  Validation and mutation happen under a write lock on the
// session row, so two concurrent requests can never both observe stale
// "room available" state: with k slots free and N concurrent requests, at
// most k succeed and the rest receive CapacityExceededError.
//
// Rejections: ErrSessionNotFound, ErrSessionNotBookable,
// *CapacityExceededError, ErrDuplicateReservation.  No mutation occurs on
// any rejection.
func (e *Engine) RequestReservation(ctx context.Context, sessionID, holderID string) (*model.Reservation, error) {
	var out *model.Reservation
	err := e.store.Within(ctx, func(tx Tx) error {
		sess, err := tx.SessionForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess.Status != model.SessionPublished {
			return ErrSessionNotBookable
		}
		if sess.Occupancy >= sess.Capacity {
			return &CapacityExceededError{Remaining: sess.SpotsAvailable()}
		}
		exists, err := tx.ActiveReservationExists(ctx, sessionID, holderID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateReservation
		}
		res := &model.Reservation{
			ID:          e.newID(),
			SessionID:   sessionID,
			HolderID:    holderID,
			Status:      model.ReservationConfirmed,
			AmountCents: sess.PriceCents,
			CreatedAt:   e.now(),
		}
		if err := tx.InsertReservation(ctx, res); err != nil {
			return err
		}
		if err := tx.IncrementOccupancy(ctx, sessionID); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelResult reports the outcome of a cancellation.  AlreadyCancelled is
// the idempotent no-op case: the reservation was cancelled before this
// call and the occupancy counter was left untouched.
type CancelResult struct {
	Reservation      *model.Reservation
	AlreadyCancelled bool
}

// CancelReservation marks a reservation cancelled and frees its slot in
// one transaction.  The holder may cancel their own reservation; a creator
// may cancel reservations on sessions they created.  Anything else is
// reported as ErrReservationNotFound so the existence of foreign
// reservations does not leak.
//
// Cancelling an already-cancelled reservation succeeds without
// decrementing the counter: retried client requests must never corrupt
// occupancy.  Completed reservations are rejected with
// ErrReservationNotCancellable.
func (e *Engine) CancelReservation(ctx context.Context, reservationID string, requester model.Identity) (*CancelResult, error) {
	var result CancelResult
	err := e.store.Within(ctx, func(tx Tx) error {
		res, err := tx.ReservationForUpdate(ctx, reservationID)
		if err != nil {
			return err
		}
		if res.HolderID != requester.UserID {
			if requester.Role != model.RoleCreator {
				return ErrReservationNotFound
			}
			creatorID, err := tx.SessionCreator(ctx, res.SessionID)
			if err != nil {
				return err
			}
			if creatorID != requester.UserID {
				return ErrReservationNotFound
			}
		}
		switch res.Status {
		case model.ReservationCancelled:
			result.Reservation = res
			result.AlreadyCancelled = true
			return nil
		case model.ReservationCompleted:
			return ErrReservationNotCancellable
		}
		at := e.now()
		if err := tx.MarkCancelled(ctx, reservationID, at); err != nil {
			return err
		}
		if err := tx.DecrementOccupancy(ctx, res.SessionID); err != nil {
			return err
		}
		res.Status = model.ReservationCancelled
		res.CancelledAt = &at
		result.Reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CompleteDueReservations transitions confirmed reservations whose session
// has ended to COMPLETED.  The slot was consumed, not freed, so occupancy
// is deliberately untouched.  It returns the number of reservations
// completed in this sweep; the scheduler invokes it periodically.
func (e *Engine) CompleteDueReservations(ctx context.Context) (int, error) {
	completed := 0
	err := e.store.Within(ctx, func(tx Tx) error {
		ids, err := tx.DueConfirmedReservations(ctx, e.now(), completionBatchSize)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := tx.MarkCompleted(ctx, id); err != nil {
				return err
			}
		}
		completed = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return completed, nil
}
