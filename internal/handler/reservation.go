package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bookably/session-reservation/internal/booking"
	"github.com/bookably/session-reservation/internal/model"
	"github.com/bookably/session-reservation/internal/queue"
	"github.com/bookably/session-reservation/internal/repository"
)

// Engine is the slice of the reservation engine the handlers need.
// *booking.Engine satisfies it; tests substitute fakes.
type Engine interface {
	RequestReservation(ctx context.Context, sessionID, holderID string) (*model.Reservation, error)
	CancelReservation(ctx context.Context, reservationID string, requester model.Identity) (*booking.CancelResult, error)
}

// ReservationHandler exposes admission, cancellation and the read-side
// reservation views.  The engine owns all invariant-bearing writes; this
// layer only translates between HTTP and engine results.  Events are
// published after the engine committed, never inside its transaction.
type ReservationHandler struct {
	Engine       Engine
	Reservations *repository.ReservationRepo
	Events       *queue.Publisher // optional; nil disables event publishing
}

// NewReservationHandler constructs a ReservationHandler.  Events may be
// nil when no broker is configured.
func NewReservationHandler(engine Engine, reservations *repository.ReservationRepo, events *queue.Publisher) *ReservationHandler {
	if engine == nil || reservations == nil {
		panic("nil dependency passed to NewReservationHandler")
	}
	return &ReservationHandler{Engine: engine, Reservations: reservations, Events: events}
}

// Create handles POST /v1/reservations.  The body carries the session ID;
// the holder is the authenticated caller.  Responses: 201 with the
// reservation on success, 409 for capacity/duplicate rejections (the
// capacity body includes the remaining free slots), 404 for unknown or
// unpublished sessions, 503 when concurrent retries were exhausted.
func (h *ReservationHandler) Create(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		SessionID string `json:"session_id"`
	}
	if err := c.Bind(&body); err != nil || body.SessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session_id is required"})
	}

	res, err := h.Engine.RequestReservation(c.Request().Context(), body.SessionID, ident.UserID)
	if err != nil {
		var full *booking.CapacityExceededError
		switch {
		case errors.As(err, &full):
			return c.JSON(http.StatusConflict, echo.Map{
				"error":     "capacity_exceeded",
				"remaining": full.Remaining,
			})
		case errors.Is(err, booking.ErrDuplicateReservation):
			return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate_reservation"})
		case errors.Is(err, booking.ErrSessionNotFound), errors.Is(err, booking.ErrSessionNotBookable):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, booking.ErrTransientConflict):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store conflict, retry later"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}

	if h.Events != nil {
		// Best effort: the reservation is committed, a lost event must not
		// fail the request.
		_ = h.Events.ReservationConfirmed(c.Request().Context(), queue.ReservationEvent{
			ReservationID: res.ID,
			SessionID:     res.SessionID,
			HolderID:      res.HolderID,
			AmountCents:   res.AmountCents,
			OccurredAt:    res.CreatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusCreated, reservationJSON(res))
}

// Cancel handles DELETE /v1/reservations/:id.  Cancellation is idempotent:
// the first call frees the slot, repeats report already_cancelled with 200
// and leave occupancy untouched.  404 covers both missing and foreign
// reservations; 409 marks completed reservations.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	resID := c.Param("id")
	if resID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}

	result, err := h.Engine.CancelReservation(c.Request().Context(), resID, ident)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrReservationNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		case errors.Is(err, booking.ErrReservationNotCancellable):
			return c.JSON(http.StatusConflict, echo.Map{"error": "reservation already completed"})
		case errors.Is(err, booking.ErrTransientConflict):
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "store conflict, retry later"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to cancel reservation"})
	}

	if result.AlreadyCancelled {
		return c.JSON(http.StatusOK, echo.Map{
			"status":      "already_cancelled",
			"reservation": reservationJSON(result.Reservation),
		})
	}
	if h.Events != nil {
		occurred := ""
		if result.Reservation.CancelledAt != nil {
			occurred = result.Reservation.CancelledAt.Format(time.RFC3339)
		}
		_ = h.Events.ReservationCancelled(c.Request().Context(), queue.ReservationEvent{
			ReservationID: result.Reservation.ID,
			SessionID:     result.Reservation.SessionID,
			HolderID:      result.Reservation.HolderID,
			AmountCents:   result.Reservation.AmountCents,
			OccurredAt:    occurred,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":      "cancelled",
		"reservation": reservationJSON(result.Reservation),
	})
}

// ListMine handles GET /v1/my-reservations.  The view dispatches on the
// caller's role: users see the reservations they hold, creators see every
// reservation placed on sessions they created.
func (h *ReservationHandler) ListMine(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()
	var items []repository.ReservationDetail
	if ident.Role == model.RoleCreator {
		items, err = h.Reservations.ListByCreator(ctx, ident.UserID)
	} else {
		items, err = h.Reservations.ListByHolder(ctx, ident.UserID)
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListForSession handles GET /v1/sessions/:id/reservations for creators.
// Only the session's creator may see its reservations; foreign sessions
// return 404 like missing ones.
func (h *ReservationHandler) ListForSession(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	sessionID := c.Param("id")
	items, err := h.Reservations.ListBySessionForCreator(c.Request().Context(), sessionID, ident.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// reservationJSON renders a reservation for responses.
func reservationJSON(r *model.Reservation) echo.Map {
	m := echo.Map{
		"id":           r.ID,
		"session_id":   r.SessionID,
		"holder_id":    r.HolderID,
		"status":       r.Status,
		"amount_cents": r.AmountCents,
		"created_at":   r.CreatedAt.Format(time.RFC3339),
	}
	if r.CancelledAt != nil {
		m["cancelled_at"] = r.CancelledAt.Format(time.RFC3339)
	}
	return m
}
