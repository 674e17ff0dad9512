package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bookably/session-reservation/internal/model"
	"github.com/bookably/session-reservation/internal/repository"
)

// SessionHandler implements the catalog side: creators draft, edit and
// publish sessions.  Everything here writes ordinary catalog columns;
// occupancy belongs to the engine and is never touched by these handlers.
type SessionHandler struct {
	Sessions *repository.SessionRepo
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(sessions *repository.SessionRepo) *SessionHandler {
	if sessions == nil {
		panic("nil repository passed to NewSessionHandler")
	}
	return &SessionHandler{Sessions: sessions}
}

// sessionBody is the request payload shared by create and update.
type sessionBody struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	PriceCents      uint32     `json:"price_cents"`
	DurationMinutes uint32     `json:"duration_minutes"`
	StartsAt        *time.Time `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at"`
	Capacity        uint32     `json:"capacity"`
}

func (b *sessionBody) validate() string {
	if b.Title == "" {
		return "title is required"
	}
	if b.Capacity == 0 {
		return "capacity must be at least 1"
	}
	if b.StartsAt != nil && b.EndsAt != nil && !b.EndsAt.After(*b.StartsAt) {
		return "ends_at must be after starts_at"
	}
	return ""
}

// Create handles POST /v1/sessions.  New sessions start as drafts with
// zero occupancy and become bookable only after publish.
func (h *SessionHandler) Create(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body sessionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := body.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	sess := &model.Session{
		ID:              uuid.NewString(),
		CreatorID:       ident.UserID,
		Title:           body.Title,
		Description:     body.Description,
		PriceCents:      body.PriceCents,
		DurationMinutes: body.DurationMinutes,
		StartsAt:        body.StartsAt,
		EndsAt:          body.EndsAt,
		Capacity:        body.Capacity,
		Status:          model.SessionDraft,
	}
	if err := h.Sessions.Create(c.Request().Context(), sess); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create session"})
	}
	return c.JSON(http.StatusCreated, sessionJSON(sess))
}

// Update handles PATCH /v1/sessions/:id.  Capacity may be edited at any
// time but can never drop below the live occupancy; the repository guards
// that in the same statement.
func (h *SessionHandler) Update(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	var body sessionBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if msg := body.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	sess := &model.Session{
		ID:              id,
		Title:           body.Title,
		Description:     body.Description,
		PriceCents:      body.PriceCents,
		DurationMinutes: body.DurationMinutes,
		StartsAt:        body.StartsAt,
		EndsAt:          body.EndsAt,
		Capacity:        body.Capacity,
	}
	err = h.Sessions.Update(c.Request().Context(), ident.UserID, sess)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrOccupancyBound):
			return c.JSON(http.StatusConflict, echo.Map{"error": "capacity below current occupancy"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update session"})
	}
	updated, err := h.Sessions.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load session"})
	}
	return c.JSON(http.StatusOK, sessionJSON(updated))
}

// Publish handles POST /v1/sessions/:id/publish.
func (h *SessionHandler) Publish(c echo.Context) error {
	return h.setStatus(c, model.SessionPublished)
}

// Unpublish handles POST /v1/sessions/:id/unpublish, returning the session
// to draft.  Existing reservations stay intact; only new admissions stop.
func (h *SessionHandler) Unpublish(c echo.Context) error {
	return h.setStatus(c, model.SessionDraft)
}

// CancelSession handles POST /v1/sessions/:id/cancel.
func (h *SessionHandler) CancelSession(c echo.Context) error {
	return h.setStatus(c, model.SessionCancelled)
}

func (h *SessionHandler) setStatus(c echo.Context, status string) error {
	ident, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	err = h.Sessions.SetStatus(c.Request().Context(), id, ident.UserID, status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update session status"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}

// ListMine handles GET /v1/my-sessions for creators.
func (h *SessionHandler) ListMine(c echo.Context) error {
	ident, err := identity(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	items, err := h.Sessions.ListByCreator(c.Request().Context(), ident.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load sessions"})
	}
	out := make([]echo.Map, 0, len(items))
	for i := range items {
		out = append(out, sessionJSON(&items[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// sessionJSON renders a session for responses, including the derived
// free-slot count.
func sessionJSON(s *model.Session) echo.Map {
	m := echo.Map{
		"id":               s.ID,
		"creator_id":       s.CreatorID,
		"title":            s.Title,
		"description":      s.Description,
		"price_cents":      s.PriceCents,
		"duration_minutes": s.DurationMinutes,
		"capacity":         s.Capacity,
		"occupancy":        s.Occupancy,
		"spots_available":  s.SpotsAvailable(),
		"status":           s.Status,
		"created_at":       s.CreatedAt.Format(time.RFC3339),
	}
	if s.StartsAt != nil {
		m["starts_at"] = s.StartsAt.Format(time.RFC3339)
	}
	if s.EndsAt != nil {
		m["ends_at"] = s.EndsAt.Format(time.RFC3339)
	}
	return m
}
