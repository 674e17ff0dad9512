package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookably/session-reservation/internal/booking"
	"github.com/bookably/session-reservation/internal/handler"
	"github.com/bookably/session-reservation/internal/model"
	"github.com/bookably/session-reservation/internal/repository"
)

// fakeEngine returns canned engine outcomes so the tests can focus on the
// HTTP mapping: status codes, bodies, and the idempotent cancel contract.
type fakeEngine struct {
	reserveRes *model.Reservation
	reserveErr error
	cancelRes  *booking.CancelResult
	cancelErr  error
}

func (f *fakeEngine) RequestReservation(_ context.Context, _, _ string) (*model.Reservation, error) {
	return f.reserveRes, f.reserveErr
}

func (f *fakeEngine) CancelReservation(_ context.Context, _ string, _ model.Identity) (*booking.CancelResult, error) {
	return f.cancelRes, f.cancelErr
}

func newContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", "holder-1")
	c.Set("role", model.RoleUser)
	return c, rec
}

func sampleReservation() *model.Reservation {
	return &model.Reservation{
		ID:          "res-1",
		SessionID:   "sess-1",
		HolderID:    "holder-1",
		Status:      model.ReservationConfirmed,
		AmountCents: 2500,
		CreatedAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateReservation_Statuses(t *testing.T) {
	tests := []struct {
		name     string
		engine   *fakeEngine
		body     string
		wantCode int
		wantBody string
	}{
		{
			name:     "created",
			engine:   &fakeEngine{reserveRes: sampleReservation()},
			body:     `{"session_id":"sess-1"}`,
			wantCode: http.StatusCreated,
			wantBody: `"res-1"`,
		},
		{
			name:     "capacity_exceeded_carries_remaining",
			engine:   &fakeEngine{reserveErr: &booking.CapacityExceededError{Remaining: 0}},
			body:     `{"session_id":"sess-1"}`,
			wantCode: http.StatusConflict,
			wantBody: `"remaining":0`,
		},
		{
			name:     "duplicate_reservation",
			engine:   &fakeEngine{reserveErr: booking.ErrDuplicateReservation},
			body:     `{"session_id":"sess-1"}`,
			wantCode: http.StatusConflict,
			wantBody: "duplicate_reservation",
		},
		{
			name:     "unknown_session",
			engine:   &fakeEngine{reserveErr: booking.ErrSessionNotFound},
			body:     `{"session_id":"nope"}`,
			wantCode: http.StatusNotFound,
			wantBody: "session not found",
		},
		{
			name:     "unpublished_session",
			engine:   &fakeEngine{reserveErr: booking.ErrSessionNotBookable},
			body:     `{"session_id":"sess-1"}`,
			wantCode: http.StatusNotFound,
			wantBody: "session not found",
		},
		{
			name:     "retries_exhausted",
			engine:   &fakeEngine{reserveErr: booking.ErrTransientConflict},
			body:     `{"session_id":"sess-1"}`,
			wantCode: http.StatusServiceUnavailable,
			wantBody: "retry",
		},
		{
			name:     "missing_session_id",
			engine:   &fakeEngine{},
			body:     `{}`,
			wantCode: http.StatusBadRequest,
			wantBody: "session_id",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := handler.NewReservationHandler(tc.engine, repository.NewReservationRepo(nil), nil)
			c, rec := newContext(t, http.MethodPost, "/v1/reservations", tc.body)
			require.NoError(t, h.Create(c))
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestCancelReservation_Statuses(t *testing.T) {
	cancelledAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	cancelled := sampleReservation()
	cancelled.Status = model.ReservationCancelled
	cancelled.CancelledAt = &cancelledAt

	tests := []struct {
		name     string
		engine   *fakeEngine
		wantCode int
		wantBody string
	}{
		{
			name:     "cancelled",
			engine:   &fakeEngine{cancelRes: &booking.CancelResult{Reservation: cancelled}},
			wantCode: http.StatusOK,
			wantBody: `"status":"cancelled"`,
		},
		{
			name: "already_cancelled_is_ok",
			engine: &fakeEngine{cancelRes: &booking.CancelResult{
				Reservation:      cancelled,
				AlreadyCancelled: true,
			}},
			wantCode: http.StatusOK,
			wantBody: `"status":"already_cancelled"`,
		},
		{
			name:     "not_found",
			engine:   &fakeEngine{cancelErr: booking.ErrReservationNotFound},
			wantCode: http.StatusNotFound,
			wantBody: "reservation not found",
		},
		{
			name:     "completed_conflict",
			engine:   &fakeEngine{cancelErr: booking.ErrReservationNotCancellable},
			wantCode: http.StatusConflict,
			wantBody: "completed",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := handler.NewReservationHandler(tc.engine, repository.NewReservationRepo(nil), nil)
			c, rec := newContext(t, http.MethodDelete, "/v1/reservations/res-1", "")
			c.SetParamNames("id")
			c.SetParamValues("res-1")
			require.NoError(t, h.Cancel(c))
			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}
