package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookably/session-reservation/internal/handler"
	"github.com/bookably/session-reservation/internal/middleware"
	"github.com/bookably/session-reservation/internal/model"
)

// RegisterReservations registers the reservation endpoints under /v1.
// Admission is restricted to the USER role; cancellation and the listing
// view accept both roles (creators cancel and inspect reservations on
// their own sessions).  The limiter guards the state-changing routes.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	users := g.Group("", middleware.RequireRole(model.RoleUser))
	users.POST("/reservations", h.Create, limit)

	both := g.Group("", middleware.RequireRole(model.RoleUser, model.RoleCreator))
	both.DELETE("/reservations/:id", h.Cancel, limit)
	both.GET("/my-reservations", h.ListMine)

	creators := g.Group("", middleware.RequireRole(model.RoleCreator))
	creators.GET("/sessions/:id/reservations", h.ListForSession)
}
