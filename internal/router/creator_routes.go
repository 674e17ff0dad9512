package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookably/session-reservation/internal/handler"
	"github.com/bookably/session-reservation/internal/middleware"
	"github.com/bookably/session-reservation/internal/model"
)

// RegisterCreator registers the catalog endpoints under /v1.  All routes
// require a valid JWT with the CREATOR role; ownership of individual
// sessions is enforced in the handlers and repositories.
func RegisterCreator(e *echo.Echo, h *handler.SessionHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleCreator),
	)
	g.POST("/sessions", h.Create)
	g.PATCH("/sessions/:id", h.Update)
	g.POST("/sessions/:id/publish", h.Publish)
	g.POST("/sessions/:id/unpublish", h.Unpublish)
	g.POST("/sessions/:id/cancel", h.CancelSession)
	g.GET("/my-sessions", h.ListMine)
}
