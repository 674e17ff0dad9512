// Package router maps HTTP routes onto handlers and applies the
// authentication and role middleware per audience.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/bookably/session-reservation/internal/handler"
)

// RegisterRoutes registers routes that require no authentication.
// Currently only the health check lives here; there is deliberately no
// public catalog browse surface.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}
