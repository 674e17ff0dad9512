// Package handler contains the HTTP handlers.  Handlers assume that JWT
// authentication and role checks already ran in middleware and that the
// context carries "user_id" and "role".
package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/bookably/session-reservation/internal/model"
)

// identity extracts the authenticated caller from the echo context.
func identity(c echo.Context) (model.Identity, error) {
	userID, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	if userID == "" || role == "" {
		return model.Identity{}, errors.New("missing identity in context")
	}
	return model.Identity{UserID: userID, Role: role}, nil
}
