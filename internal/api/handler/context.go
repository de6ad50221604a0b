package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nexus-app/marketplace/internal/api/middleware"
	"github.com/nexus-app/marketplace/internal/pkg/token"
)

// ctxSession rebuilds the authenticated identity injected by the Auth
// middleware and fails fast when it is missing, before any service call.
func ctxSession(c echo.Context) (token.Identity, error) {
	username, _ := c.Get(middleware.CtxUsername).(string)
	if username == "" {
		return token.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	role, _ := c.Get(middleware.CtxRole).(string)
	id, _ := c.Get(middleware.CtxTokenID).(string)
	exp, _ := c.Get(middleware.CtxExpiresAt).(time.Time)
	return token.Identity{Subject: username, Role: role, ID: id, ExpiresAt: exp}, nil
}
