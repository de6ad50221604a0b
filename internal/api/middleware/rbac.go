package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nexus-app/marketplace/internal/core/domain"
)

// RBAC restricts a route to the given account kinds. The role comes from the
// token, so it must run after Auth.
func RBAC(allowedKinds ...domain.AccountKind) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedKinds))
	for _, k := range allowedKinds {
		allowed[string(k)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
			}
			return next(c)
		}
	}
}
