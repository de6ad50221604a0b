package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nexus-app/marketplace/internal/api/metrics"
	"github.com/nexus-app/marketplace/internal/core/ports"
	"github.com/nexus-app/marketplace/internal/pkg/token"
)

// Context keys written by Auth.
const (
	CtxUsername  = "username"
	CtxRole      = "role"
	CtxTokenID   = "token_id"
	CtxExpiresAt = "token_expires_at"
)

// Auth validates the bearer token, rejects revoked sessions and injects the
// identity into the context. When the revocation store cannot be reached the
// request fails rather than trusting the token.
func Auth(tokens ports.TokenValidator, sessions ports.SessionRevoker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.TokensRejectedTotal.WithLabelValues("missing").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				metrics.TokensRejectedTotal.WithLabelValues("malformed").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			id, err := tokens.Validate(strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					metrics.TokensRejectedTotal.WithLabelValues("expired").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired").SetInternal(err)
				}
				metrics.TokensRejectedTotal.WithLabelValues("invalid").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials").SetInternal(err)
			}

			if sessions != nil && id.ID != "" {
				revoked, err := sessions.IsRevoked(c.Request().Context(), id.ID)
				if err != nil {
					return fmt.Errorf("auth: %w", err)
				}
				if revoked {
					metrics.TokensRejectedTotal.WithLabelValues("revoked").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
				}
			}

			c.Set(CtxUsername, id.Subject)
			c.Set(CtxRole, id.Role)
			c.Set(CtxTokenID, id.ID)
			c.Set(CtxExpiresAt, id.ExpiresAt)

			return next(c)
		}
	}
}
