package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/pkg/token"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain and token errors to their HTTP status codes.
//   - Adds WWW-Authenticate: Bearer to every 401.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, validation, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var verr *domain.VerificationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, verr.Reason
	}

	switch {
	// Registration
	case errors.Is(err, domain.ErrUnrecognisedAccountKind):
		return http.StatusBadRequest, "unrecognised account kind"
	case errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicatePhoneNumber),
		errors.Is(err, domain.ErrDuplicateABN):
		return http.StatusConflict, rootMessage(err)
	case errors.Is(err, domain.ErrInvalidRegistration):
		return http.StatusUnprocessableEntity, err.Error()

	// Authentication
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "incorrect username or password"
	case errors.Is(err, token.ErrExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, token.ErrInvalid):
		return http.StatusUnauthorized, "could not validate credentials"
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound, "account not found"

	// Listings and applications
	case errors.Is(err, domain.ErrListingNotFound):
		return http.StatusNotFound, "listing not found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "access forbidden"
	case errors.Is(err, domain.ErrWrongAccountKind), errors.Is(err, domain.ErrNotEligible):
		return http.StatusForbidden, rootMessage(err)
	case errors.Is(err, domain.ErrAlreadyApplied):
		return http.StatusConflict, "already applied to this listing"
	case errors.Is(err, domain.ErrNotJobListing), errors.Is(err, domain.ErrInvalidListing):
		return http.StatusUnprocessableEntity, err.Error()

	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "resource already exists"

	case errors.Is(err, domain.ErrStorageUnavailable):
		log.Warn().Err(err).Str("path", c.Path()).Msg("storage unavailable")
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// rootMessage returns the innermost error text so wrapping context does not
// reach the client.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
