package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nexus-app/marketplace/internal/api/metrics"
	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
)

type AccountHandler struct {
	accounts ports.AccountService
}

func NewAccountHandler(accounts ports.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// Register creates a business or service provider account.
//
// @Summary      Register a new account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /register [post]
func (h *AccountHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	kind, err := domain.ParseAccountKind(req.AccountType)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues("unknown", "rejected").Inc()
		return err
	}
	req.AccountType = string(kind)
	if err := c.Validate(&req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues(string(kind), "rejected").Inc()
		return err
	}

	_, err = h.accounts.Register(c.Request().Context(), string(kind), domain.Registration{
		Username:    req.Username,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
		ABN:         req.ABN,
		Address:     req.Address,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Trade:       req.Trade,
	})
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(string(kind), registrationResult(err)).Inc()
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(string(kind), "created").Inc()
	return c.JSON(http.StatusCreated, messageResponse{Message: "Registration successful"})
}

func registrationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrDuplicatePhoneNumber),
		errors.Is(err, domain.ErrDuplicateABN):
		return "duplicate"
	case errors.Is(err, domain.ErrVerificationFailed), errors.Is(err, domain.ErrInvalidRegistration):
		return "rejected"
	}
	return "error"
}

// Login exchanges form-encoded credentials for a bearer token.
//
// @Summary      Login
// @Tags         accounts
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      200       {object}  loginResponse
// @Failure      401       {object}  map[string]string
// @Router       /login [post]
func (h *AccountHandler) Login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	ctx := c.Request().Context()
	acc, err := h.accounts.Authenticate(ctx, form.Username, form.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		}
		return err
	}

	tok, err := h.accounts.IssueSessionToken(ctx, acc)
	if err != nil {
		return err
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues(string(acc.Kind())).Inc()
	return c.JSON(http.StatusOK, loginResponse{
		AccessToken: tok.Value,
		TokenType:   "bearer",
		Role:        string(acc.Kind()),
		ExpiresAt:   tok.ExpiresAt,
	})
}

// Profile returns the role-appropriate view of the caller's account.
//
// @Summary      Current account profile
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /profile [get]
func (h *AccountHandler) Profile(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}

	profile, err := h.accounts.Profile(c.Request().Context(), session.Subject)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "could not validate credentials")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

// Logout revokes the caller's token for the rest of its lifetime.
//
// @Summary      Logout
// @Tags         accounts
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  map[string]string
// @Router       /logout [post]
func (h *AccountHandler) Logout(c echo.Context) error {
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	if err := h.accounts.Logout(c.Request().Context(), session); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Root lists the public entry points.
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Welcome to Nexus App API",
		"endpoints": map[string]string{
			"register": "/register",
			"login":    "/login",
			"profile":  "/profile",
			"listings": "/listings",
		},
	})
}
