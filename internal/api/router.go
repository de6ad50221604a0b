package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nexus-app/marketplace/internal/api/handler"
	"github.com/nexus-app/marketplace/internal/api/middleware"
	"github.com/nexus-app/marketplace/internal/core/domain"
	"github.com/nexus-app/marketplace/internal/core/ports"
)

// Deps are the collaborators the HTTP layer needs. Readiness maps a
// dependency name to its ping.
type Deps struct {
	Accounts  ports.AccountService
	Listings  ports.ListingService
	Tokens    ports.TokenValidator
	Sessions  ports.SessionRevoker
	Readiness map[string]handler.Pinger
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := d.Logger.Info()
			if v.Error != nil {
				ev = d.Logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	}))

	// --- Dependencies ---
	accountHandler := handler.NewAccountHandler(d.Accounts)
	listingHandler := handler.NewListingHandler(d.Listings, d.Accounts)
	auth := middleware.Auth(d.Tokens, d.Sessions)

	// --- Public routes ---
	e.GET("/", handler.Root)
	e.POST("/register", accountHandler.Register)
	e.POST("/login", accountHandler.Login)
	e.GET("/listings", listingHandler.List)
	e.GET("/listings/:id", listingHandler.Get)

	// --- Authenticated routes ---
	e.GET("/profile", accountHandler.Profile, auth)
	e.POST("/logout", accountHandler.Logout, auth)

	e.POST("/listings", listingHandler.Create, auth)
	e.DELETE("/listings/:id", listingHandler.Delete, auth)
	e.POST("/listings/:id/applications", listingHandler.Apply, auth, middleware.RBAC(domain.KindServiceProvider))
	e.GET("/listings/:id/applications", listingHandler.Applications, auth, middleware.RBAC(domain.KindBusiness))

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Readiness)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
