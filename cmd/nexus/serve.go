package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexus-app/marketplace/internal/api"
	"github.com/nexus-app/marketplace/internal/api/handler"
	"github.com/nexus-app/marketplace/internal/core/service"
	mongodb "github.com/nexus-app/marketplace/internal/infrastructure/db/mongo"
	redisstore "github.com/nexus-app/marketplace/internal/infrastructure/db/redis"
	"github.com/nexus-app/marketplace/internal/pkg/clock"
	"github.com/nexus-app/marketplace/internal/pkg/config"
	"github.com/nexus-app/marketplace/internal/pkg/password"
	"github.com/nexus-app/marketplace/internal/pkg/retry"
	"github.com/nexus-app/marketplace/internal/pkg/token"
	"github.com/nexus-app/marketplace/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func serveCommand(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), *cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Get()
	clk := clock.System{}

	db, closeMongo := getMongo(ctx, cfg, log)
	defer closeMongo()
	rdb, closeRedis := getRedis(ctx, cfg, log)
	defer closeRedis()

	issuer, err := token.NewIssuer(token.Config{Secret: cfg.JWT.Secret, TTL: cfg.JWT.TTL}, clk)
	if err != nil {
		return err
	}

	policy := retry.Policy{
		MaxRetries:      cfg.Storage.MaxRetries,
		InitialInterval: cfg.Storage.RetryInterval,
		MaxInterval:     retry.DefaultPolicy.MaxInterval,
	}
	if cfg.Verification.Stub {
		log.Warn().Msg("registration verification is stubbed, every registration passes")
	}

	sessions := redisstore.NewSessionDenylist(rdb, clk)
	accounts, err := service.NewAccountService(service.AccountDeps{
		Repo:       mongodb.NewAccountRepository(db, cfg.Storage.Timeout),
		Hasher:     password.NewBcrypt(cfg.Security.BcryptCost),
		Tokens:     issuer,
		Strategies: service.NewVerificationStrategies(cfg.Verification.Stub),
		Sessions:   sessions,
		Clock:      clk,
		Retry:      policy,
		Logger:     logger.Component("accounts"),
	})
	if err != nil {
		return err
	}
	listings := service.NewListingService(mongodb.NewListingRepository(db, cfg.Storage.Timeout), clk, policy, logger.Component("listings"))

	router := api.NewRouter(api.Deps{
		Accounts: accounts,
		Listings: listings,
		Tokens:   issuer,
		Sessions: sessions,
		Readiness: map[string]handler.Pinger{
			"mongo": func(ctx context.Context) error { return mongodb.Ping(ctx, db) },
			"redis": func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
		},
		Logger: logger.Component("http"),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Str("env", cfg.Env).Msg("starting webserver...")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("stopping webserver...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
