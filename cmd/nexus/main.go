// Package main is the nexus command line. The serve subcommand runs the HTTP
// API; migrate and token are operator tools.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	mongodb "github.com/nexus-app/marketplace/internal/infrastructure/db/mongo"
	redisstore "github.com/nexus-app/marketplace/internal/infrastructure/db/redis"
	"github.com/nexus-app/marketplace/internal/pkg/config"
	"github.com/nexus-app/marketplace/pkg/logger"
)

// getMongo connects to MongoDB and returns the database with a cleanup func
// that disconnects the client.
func getMongo(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*mongo.Database, func()) {
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Storage.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to mongodb")
	}

	return db, func() {
		log.Info().Msg("closing mongodb client...")
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn().Err(err).Msg("could not disconnect mongodb")
		}
	}
}

// getRedis connects to the session store used for logout revocation.
func getRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, func()) {
	client, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Storage.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect to redis")
	}

	return client, func() {
		log.Info().Msg("closing redis client...")
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("could not close redis client")
		}
	}
}

func main() {
	var (
		envFile string
		cfg     *config.Config
	)

	rootCmd := &cobra.Command{
		Use:           "nexus",
		Short:         "Nexus marketplace API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			loaded, err := config.Load(cmd.Context(), files...)
			if err != nil {
				return err
			}
			cfg = loaded
			logger.Init(logger.Options{
				Level:   cfg.LogLevel,
				Pretty:  !cfg.IsProduction(),
				Service: "nexus-api",
			})
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Optional dotenv file loaded before the environment")

	// cfg is filled in by PersistentPreRunE, so subcommands receive a pointer to it.
	rootCmd.AddCommand(
		serveCommand(&cfg),
		migrateCommand(&cfg),
		tokenCommand(&cfg),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("command failed")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
