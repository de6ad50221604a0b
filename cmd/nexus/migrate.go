package main

import (
	"github.com/spf13/cobra"

	mongodb "github.com/nexus-app/marketplace/internal/infrastructure/db/mongo"
	"github.com/nexus-app/marketplace/internal/pkg/config"
	"github.com/nexus-app/marketplace/pkg/logger"
)

// migrateCommand creates the unique and lookup indexes the repositories rely
// on. It is safe to run repeatedly.
func migrateCommand(cfg **config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates MongoDB indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.Get()
			db, closeMongo := getMongo(cmd.Context(), *cfg, log)
			defer closeMongo()

			if err := mongodb.EnsureIndexes(cmd.Context(), db); err != nil {
				return err
			}
			log.Info().Str("database", db.Name()).Msg("indexes up to date")
			return nil
		},
	}
}
