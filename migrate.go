package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	database "github.com/FACorreiaa/catalog-api/app/db"
)

// NewMigrateCmd creates the collections and indexes in PostgreSQL.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			dbConfig, err := database.NewDatabaseConfig(cfg, logger)
			if err != nil {
				return err
			}
			if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
				logger.Error("Migrations failed", slog.Any("error", err))
				return err
			}
			cmd.Println("migrations applied")
			return nil
		},
	}
}
