package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	appLogger "github.com/FACorreiaa/catalog-api/app/logger"
	"github.com/FACorreiaa/catalog-api/config"
)

var configFile string

// NewRootCmd creates the root command. Running it without a subcommand
// starts the API server.
func NewRootCmd() *cobra.Command {
	serve := NewServeCmd()
	cmd := &cobra.Command{
		Use:          "catalog",
		Short:        "Catalog API for brands, merchants and support tickets",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(serve)
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewExportCmd())
	return cmd
}

// loadConfig reads .env and the config file, and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig(configFile)
	if err != nil {
		return nil, nil, err
	}

	logger := appLogger.New(cfg.Mode, os.Stdout)
	slog.SetDefault(logger)
	return &cfg, logger, nil
}
