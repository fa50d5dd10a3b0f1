package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"waste-fleet-monitor/internal/infrastructure/database/postgres"
	"waste-fleet-monitor/internal/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := postgres.NewDB(cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		return db.Migrate()
	},
}
