package main

import (
	"fmt"
	"log/slog"

	"hexmap-server/internal/shared/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Connect()
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.RunMigrations(cmd.Context()); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		slog.Info("Migrations completed successfully", "driver", db.Driver())
		return nil
	},
}
