package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lendlens/lendlens/internal/config"
	"github.com/lendlens/lendlens/internal/logger"
	"github.com/lendlens/lendlens/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long:  `Apply, roll back, or inspect the snapshot history schema.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Setup(logLevel)
		_, databaseURL, err := config.LoadWithDatabase(cfgFile)
		if err != nil {
			return err
		}
		if err := storage.RunMigrations(cmd.Context(), databaseURL); err != nil {
			slog.Error("Migration failed", "error", err)
			return err
		}
		slog.Info("Migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the last migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Setup(logLevel)
		_, databaseURL, err := config.LoadWithDatabase(cfgFile)
		if err != nil {
			return err
		}
		if err := storage.MigrateDown(cmd.Context(), databaseURL); err != nil {
			slog.Error("Rollback failed", "error", err)
			return err
		}
		slog.Info("Rolled back last migration")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Setup(logLevel)
		_, databaseURL, err := config.LoadWithDatabase(cfgFile)
		if err != nil {
			return err
		}
		return storage.MigrateStatus(cmd.Context(), databaseURL)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
