package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/yuanjian-org/app-sub000/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the scheduled_notifications table in the queue database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, l, err := loadBase()
		if err != nil {
			return err
		}

		db, err := store.ConnectPostgres(cfg.QueueDBConfig)
		if err != nil {
			l.Error("Failed to connect to queue database", slog.Any("error", err))
			return err
		}
		defer db.Close()

		if err := store.Migrate(cmd.Context(), db); err != nil {
			l.Error("Migration failed", slog.Any("error", err))
			return err
		}
		l.Info("Migration complete")
		return nil
	},
}
