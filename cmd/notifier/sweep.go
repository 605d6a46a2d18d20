package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Send due scheduled notifications once and exit",
	Long: `Runs a single sweep of the scheduled-notification queue. Use it from an
external scheduler such as cron instead of the loop built into serve.`,
	RunE: runSweep,
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, l, err := loadBase()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg, l)
	if err != nil {
		l.Error("Failed to initialize", slog.Any("error", err))
		return err
	}
	defer a.Close()

	if err := a.scheduledSvc.Sweep(cmd.Context()); err != nil {
		l.Error("Sweep finished with errors", slog.Any("error", err))
		return err
	}
	l.Info("Sweep finished")
	return nil
}
