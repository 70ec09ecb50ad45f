package main

import (
	"retro/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func sweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete boards older than BOARD_TTL once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			deleted, err := app.SweepOnce(cmd.Context(), &cfg, logger)
			if err != nil {
				return err
			}
			logger.Info("Sweep finished", zap.Int64("deleted", deleted))
			return nil
		},
	}
}
