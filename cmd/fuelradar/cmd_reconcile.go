package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelradar/internal/reconcile"
)

func reconcileCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run a one-time reward reconciliation",
		Long:  "Replays the recorded contributions of every user (or one user) and repairs reward state that fell behind them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			if cfg.PostgresDSN == "" {
				return errors.New("--postgres-dsn is required")
			}

			ctx := context.Background()
			st, closeStore, err := openStore(ctx, logger, nil)
			if err != nil {
				return err
			}
			defer closeStore()

			r := reconcile.New(st, logger)

			if userID != "" {
				corrected, err := r.ReconcileUser(ctx, userID)
				if err != nil {
					return fmt.Errorf("reconciling %s: %w", userID, err)
				}
				logger.Info().Str("user", userID).Bool("corrected", corrected).Msg("reconciliation completed")
				return nil
			}

			report, err := r.ReconcileAll(ctx)
			if err != nil {
				return fmt.Errorf("reconciling: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Reconcile a single user")

	return cmd
}
