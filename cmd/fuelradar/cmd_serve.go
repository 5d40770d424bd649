package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelradar/internal/contribution"
	"github.com/andygrunwald/fuelradar/internal/engine"
	"github.com/andygrunwald/fuelradar/internal/http"
	"github.com/andygrunwald/fuelradar/internal/merger"
	"github.com/andygrunwald/fuelradar/internal/reconcile"
	"github.com/andygrunwald/fuelradar/internal/scheduler"
)

func serveCmd() *cobra.Command {
	var reconcileOnStart bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API service",
		Long:  "Starts the HTTP API with /v1 routes, /metrics, /status and /health, and a scheduler that reconciles rewards daily at the specified hour.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()

			logger.Info().
				Str("version", Version).
				Str("commit", Commit).
				Str("buildDate", BuildDate).
				Str("httpAddr", cfg.HTTPAddr).
				Int("reconcileHour", cfg.ReconcileHour).
				Str("cacheBackend", cfg.Cache.Backend).
				Msg("starting fuelradar")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			metrics := http.NewMetrics(prometheus.DefaultRegisterer)

			st, closeStore, err := openStore(ctx, logger, metrics)
			if err != nil {
				return err
			}
			defer closeStore()

			cache, closeCache, err := newGhostCache(ctx, logger)
			if err != nil {
				return err
			}
			defer closeCache()
			cache.SetRecorder(metrics)

			coordinator := contribution.New(st, logger)
			coordinator.SetRecorder(metrics)

			e := engine.New(st, merger.New(cache), coordinator, logger)

			reconciler := reconcile.New(st, logger)
			sched := scheduler.New(reconciler, cfg.ReconcileHour, reconcileOnStart, logger)

			status := http.NewStatusHandler(cache, sched, st, metrics)
			httpServer := http.NewServer(cfg.HTTPAddr, http.NewAPI(e, metrics, logger), status, metrics, logger)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			// Start HTTP server in goroutine
			go func() {
				if err := httpServer.Start(); err != nil {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			// Start scheduler in goroutine
			go func() {
				if err := sched.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("scheduler error")
					cancel()
				}
			}()

			// Wait for signal
			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			case <-ctx.Done():
			}
			cancel()

			// Graceful shutdown
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP server address for /v1, /metrics, /status")
	cmd.Flags().IntVar(&cfg.ReconcileHour, "reconcile-hour", cfg.ReconcileHour, "Hour of day (0-23) to reconcile rewards")
	cmd.Flags().BoolVar(&reconcileOnStart, "reconcile-on-start", false, "Reconcile rewards once at startup")

	return cmd
}
