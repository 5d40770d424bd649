// Package main provides the entry point for the fuelradar CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/andygrunwald/fuelradar/internal/config"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var cfg *config.Config

func main() {
	config.LoadDotEnv()
	cfg = config.DefaultConfig()
	cfg.LoadFromEnv()

	rootCmd := &cobra.Command{
		Use:   "fuelradar",
		Short: "fuelradar - Crowd-sourced fuel prices on a map",
		Long: `fuelradar merges a canonical store of fuel stations with stations imported
live from OpenStreetMap, and turns driver price reports into station updates,
points and levels.

Features:
  - Viewport queries merging canonical and imported (ghost) stations
  - Price reports, confirmations and new station submissions with rewards
  - In-memory or Redis cache for imported stations
  - Daily reward reconciliation
  - Prometheus metrics endpoint
  - Status endpoint for operational visibility`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.Validate()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string (empty uses an in-memory store)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (json, console)")
	rootCmd.PersistentFlags().StringVar(&cfg.Provider.URL, "overpass-url", cfg.Provider.URL, "Overpass interpreter endpoint")
	rootCmd.PersistentFlags().DurationVar(&cfg.Provider.Timeout, "provider-timeout", cfg.Provider.Timeout, "Timeout for a single map-data query")
	rootCmd.PersistentFlags().StringVar(&cfg.Cache.Backend, "cache-backend", cfg.Cache.Backend, "Ghost cache backend (memory, redis)")
	rootCmd.PersistentFlags().IntVar(&cfg.Cache.Size, "cache-size", cfg.Cache.Size, "Maximum entries of the in-memory ghost cache")
	rootCmd.PersistentFlags().DurationVar(&cfg.Cache.TTL, "cache-ttl", cfg.Cache.TTL, "Expiry of redis ghost cache entries")
	rootCmd.PersistentFlags().StringVar(&cfg.Cache.RedisAddr, "redis-addr", cfg.Cache.RedisAddr, "Redis address for the redis cache backend")

	// Add subcommands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(reconcileCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger() zerolog.Logger {
	var logger zerolog.Logger

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stderr).
			With().
			Timestamp().
			Logger()
	}

	return logger
}
