package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/api/overpass"
	"github.com/andygrunwald/fuelradar/internal/config"
	"github.com/andygrunwald/fuelradar/internal/database"
	"github.com/andygrunwald/fuelradar/internal/importcache"
	"github.com/andygrunwald/fuelradar/internal/store"
	"github.com/andygrunwald/fuelradar/internal/store/memory"
)

// openStore connects to PostgreSQL when a DSN is configured and falls back
// to the in-memory store otherwise. The returned close func is never nil.
func openStore(ctx context.Context, logger zerolog.Logger, recorder database.Recorder) (store.Store, func(), error) {
	if cfg.PostgresDSN == "" {
		logger.Warn().Msg("no PostgreSQL DSN configured, using in-memory store")
		return memory.New(), func() {}, nil
	}

	db, err := database.New(cfg.PostgresDSN, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrating database: %w", err)
	}
	if recorder != nil {
		db.SetRecorder(recorder)
	}

	closeFn := func() {
		if err := db.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close database")
		}
	}
	return db, closeFn, nil
}

// newGhostCache builds the Overpass-backed import cache on the configured
// backend. The returned close func is never nil.
func newGhostCache(ctx context.Context, logger zerolog.Logger) (*importcache.Cache, func(), error) {
	provider := overpass.New(logger, cfg.Provider.URL, cfg.Provider.Timeout)

	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		rs, err := importcache.NewRedisStore(ctx, importcache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to redis: %w", err)
		}
		closeFn := func() {
			if err := rs.Close(); err != nil {
				logger.Error().Err(err).Msg("failed to close redis")
			}
		}
		return importcache.New(provider, rs, cfg.Provider.Timeout, logger), closeFn, nil

	default:
		ms, err := importcache.NewMemoryStore(cfg.Cache.Size)
		if err != nil {
			return nil, nil, fmt.Errorf("creating memory cache: %w", err)
		}
		return importcache.New(provider, ms, cfg.Provider.Timeout, logger), func() {}, nil
	}
}
