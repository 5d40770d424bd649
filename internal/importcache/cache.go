// Package importcache caches ghost stations imported from a map-data provider,
// keyed by rounded viewport bounds.
package importcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/api"
	"github.com/andygrunwald/fuelradar/internal/geo"
	"github.com/andygrunwald/fuelradar/internal/models"
)

// DefaultFetchTimeout bounds a single provider call.
const DefaultFetchTimeout = 15 * time.Second

var (
	// ErrViewportTooLarge is returned for viewports that span more than
	// geo.MaxImportSpanDegrees. The provider is not queried.
	ErrViewportTooLarge = errors.New("viewport too large for import")
	// ErrProviderUnavailable matches every *FetchError.
	ErrProviderUnavailable = errors.New("map-data provider unavailable")
)

// FetchError reports a failed provider query.
type FetchError struct {
	Provider string
	Key      string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching ghosts from %s for %s: %v", e.Provider, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrProviderUnavailable) match.
func (e *FetchError) Is(target error) bool { return target == ErrProviderUnavailable }

// Recorder receives cache and provider observations. The prometheus metrics
// in internal/http implement it.
type Recorder interface {
	RecordProviderRequest(provider, status string, seconds float64)
	RecordCacheLookup(result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordProviderRequest(string, string, float64) {}
func (nopRecorder) RecordCacheLookup(string)                      {}

// ProviderStats holds fetch statistics for the provider.
type ProviderStats struct {
	mu               sync.RWMutex
	TotalRequests    int64
	TotalErrors      int64
	LastFetchAt      *time.Time
	LastFetchSuccess bool
	LastResponseTime time.Duration
	LastResultCount  int
	LastError        *string
}

// GetSnapshot returns a thread-safe snapshot of the stats.
func (s *ProviderStats) GetSnapshot() models.ProviderStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.ProviderStatus{
		LastFetchAt:        s.LastFetchAt,
		LastFetchSuccess:   s.LastFetchSuccess,
		LastResponseTimeMs: s.LastResponseTime.Milliseconds(),
		LastResultCount:    s.LastResultCount,
		LastError:          s.LastError,
		TotalRequests:      s.TotalRequests,
		TotalErrors:        s.TotalErrors,
	}
}

func (s *ProviderStats) record(at time.Time, d time.Duration, count int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalRequests++
	s.LastFetchAt = &at
	s.LastResponseTime = d
	if err != nil {
		s.TotalErrors++
		s.LastFetchSuccess = false
		msg := err.Error()
		s.LastError = &msg
		return
	}
	s.LastFetchSuccess = true
	s.LastError = nil
	s.LastResultCount = count
}

// Cache fetches ghost stations for a viewport, serving repeated viewports
// from a Store.
type Cache struct {
	provider api.Provider
	store    Store
	timeout  time.Duration
	logger   zerolog.Logger
	recorder Recorder
	stats    *ProviderStats

	hits          atomic.Int64
	misses        atomic.Int64
	guardRejected atomic.Int64
}

// New creates a Cache. A zero timeout selects DefaultFetchTimeout.
func New(provider api.Provider, store Store, timeout time.Duration, logger zerolog.Logger) *Cache {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Cache{
		provider: provider,
		store:    store,
		timeout:  timeout,
		logger:   logger.With().Str("component", "importcache").Str("backend", store.Name()).Logger(),
		recorder: nopRecorder{},
		stats:    &ProviderStats{},
	}
}

// SetRecorder wires a metrics recorder.
func (c *Cache) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	c.recorder = r
}

// Fetch returns the ghosts in bounds. It fails with ErrViewportTooLarge
// before touching the provider, or with a *FetchError when the provider
// fails; failed fetches are not cached so the next call retries.
func (c *Cache) Fetch(ctx context.Context, bounds geo.Bounds) ([]models.GhostStation, error) {
	if bounds.TooLargeForImport() {
		c.guardRejected.Add(1)
		c.recorder.RecordCacheLookup("rejected")
		return nil, ErrViewportTooLarge
	}

	key := bounds.Key()

	ghosts, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, fetching from provider")
	} else if ok {
		c.hits.Add(1)
		c.recorder.RecordCacheLookup("hit")
		return ghosts, nil
	}

	c.misses.Add(1)
	c.recorder.RecordCacheLookup("miss")

	fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	raws, err := c.provider.QueryFuelStationsInBounds(fetchCtx, bounds)
	duration := time.Since(start)

	c.stats.record(time.Now(), duration, len(raws), err)
	if err != nil {
		c.recorder.RecordProviderRequest(c.provider.Name(), "error", duration.Seconds())
		return nil, &FetchError{Provider: c.provider.Name(), Key: key, Err: err}
	}
	c.recorder.RecordProviderRequest(c.provider.Name(), "success", duration.Seconds())

	ghosts = BuildGhosts(raws)

	c.logger.Debug().
		Str("key", key).
		Int("count", len(ghosts)).
		Dur("duration", duration).
		Msg("imported ghost stations")

	if err := c.store.Set(ctx, key, ghosts); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}

	return ghosts, nil
}

// FetchGhostStations is Fetch with every failure collapsed into an empty
// result. Failures are logged; an oversized viewport is silent.
func (c *Cache) FetchGhostStations(ctx context.Context, bounds geo.Bounds) []models.GhostStation {
	ghosts, err := c.Fetch(ctx, bounds)
	switch {
	case err == nil:
		return ghosts
	case errors.Is(err, ErrViewportTooLarge):
		c.logger.Debug().Str("key", bounds.Key()).Msg("viewport too large, skipping import")
	default:
		c.logger.Error().Err(err).Str("key", bounds.Key()).Msg("ghost import failed")
	}
	return []models.GhostStation{}
}

// Clear empties the cache.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// ProviderName returns the name of the wrapped provider.
func (c *Cache) ProviderName() string {
	return c.provider.Name()
}

// ProviderStatus returns a snapshot of the provider fetch statistics.
func (c *Cache) ProviderStatus() models.ProviderStatus {
	return c.stats.GetSnapshot()
}

// Status returns the cache counters.
func (c *Cache) Status(ctx context.Context) models.CacheStatus {
	status := models.CacheStatus{
		Backend:       c.store.Name(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		GuardRejected: c.guardRejected.Load(),
	}
	if n, err := c.store.Len(ctx); err == nil {
		status.EntriesInCache = n
	}
	return status
}
