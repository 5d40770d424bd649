package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/andygrunwald/fuelradar/internal/models"
)

// GhostCache is the part of the import cache the status page reads.
type GhostCache interface {
	ProviderName() string
	ProviderStatus() models.ProviderStatus
	Status(ctx context.Context) models.CacheStatus
}

// ScheduleInfo is the part of the scheduler the status page reads.
type ScheduleInfo interface {
	IsRunning() bool
	NextReconcileAt() time.Time
	LastReconcileAt() *time.Time
}

// StationCounter is the part of the canonical store the status page reads.
type StationCounter interface {
	Ping(ctx context.Context) error
	CountStations(ctx context.Context) (int64, error)
}

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	cache     GhostCache
	scheduler ScheduleInfo
	db        StationCounter
	metrics   *Metrics
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler. scheduler and metrics may be nil.
func NewStatusHandler(cache GhostCache, sched ScheduleInfo, db StationCounter, metrics *Metrics) *StatusHandler {
	return &StatusHandler{
		cache:     cache,
		scheduler: sched,
		db:        db,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Providers:     make(map[string]models.ProviderStatus),
	}

	if h.scheduler != nil {
		response.SchedulerRunning = h.scheduler.IsRunning()
		response.LastReconcileAt = h.scheduler.LastReconcileAt()
		next := h.scheduler.NextReconcileAt()
		if !next.IsZero() {
			response.NextReconcileAt = &next
		}
	}

	if h.cache != nil {
		response.Providers[h.cache.ProviderName()] = h.cache.ProviderStatus()
		response.Cache = h.cache.Status(ctx)
	}

	response.Database = h.getDatabaseStatus(ctx)
	if !response.Database.Connected {
		response.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (h *StatusHandler) getDatabaseStatus(ctx context.Context) models.DatabaseStatus {
	status := models.DatabaseStatus{
		Connected: false,
	}

	if h.db == nil {
		return status
	}

	if err := h.db.Ping(ctx); err != nil {
		return status
	}
	status.Connected = true

	count, err := h.db.CountStations(ctx)
	if err == nil {
		status.TotalStations = count
		if h.metrics != nil {
			h.metrics.RecordStationsStored(float64(count))
		}
	}

	return status
}
