package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/contribution"
	"github.com/andygrunwald/fuelradar/internal/engine"
	"github.com/andygrunwald/fuelradar/internal/geo"
)

const maxBodyBytes = 1 << 16

// API serves the /v1 routes.
type API struct {
	engine  *engine.Engine
	metrics *Metrics
	logger  zerolog.Logger
}

// NewAPI creates an API over e. metrics may be nil.
func NewAPI(e *engine.Engine, metrics *Metrics, logger zerolog.Logger) *API {
	return &API{
		engine:  e,
		metrics: metrics,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// Register mounts the API routes on r.
func (a *API) Register(r chi.Router) {
	r.Use(a.instrument)

	r.Get("/stations", a.handleStations)
	r.Post("/stations", a.handleAddStation)
	r.Get("/stations/nearby", a.handleNearby)
	r.Post("/reports", a.handleReport)
	r.Post("/confirmations", a.handleConfirm)
	r.Get("/users/{userID}/rewards", a.handleRewards)
	r.Get("/distance", a.handleDistance)
}

func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		if a.metrics != nil {
			a.metrics.RecordHTTPRequest(route, strconv.Itoa(status))
		}
		a.logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("handled request")
	})
}

func (a *API) handleStations(w http.ResponseWriter, r *http.Request) {
	bounds, err := parseBounds(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	stations, err := a.engine.GetStationsForViewport(r.Context(), bounds)
	if err != nil {
		a.logger.Error().Err(err).Str("bounds", bounds.Key()).Msg("failed to load viewport")
		writeError(w, http.StatusInternalServerError, errors.New("failed to load stations"))
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

func (a *API) handleNearby(w http.ResponseWriter, r *http.Request) {
	bounds, err := parseBounds(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	q := r.URL.Query()
	lat, err := parseFloat(q.Get("lat"), "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	lng, err := parseFloat(q.Get("lng"), "lng")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
	}

	nearby, err := a.engine.NearbyStations(r.Context(), geo.Point{Lat: lat, Lng: lng}, bounds, limit)
	if err != nil {
		a.logger.Error().Err(err).Str("bounds", bounds.Key()).Msg("failed to load nearby stations")
		writeError(w, http.StatusInternalServerError, errors.New("failed to load stations"))
		return
	}
	writeJSON(w, http.StatusOK, nearby)
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	var in contribution.ReportInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeResult(w, a.engine.ReportPrice(r.Context(), in), http.StatusOK)
}

func (a *API) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var in contribution.ConfirmInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeResult(w, a.engine.ConfirmPrice(r.Context(), in), http.StatusOK)
}

func (a *API) handleAddStation(w http.ResponseWriter, r *http.Request) {
	var in contribution.AddStationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeResult(w, a.engine.AddStation(r.Context(), in), http.StatusCreated)
}

func (a *API) handleRewards(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	state, err := a.engine.RewardState(r.Context(), userID)
	if err != nil {
		a.logger.Error().Err(err).Str("user", userID).Msg("failed to load reward state")
		writeError(w, http.StatusInternalServerError, errors.New("failed to load reward state"))
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) handleDistance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var coords [4]float64
	for i, name := range []string{"from_lat", "from_lng", "to_lat", "to_lng"} {
		v, err := parseFloat(q.Get(name), name)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		coords[i] = v
	}

	meters := a.engine.EstimateDistance(
		geo.Point{Lat: coords[0], Lng: coords[1]},
		geo.Point{Lat: coords[2], Lng: coords[3]},
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"meters":             meters,
		"drivingTimeMinutes": a.engine.EstimateDrivingTime(meters),
	})
}

func parseBounds(r *http.Request) (geo.Bounds, error) {
	q := r.URL.Query()
	var b geo.Bounds
	fields := []struct {
		name string
		dst  *float64
	}{
		{"south", &b.South},
		{"west", &b.West},
		{"north", &b.North},
		{"east", &b.East},
	}
	for _, f := range fields {
		v, err := parseFloat(q.Get(f.name), f.name)
		if err != nil {
			return geo.Bounds{}, err
		}
		*f.dst = v
	}
	if err := b.Validate(); err != nil {
		return geo.Bounds{}, err
	}
	return b, nil
}

func parseFloat(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("missing query parameter %q", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !geo.IsFinite(v) {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// writeResult maps a contribution result to a status code: validation
// failures are the client's fault, station write failures are upstream.
func writeResult(w http.ResponseWriter, res contribution.Result, okCode int) {
	switch {
	case res.Success:
		writeJSON(w, okCode, res)
	case errors.Is(res.Err(), contribution.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, res)
	default:
		writeJSON(w, http.StatusBadGateway, res)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
