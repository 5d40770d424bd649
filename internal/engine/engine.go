// Package engine exposes the station aggregation and contribution operations
// consumed by the HTTP transport and the CLI.
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/contribution"
	"github.com/andygrunwald/fuelradar/internal/geo"
	"github.com/andygrunwald/fuelradar/internal/merger"
	"github.com/andygrunwald/fuelradar/internal/models"
	"github.com/andygrunwald/fuelradar/internal/rewards"
	"github.com/andygrunwald/fuelradar/internal/store"
)

// NearbyStation is a station annotated with its distance from an origin.
type NearbyStation struct {
	models.Station
	DistanceMeters     float64 `json:"distanceMeters"`
	DrivingTimeMinutes int     `json:"drivingTimeMinutes"`
}

// Engine wires the merger and the contribution coordinator over one store.
type Engine struct {
	store       store.Store
	merger      *merger.Merger
	coordinator *contribution.Coordinator
	logger      zerolog.Logger
}

// New creates an Engine.
func New(st store.Store, m *merger.Merger, c *contribution.Coordinator, logger zerolog.Logger) *Engine {
	return &Engine{
		store:       st,
		merger:      m,
		coordinator: c,
		logger:      logger.With().Str("component", "engine").Logger(),
	}
}

// GetStationsForViewport returns canonical stations in bounds followed by
// the imported ghosts that no canonical station already covers.
func (e *Engine) GetStationsForViewport(ctx context.Context, bounds geo.Bounds) ([]models.Station, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	canonical, err := e.store.ListStations(ctx, store.Filter{Bounds: &bounds})
	if err != nil {
		return nil, fmt.Errorf("listing canonical stations: %w", err)
	}

	stations := e.merger.Merge(ctx, canonical, bounds)

	e.logger.Debug().
		Str("bounds", bounds.Key()).
		Int("canonical", len(canonical)).
		Int("ghosts", len(stations)-len(canonical)).
		Msg("served viewport")

	return stations, nil
}

// NearbyStations returns the viewport's stations sorted by distance from
// origin. A positive limit caps the result.
func (e *Engine) NearbyStations(ctx context.Context, origin geo.Point, bounds geo.Bounds, limit int) ([]NearbyStation, error) {
	stations, err := e.GetStationsForViewport(ctx, bounds)
	if err != nil {
		return nil, err
	}

	nearby := make([]NearbyStation, 0, len(stations))
	for _, s := range stations {
		d := e.EstimateDistance(origin, geo.Point{Lat: s.Location.Lat, Lng: s.Location.Lng})
		nearby = append(nearby, NearbyStation{
			Station:            s,
			DistanceMeters:     d,
			DrivingTimeMinutes: e.EstimateDrivingTime(d),
		})
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceMeters < nearby[j].DistanceMeters
	})

	if limit > 0 && len(nearby) > limit {
		nearby = nearby[:limit]
	}
	return nearby, nil
}

// ReportPrice submits a price report or confirmation.
func (e *Engine) ReportPrice(ctx context.Context, in contribution.ReportInput) contribution.Result {
	return e.coordinator.SubmitReport(ctx, in)
}

// ConfirmPrice confirms the displayed price of a station.
func (e *Engine) ConfirmPrice(ctx context.Context, in contribution.ConfirmInput) contribution.Result {
	return e.coordinator.ConfirmPrice(ctx, in)
}

// AddStation creates a user-submitted station.
func (e *Engine) AddStation(ctx context.Context, in contribution.AddStationInput) contribution.Result {
	return e.coordinator.AddStation(ctx, in)
}

// PromoteGhost turns an imported ghost into a canonical station.
func (e *Engine) PromoteGhost(ctx context.Context, ghost models.GhostStation, in contribution.AddStationInput) contribution.Result {
	return e.coordinator.PromoteGhost(ctx, ghost, in)
}

// RewardState returns a user's points and level progress. Users who never
// contributed get the initial state.
func (e *Engine) RewardState(ctx context.Context, userID string) (models.RewardState, error) {
	state, err := e.store.GetUserRewardState(ctx, userID)
	if err != nil {
		return models.RewardState{}, fmt.Errorf("reading reward state: %w", err)
	}
	if state.Version == 0 {
		return rewards.InitialState(), nil
	}
	return state, nil
}

// EstimateDistance returns the great-circle distance in meters.
func (e *Engine) EstimateDistance(a, b geo.Point) float64 {
	return geo.DistanceMeters(a, b)
}

// EstimateDrivingTime returns whole minutes to drive meters at urban speed.
func (e *Engine) EstimateDrivingTime(meters float64) int {
	return geo.DrivingTimeMinutes(meters)
}
