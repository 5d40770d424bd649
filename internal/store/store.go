// Package store defines the canonical station store consumed by the engine.
package store

import (
	"context"
	"errors"

	"github.com/andygrunwald/fuelradar/internal/geo"
	"github.com/andygrunwald/fuelradar/internal/models"
)

var (
	// ErrNotFound is returned when a station does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned by a compare-and-set write whose expected
	// version no longer matches the stored row.
	ErrVersionConflict = errors.New("version conflict")
)

// Filter narrows ListStations.
type Filter struct {
	// Bounds restricts results to stations inside the viewport.
	Bounds *geo.Bounds
	// Brand restricts results to one brand when set.
	Brand models.Brand
	// Limit caps the number of results when positive.
	Limit int
}

// Matches reports whether s passes the filter, ignoring Limit.
func (f Filter) Matches(s models.Station) bool {
	if f.Bounds != nil && !f.Bounds.Contains(geo.Point{Lat: s.Location.Lat, Lng: s.Location.Lng}) {
		return false
	}
	if f.Brand != "" && s.Brand != f.Brand {
		return false
	}
	return true
}

// PricePatch replaces the price of a single fuel type.
type PricePatch struct {
	FuelType models.FuelType
	Price    float64
}

// StationUpdate is a partial station update. Nil fields are left untouched.
// Stores apply it as one atomic write so concurrent updates to different
// fuel types of the same station are never lost.
type StationUpdate struct {
	Price                *PricePatch
	LastUpdated          *string
	LastUpdatedTimestamp *int64
	VerifiedBy           *string
	VerifiedByLevel      *int
	IsGhost              *bool
}

// Store is the canonical station store.
type Store interface {
	GetStation(ctx context.Context, id string) (models.Station, error)
	ListStations(ctx context.Context, filter Filter) ([]models.Station, error)
	// UpsertStation inserts s, assigning a new id when s.ID is empty, or
	// replaces the station with the same id. It returns the station id.
	UpsertStation(ctx context.Context, s models.Station) (string, error)
	UpdateStationFields(ctx context.Context, id string, update StationUpdate) error
	CountStations(ctx context.Context) (int64, error)

	InsertContribution(ctx context.Context, c models.Contribution) error
	// ListContributions returns a user's contributions, oldest first.
	ListContributions(ctx context.Context, userID string) ([]models.Contribution, error)

	// GetUserRewardState returns the stored state, or a zero state with
	// Version 0 for a user without a reward row.
	GetUserRewardState(ctx context.Context, userID string) (models.RewardState, error)
	// UpdateUserRewardState writes state if the stored version still equals
	// state.Version, and fails with ErrVersionConflict otherwise.
	UpdateUserRewardState(ctx context.Context, userID string, state models.RewardState) error
	ListUserIDs(ctx context.Context) ([]string, error)

	Ping(ctx context.Context) error
}
