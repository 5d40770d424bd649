// Package api provides the interface for map-data providers that supply fuel
// station locations.
package api

import (
	"context"

	"github.com/andygrunwald/fuelradar/internal/geo"
	"github.com/andygrunwald/fuelradar/internal/models"
)

// Provider defines the interface for map-data providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// QueryFuelStationsInBounds returns every fuel station inside bounds.
	// Implementations must honour ctx cancellation and deadlines.
	QueryFuelStationsInBounds(ctx context.Context, bounds geo.Bounds) ([]models.RawStation, error)
}
