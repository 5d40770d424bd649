// Package merger combines canonical stations with imported ghost stations
// into the single list a client renders for a viewport.
package merger

import (
	"context"

	"github.com/andygrunwald/fuelradar/internal/geo"
	"github.com/andygrunwald/fuelradar/internal/models"
)

// GhostSource supplies ghost stations for a viewport. *importcache.Cache
// implements it.
type GhostSource interface {
	FetchGhostStations(ctx context.Context, bounds geo.Bounds) []models.GhostStation
}

// Merger merges canonical and ghost stations. It holds no per-call state;
// callers debounce viewport changes before calling Merge.
type Merger struct {
	ghosts GhostSource
}

// New creates a Merger reading ghosts from source.
func New(source GhostSource) *Merger {
	return &Merger{ghosts: source}
}

// Merge returns canonical stations followed by the ghosts in bounds whose id
// is not already taken by a canonical station. Both groups keep their input
// order. Identity is the only deduplication key.
func (m *Merger) Merge(ctx context.Context, canonical []models.Station, bounds geo.Bounds) []models.Station {
	ghosts := m.ghosts.FetchGhostStations(ctx, bounds)

	known := make(map[string]struct{}, len(canonical))
	for _, s := range canonical {
		known[s.ID] = struct{}{}
	}

	out := make([]models.Station, 0, len(canonical)+len(ghosts))
	out = append(out, canonical...)
	for _, g := range ghosts {
		if _, dup := known[g.ID]; dup {
			continue
		}
		out = append(out, g.Station())
	}
	return out
}
