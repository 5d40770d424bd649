package merger

import (
	"context"
	"testing"

	"github.com/andygrunwald/fuelradar/internal/geo"
	"github.com/andygrunwald/fuelradar/internal/models"
)

type staticGhosts []models.GhostStation

func (s staticGhosts) FetchGhostStations(context.Context, geo.Bounds) []models.GhostStation {
	return s
}

var bounds = geo.Bounds{South: 33.55, West: -7.70, North: 33.62, East: -7.60}

func TestMergeDropsGhostsWithCanonicalID(t *testing.T) {
	ghosts := staticGhosts{
		{ID: "osm-node-1", Name: "Shell", Brand: models.BrandShell},
		{ID: "s2", Name: "Already promoted"},
		{ID: "osm-node-3", Name: "Winxo", Brand: models.BrandWinxo},
	}
	canonical := []models.Station{
		{ID: "s1", Name: "Shell Agdal", Prices: models.Prices{models.FuelDiesel: 13.45}},
		{ID: "s2", Name: "Afriquia Maarif", Prices: models.Prices{models.FuelDiesel: 13.40}},
	}

	got := New(ghosts).Merge(context.Background(), canonical, bounds)

	wantIDs := []string{"s1", "s2", "osm-node-1", "osm-node-3"}
	if len(got) != len(wantIDs) {
		t.Fatalf("got %d stations, want %d", len(got), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Errorf("position %d: id = %q, want %q", i, got[i].ID, id)
		}
	}

	if got[1].IsGhost || got[1].Name != "Afriquia Maarif" {
		t.Errorf("canonical station replaced by ghost: %+v", got[1])
	}
	for _, s := range got[2:] {
		if !s.IsGhost || len(s.Prices) != 0 {
			t.Errorf("ghost not projected correctly: %+v", s)
		}
	}
}

func TestMergeNeverReturnsCollidingGhost(t *testing.T) {
	ghosts := staticGhosts{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "a"}}
	canonical := []models.Station{{ID: "a"}, {ID: "c"}}

	got := New(ghosts).Merge(context.Background(), canonical, bounds)

	canonicalIDs := map[string]bool{"a": true, "c": true}
	for _, s := range got {
		if s.IsGhost && canonicalIDs[s.ID] {
			t.Errorf("ghost %q collides with a canonical id", s.ID)
		}
	}
	if len(got) != 3 {
		t.Errorf("got %d stations, want 3", len(got))
	}
}

func TestMergeKeepsDuplicatesWithDifferentIDs(t *testing.T) {
	// Same physical station under two identities: both survive.
	ghosts := staticGhosts{{ID: "osm-node-9", Location: models.Location{Lat: 33.589, Lng: -7.631}}}
	canonical := []models.Station{{ID: "s1", Location: models.Location{Lat: 33.589, Lng: -7.631}}}

	got := New(ghosts).Merge(context.Background(), canonical, bounds)
	if len(got) != 2 {
		t.Errorf("got %d stations, want 2", len(got))
	}
}

func TestMergeEmptyInputs(t *testing.T) {
	got := New(staticGhosts(nil)).Merge(context.Background(), nil, bounds)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}
