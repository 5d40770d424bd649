package importcache

import (
	"strings"

	"github.com/andygrunwald/fuelradar/internal/models"
)

// GhostID derives a stable ghost id from a provider element id such as
// "node/123". Re-imports of the same element yield the same id.
func GhostID(providerID string) string {
	return "osm-" + strings.ReplaceAll(providerID, "/", "-")
}

// BuildGhost turns a raw provider record into a ghost station.
func BuildGhost(raw models.RawStation) models.GhostStation {
	brand := models.InferBrand(raw.Name, raw.Operator, raw.Brand)

	city := raw.AddressCity
	if city == "" {
		city = "Unknown"
	}

	return models.GhostStation{
		ID:    GhostID(raw.ID),
		Name:  models.DisplayName(raw.Name, brand),
		Brand: brand,
		Location: models.Location{
			Lat:     raw.Lat,
			Lng:     raw.Lng,
			Address: raw.AddressStreet,
			City:    city,
		},
		Source: raw.ID,
	}
}

// BuildGhosts converts raw records, dropping ones without an id.
func BuildGhosts(raws []models.RawStation) []models.GhostStation {
	ghosts := make([]models.GhostStation, 0, len(raws))
	for _, raw := range raws {
		if raw.ID == "" {
			continue
		}
		ghosts = append(ghosts, BuildGhost(raw))
	}
	return ghosts
}
