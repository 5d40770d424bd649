// Package models provides shared data types for the fuel station engine.
package models

import (
	"time"
)

// FuelType is a fuel grade a station can carry a price for.
type FuelType string

const (
	// FuelDiesel is diesel fuel.
	FuelDiesel FuelType = "Diesel"
	// FuelSansPlomb is unleaded petrol.
	FuelSansPlomb FuelType = "Sans Plomb"
	// FuelPremium is premium petrol.
	FuelPremium FuelType = "Premium"
)

// FuelTypes lists every known fuel type.
var FuelTypes = []FuelType{FuelDiesel, FuelSansPlomb, FuelPremium}

// Valid reports whether f is a known fuel type.
func (f FuelType) Valid() bool {
	for _, known := range FuelTypes {
		if f == known {
			return true
		}
	}
	return false
}

// ReportType classifies a user contribution.
type ReportType string

const (
	// ReportManual is a price typed in by hand.
	ReportManual ReportType = "manual"
	// ReportScan is a price read from a photo of the price board.
	ReportScan ReportType = "scan"
	// ReportVoice is a price dictated by the user.
	ReportVoice ReportType = "voice"
	// ReportConfirm confirms the currently displayed price.
	ReportConfirm ReportType = "confirm"
	// ReportPioneer is the first price on a station the user just added.
	ReportPioneer ReportType = "pioneer"
)

// IsPriceReport reports whether t counts towards a user's reports counter.
func (t ReportType) IsPriceReport() bool {
	switch t {
	case ReportManual, ReportScan, ReportVoice, ReportPioneer:
		return true
	}
	return false
}

// StationStatus is the opening state shown for a station.
type StationStatus string

const (
	// StationOpen means the station is open.
	StationOpen StationStatus = "Open"
	// StationClosed means the station is closed.
	StationClosed StationStatus = "Closed"
)

// Location is where a station is.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
	City    string  `json:"city"`
}

// Prices maps a fuel type to its price in local currency per liter.
type Prices map[FuelType]float64

// Clone returns a copy of p that never aliases it.
func (p Prices) Clone() Prices {
	out := make(Prices, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Station is a station as rendered by clients. Canonical stations come from
// the canonical store; ghosts are projected from GhostStation.
type Station struct {
	ID                   string        `json:"id"`
	Name                 string        `json:"name"`
	Brand                Brand         `json:"brand"`
	Location             Location      `json:"location"`
	Prices               Prices        `json:"prices"`
	LastUpdated          string        `json:"lastUpdated"`
	LastUpdatedTimestamp int64         `json:"lastUpdatedTimestamp"`
	VerifiedBy           string        `json:"verifiedBy,omitempty"`
	VerifiedByLevel      int           `json:"verifiedByLevel,omitempty"`
	TrustScore           int           `json:"trustScore"`
	IsGhost              bool          `json:"isGhost"`
	Status               StationStatus `json:"status"`
	Amenities            []string      `json:"amenities"`
	// Version is bumped by the store on every write.
	Version int64 `json:"-"`
}

// GhostStation is a station imported from the map-data provider that is not
// in the canonical store. It carries no prices.
type GhostStation struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Brand    Brand    `json:"brand"`
	Location Location `json:"location"`
	// Source is the provider element the ghost was built from, e.g. "node/123".
	Source string `json:"source"`
}

// Station projects the ghost into the shape clients render.
func (g GhostStation) Station() Station {
	return Station{
		ID:                   g.ID,
		Name:                 g.Name,
		Brand:                g.Brand,
		Location:             g.Location,
		Prices:               Prices{},
		LastUpdated:          "Never",
		LastUpdatedTimestamp: 0,
		TrustScore:           0,
		IsGhost:              true,
		Status:               StationOpen,
		Amenities:            []string{},
	}
}

// RawStation is a single fuel station record as returned by a map-data provider.
type RawStation struct {
	// ID is the provider element identifier, e.g. "node/123".
	ID            string
	Name          string
	Operator      string
	Brand         string
	Lat           float64
	Lng           float64
	AddressStreet string
	AddressCity   string
}

// RewardState is a user's points and level progress.
type RewardState struct {
	TotalPoints   int   `json:"totalPoints"`
	XP            int   `json:"xp"`
	Level         int   `json:"level"`
	NextLevelXP   int   `json:"nextLevelXp"`
	ReportsCount  int   `json:"reportsCount"`
	VerifiedCount int   `json:"verifiedCount"`
	Version       int64 `json:"-"`
}

// Contribution is an append-only audit record of a single user action.
type Contribution struct {
	ID           int64      `json:"id,omitempty"`
	UserID       string     `json:"userId"`
	StationID    string     `json:"stationId"`
	FuelType     FuelType   `json:"fuelType"`
	Price        float64    `json:"price"`
	ReportType   ReportType `json:"reportType"`
	PointsEarned int        `json:"pointsEarned"`
	Timestamp    time.Time  `json:"timestamp"`
}

// ProviderStatus holds the operational status of the map-data provider.
type ProviderStatus struct {
	LastFetchAt        *time.Time `json:"last_fetch_at"`
	LastFetchSuccess   bool       `json:"last_fetch_success"`
	LastResponseTimeMs int64      `json:"last_response_time_ms"`
	LastResultCount    int        `json:"last_result_count"`
	LastError          *string    `json:"last_error"`
	TotalRequests      int64      `json:"total_requests"`
	TotalErrors        int64      `json:"total_errors"`
}

// CacheStatus holds ghost cache counters.
type CacheStatus struct {
	Backend        string `json:"backend"`
	Hits           int64  `json:"hits"`
	Misses         int64  `json:"misses"`
	GuardRejected  int64  `json:"guard_rejected"`
	EntriesInCache int    `json:"entries_in_cache"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status           string                    `json:"status"`
	UptimeSeconds    int64                     `json:"uptime_seconds"`
	SchedulerRunning bool                      `json:"scheduler_running"`
	NextReconcileAt  *time.Time                `json:"next_reconcile_at,omitempty"`
	LastReconcileAt  *time.Time                `json:"last_reconcile_at,omitempty"`
	Providers        map[string]ProviderStatus `json:"providers"`
	Cache            CacheStatus               `json:"cache"`
	Database         DatabaseStatus            `json:"database"`
}

// DatabaseStatus holds the canonical store connection status.
type DatabaseStatus struct {
	Connected     bool  `json:"connected"`
	TotalStations int64 `json:"total_stations"`
}
