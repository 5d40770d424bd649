package contribution

import (
	"fmt"

	"github.com/andygrunwald/fuelradar/internal/models"
)

// ReportInput is a single price report or confirmation.
type ReportInput struct {
	UserID     string            `json:"userId"`
	StationID  string            `json:"stationId"`
	FuelType   models.FuelType   `json:"fuelType"`
	Price      float64           `json:"price"`
	ReportType models.ReportType `json:"reportType"`
	UserName   string            `json:"userName,omitempty"`
	UserLevel  int               `json:"userLevel,omitempty"`
}

// Validate checks the fields a report needs. Confirmations carry no new
// price and skip the price checks. Unknown report types are accepted.
func (in ReportInput) Validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if in.StationID == "" {
		return fmt.Errorf("%w: station id is required", ErrInvalidInput)
	}
	if in.ReportType == models.ReportConfirm {
		return nil
	}
	if !in.FuelType.Valid() {
		return fmt.Errorf("%w: unknown fuel type %q", ErrInvalidInput, in.FuelType)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive, got %v", ErrInvalidInput, in.Price)
	}
	return nil
}

// ConfirmInput confirms the price currently shown for a station.
type ConfirmInput struct {
	UserID       string          `json:"userId"`
	StationID    string          `json:"stationId"`
	FuelType     models.FuelType `json:"fuelType,omitempty"`
	CurrentPrice float64         `json:"currentPrice,omitempty"`
	UserName     string          `json:"userName,omitempty"`
	UserLevel    int             `json:"userLevel,omitempty"`
}

func (in ConfirmInput) withDefaults() ConfirmInput {
	if in.FuelType == "" {
		in.FuelType = models.FuelDiesel
	}
	return in
}

// AddStationInput describes a station submitted by a user.
type AddStationInput struct {
	UserID    string          `json:"userId"`
	UserName  string          `json:"userName"`
	UserLevel int             `json:"userLevel"`
	Name      string          `json:"name,omitempty"`
	Brand     models.Brand    `json:"brand"`
	Location  models.Location `json:"location"`
	// FuelType defaults to Diesel.
	FuelType models.FuelType `json:"fuelType,omitempty"`
	Price    float64         `json:"price"`
	// GhostID is set when the station promotes an imported ghost.
	GhostID string `json:"ghostId,omitempty"`
}

// Validate checks the fields needed to create a station.
func (in AddStationInput) Validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if in.Location.Lat < -90 || in.Location.Lat > 90 || in.Location.Lng < -180 || in.Location.Lng > 180 {
		return fmt.Errorf("%w: location out of range (%v, %v)", ErrInvalidInput, in.Location.Lat, in.Location.Lng)
	}
	if in.FuelType != "" && !in.FuelType.Valid() {
		return fmt.Errorf("%w: unknown fuel type %q", ErrInvalidInput, in.FuelType)
	}
	if in.Price <= 0 {
		return fmt.Errorf("%w: price must be positive, got %v", ErrInvalidInput, in.Price)
	}
	return nil
}

func (in AddStationInput) withDefaults() AddStationInput {
	if in.FuelType == "" {
		in.FuelType = models.FuelDiesel
	}
	if in.Brand == "" {
		in.Brand = models.BrandOther
	} else {
		in.Brand = models.ParseBrand(string(in.Brand))
	}
	if in.Location.Address == "" {
		in.Location.Address = defaultAddress
	}
	if in.Location.City == "" {
		in.Location.City = defaultCity
	}
	return in
}
