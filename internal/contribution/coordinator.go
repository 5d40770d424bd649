// Package contribution turns user price reports, confirmations and new
// station submissions into station updates, audit records and rewards.
package contribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/models"
	"github.com/andygrunwald/fuelradar/internal/rewards"
	"github.com/andygrunwald/fuelradar/internal/store"
)

const (
	// InitialTrustScore seeds the trust score of user-added stations.
	InitialTrustScore = 50
	// DefaultRewardRetries bounds compare-and-set attempts on a reward row.
	DefaultRewardRetries = 5

	defaultAddress = "User Added"
	defaultCity    = "Unknown"
)

var (
	// ErrStationWriteFailed wraps store failures on the station mutation.
	ErrStationWriteFailed = errors.New("station write failed")
	// ErrInvalidInput is returned for malformed contributions.
	ErrInvalidInput = errors.New("invalid input")
)

// Recorder receives contribution outcomes. The prometheus metrics in
// internal/http implement it.
type Recorder interface {
	RecordContribution(reportType, outcome string)
	RecordDegradedWrite(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordContribution(string, string) {}
func (nopRecorder) RecordDegradedWrite(string)        {}

// Result is returned to clients after a contribution.
type Result struct {
	Success      bool   `json:"success"`
	PointsEarned int    `json:"pointsEarned"`
	Error        string `json:"error,omitempty"`
	StationID    string `json:"stationId,omitempty"`

	err error
}

// Err returns the cause of an unsuccessful result.
func (r Result) Err() error {
	return r.err
}

func failure(err error) Result {
	return Result{Success: false, PointsEarned: 0, Error: err.Error(), err: err}
}

// Coordinator is the only component that mutates canonical station state.
type Coordinator struct {
	store         store.Store
	logger        zerolog.Logger
	recorder      Recorder
	now           func() time.Time
	rewardRetries int
}

// New creates a Coordinator writing to st.
func New(st store.Store, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:         st,
		logger:        logger.With().Str("component", "contribution").Logger(),
		recorder:      nopRecorder{},
		now:           time.Now,
		rewardRetries: DefaultRewardRetries,
	}
}

// SetRecorder wires a metrics recorder.
func (c *Coordinator) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	c.recorder = r
}

// SetRewardRetries overrides how often a conflicting reward write is retried.
func (c *Coordinator) SetRewardRetries(n int) {
	if n < 1 {
		n = 1
	}
	c.rewardRetries = n
}

// SetClock overrides the time source.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// SubmitReport applies a price report or confirmation. Only a failed station
// write makes it unsuccessful; audit and reward failures are logged and the
// points are still reported.
func (c *Coordinator) SubmitReport(ctx context.Context, in ReportInput) Result {
	if err := in.Validate(); err != nil {
		c.recorder.RecordContribution(string(in.ReportType), "invalid")
		return failure(err)
	}

	points := rewards.PointsFor(in.ReportType)
	now := c.now()

	logger := c.logger.With().
		Str("user", in.UserID).
		Str("station", in.StationID).
		Str("report_type", string(in.ReportType)).
		Logger()

	if in.ReportType != models.ReportConfirm {
		if err := c.store.UpdateStationFields(ctx, in.StationID, reportUpdate(in, now)); err != nil {
			logger.Error().Err(err).Str("fuel", string(in.FuelType)).Msg("failed to update station")
			c.recorder.RecordContribution(string(in.ReportType), "station_write_failed")
			return failure(fmt.Errorf("%w: %v", ErrStationWriteFailed, err))
		}
	} else if err := c.store.UpdateStationFields(ctx, in.StationID, confirmUpdate(in, now)); err != nil {
		logger.Warn().Err(err).Msg("failed to refresh confirmed station")
		c.recorder.RecordDegradedWrite("confirm_refresh")
	}

	// Points go in before the record: reconciliation only raises rows to
	// the recorded history, so a record must never exist ahead of its award.
	if err := c.award(ctx, in.UserID, points, in.ReportType); err != nil {
		logger.Error().Err(err).Int("points", points).Msg("failed to award points")
		c.recorder.RecordDegradedWrite("reward_state")
	}

	record := models.Contribution{
		UserID:       in.UserID,
		StationID:    in.StationID,
		FuelType:     in.FuelType,
		Price:        in.Price,
		ReportType:   in.ReportType,
		PointsEarned: points,
		Timestamp:    now,
	}
	if err := c.store.InsertContribution(ctx, record); err != nil {
		logger.Warn().Err(err).Msg("failed to insert contribution record")
		c.recorder.RecordDegradedWrite("contribution_record")
	}

	c.recorder.RecordContribution(string(in.ReportType), "success")
	logger.Info().Int("points", points).Msg("contribution accepted")

	return Result{Success: true, PointsEarned: points, StationID: in.StationID}
}

// ConfirmPrice confirms the displayed price of a station. FuelType defaults
// to Diesel.
func (c *Coordinator) ConfirmPrice(ctx context.Context, in ConfirmInput) Result {
	in = in.withDefaults()
	return c.SubmitReport(ctx, ReportInput{
		UserID:     in.UserID,
		StationID:  in.StationID,
		FuelType:   in.FuelType,
		Price:      in.CurrentPrice,
		ReportType: models.ReportConfirm,
		UserName:   in.UserName,
		UserLevel:  in.UserLevel,
	})
}

// AddStation creates a canonical station with a store-issued id and rewards
// its first price as a pioneer report.
func (c *Coordinator) AddStation(ctx context.Context, in AddStationInput) Result {
	if err := in.Validate(); err != nil {
		c.recorder.RecordContribution(string(models.ReportPioneer), "invalid")
		return failure(err)
	}
	in = in.withDefaults()

	now := c.now()
	station := models.Station{
		Name:                 models.DisplayName(in.Name, in.Brand),
		Brand:                in.Brand,
		Location:             in.Location,
		Prices:               models.Prices{in.FuelType: in.Price},
		LastUpdated:          formatTime(now),
		LastUpdatedTimestamp: now.UnixMilli(),
		VerifiedBy:           verifier(in.UserName, in.UserID),
		VerifiedByLevel:      level(in.UserLevel),
		TrustScore:           InitialTrustScore,
		IsGhost:              false,
		Status:               models.StationOpen,
		Amenities:            []string{},
	}

	id, err := c.store.UpsertStation(ctx, station)
	if err != nil {
		c.logger.Error().Err(err).Str("user", in.UserID).Msg("failed to create station")
		c.recorder.RecordContribution(string(models.ReportPioneer), "station_write_failed")
		return failure(fmt.Errorf("%w: %v", ErrStationWriteFailed, err))
	}

	c.logger.Info().
		Str("station", id).
		Str("brand", string(in.Brand)).
		Str("ghost", in.GhostID).
		Msg("created station")

	result := c.SubmitReport(ctx, ReportInput{
		UserID:     in.UserID,
		StationID:  id,
		FuelType:   in.FuelType,
		Price:      in.Price,
		ReportType: models.ReportPioneer,
		UserName:   in.UserName,
		UserLevel:  in.UserLevel,
	})
	result.StationID = id
	return result
}

// PromoteGhost adds a ghost station to the canonical store. The new station
// takes the ghost's name and location but never its id.
func (c *Coordinator) PromoteGhost(ctx context.Context, ghost models.GhostStation, in AddStationInput) Result {
	in.GhostID = ghost.ID
	in.Location = ghost.Location
	if in.Name == "" {
		in.Name = ghost.Name
	}
	if in.Brand == "" {
		in.Brand = ghost.Brand
	}
	return c.AddStation(ctx, in)
}

// award applies points to the user's reward row with compare-and-set retries.
func (c *Coordinator) award(ctx context.Context, userID string, points int, reportType models.ReportType) error {
	for attempt := 1; attempt <= c.rewardRetries; attempt++ {
		state, err := c.store.GetUserRewardState(ctx, userID)
		if err != nil {
			return fmt.Errorf("reading reward state: %w", err)
		}

		next := rewards.Apply(state, points, reportType)
		err = c.store.UpdateUserRewardState(ctx, userID, next)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return fmt.Errorf("writing reward state: %w", err)
		}

		c.logger.Debug().Str("user", userID).Int("attempt", attempt).Msg("reward state changed concurrently, retrying")
	}
	return fmt.Errorf("writing reward state after %d attempts: %w", c.rewardRetries, store.ErrVersionConflict)
}

func reportUpdate(in ReportInput, now time.Time) store.StationUpdate {
	display := formatTime(now)
	ts := now.UnixMilli()
	by := verifier(in.UserName, in.UserID)
	lvl := level(in.UserLevel)
	ghost := false
	return store.StationUpdate{
		Price:                &store.PricePatch{FuelType: in.FuelType, Price: in.Price},
		LastUpdated:          &display,
		LastUpdatedTimestamp: &ts,
		VerifiedBy:           &by,
		VerifiedByLevel:      &lvl,
		IsGhost:              &ghost,
	}
}

// confirmUpdate only refreshes the verification fields; prices stay as they are.
func confirmUpdate(in ReportInput, now time.Time) store.StationUpdate {
	display := formatTime(now)
	ts := now.UnixMilli()
	by := verifier(in.UserName, in.UserID)
	return store.StationUpdate{
		LastUpdated:          &display,
		LastUpdatedTimestamp: &ts,
		VerifiedBy:           &by,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func verifier(userName, userID string) string {
	if userName != "" {
		return userName
	}
	return userID
}

func level(l int) int {
	if l < 1 {
		return 1
	}
	return l
}
