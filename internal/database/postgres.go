// Package database provides the PostgreSQL canonical station store.
package database

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelradar/internal/models"
	"github.com/andygrunwald/fuelradar/internal/store"
)

//go:embed schema.sql
var schema string

// Recorder receives database operation outcomes.
type Recorder interface {
	RecordDBOperation(operation, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDBOperation(string, string) {}

// DB wraps the PostgreSQL connection and implements store.Store.
type DB struct {
	db       *sql.DB
	logger   zerolog.Logger
	recorder Recorder
}

var _ store.Store = (*DB)(nil)

// New creates a new database connection.
func New(dsn string, logger zerolog.Logger) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{
		db:       db,
		logger:   logger.With().Str("component", "database").Logger(),
		recorder: nopRecorder{},
	}, nil
}

// SetRecorder wires a metrics recorder.
func (d *DB) SetRecorder(r Recorder) {
	if r == nil {
		r = nopRecorder{}
	}
	d.recorder = r
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks if the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Migrate creates the tables if they do not exist.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

func (d *DB) observe(operation string, err error) {
	status := "success"
	if err != nil && !errors.Is(err, store.ErrNotFound) && !errors.Is(err, store.ErrVersionConflict) {
		status = "error"
	}
	d.recorder.RecordDBOperation(operation, status)
}

const stationColumns = `id, name, brand, lat, lng, address, city, prices, last_updated, last_updated_timestamp,
	verified_by, verified_by_level, trust_score, is_ghost, status, amenities, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStation(row rowScanner) (models.Station, error) {
	var s models.Station
	var brand, status string
	var prices, amenities []byte
	err := row.Scan(
		&s.ID, &s.Name, &brand, &s.Location.Lat, &s.Location.Lng, &s.Location.Address, &s.Location.City,
		&prices, &s.LastUpdated, &s.LastUpdatedTimestamp,
		&s.VerifiedBy, &s.VerifiedByLevel, &s.TrustScore, &s.IsGhost, &status, &amenities, &s.Version,
	)
	if err != nil {
		return models.Station{}, err
	}
	s.Brand = models.Brand(brand)
	s.Status = models.StationStatus(status)
	s.Prices = models.Prices{}
	if err := json.Unmarshal(prices, &s.Prices); err != nil {
		return models.Station{}, fmt.Errorf("decoding prices of %s: %w", s.ID, err)
	}
	if err := json.Unmarshal(amenities, &s.Amenities); err != nil {
		return models.Station{}, fmt.Errorf("decoding amenities of %s: %w", s.ID, err)
	}
	return s, nil
}

// GetStation returns the station with id.
func (d *DB) GetStation(ctx context.Context, id string) (s models.Station, err error) {
	defer func() { d.observe("get_station", err) }()

	row := d.db.QueryRowContext(ctx, `SELECT `+stationColumns+` FROM stations WHERE id = $1`, id)
	s, err = scanStation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Station{}, fmt.Errorf("station %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return models.Station{}, fmt.Errorf("getting station: %w", err)
	}
	return s, nil
}

// ListStations returns stations matching filter, oldest first.
func (d *DB) ListStations(ctx context.Context, filter store.Filter) (stations []models.Station, err error) {
	defer func() { d.observe("list_stations", err) }()

	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if b := filter.Bounds; b != nil {
		conds = append(conds,
			"lat >= "+arg(b.South), "lat <= "+arg(b.North),
			"lng >= "+arg(b.West), "lng <= "+arg(b.East))
	}
	if filter.Brand != "" {
		conds = append(conds, "brand = "+arg(string(filter.Brand)))
	}

	query := `SELECT ` + stationColumns + ` FROM stations`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stations: %w", err)
	}
	defer rows.Close()

	stations = make([]models.Station, 0)
	for rows.Next() {
		s, err := scanStation(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning station: %w", err)
		}
		stations = append(stations, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating stations: %w", err)
	}
	return stations, nil
}

// UpsertStation inserts s, or replaces the row with the same id.
func (d *DB) UpsertStation(ctx context.Context, s models.Station) (id string, err error) {
	defer func() { d.observe("upsert_station", err) }()

	prices := s.Prices
	if prices == nil {
		prices = models.Prices{}
	}
	pricesJSON, err := json.Marshal(prices)
	if err != nil {
		return "", fmt.Errorf("encoding prices: %w", err)
	}
	amenities := s.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	amenitiesJSON, err := json.Marshal(amenities)
	if err != nil {
		return "", fmt.Errorf("encoding amenities: %w", err)
	}

	status := s.Status
	if status == "" {
		status = models.StationOpen
	}
	args := []any{
		s.Name, string(s.Brand), s.Location.Lat, s.Location.Lng, s.Location.Address, s.Location.City,
		pricesJSON, s.LastUpdated, s.LastUpdatedTimestamp,
		s.VerifiedBy, s.VerifiedByLevel, s.TrustScore, s.IsGhost, string(status), amenitiesJSON,
	}

	var query string
	if s.ID == "" {
		query = `
			INSERT INTO stations (name, brand, lat, lng, address, city, prices, last_updated, last_updated_timestamp,
				verified_by, verified_by_level, trust_score, is_ghost, status, amenities)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING id
		`
	} else {
		query = `
			INSERT INTO stations (name, brand, lat, lng, address, city, prices, last_updated, last_updated_timestamp,
				verified_by, verified_by_level, trust_score, is_ghost, status, amenities, id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				brand = EXCLUDED.brand,
				lat = EXCLUDED.lat,
				lng = EXCLUDED.lng,
				address = EXCLUDED.address,
				city = EXCLUDED.city,
				prices = EXCLUDED.prices,
				last_updated = EXCLUDED.last_updated,
				last_updated_timestamp = EXCLUDED.last_updated_timestamp,
				verified_by = EXCLUDED.verified_by,
				verified_by_level = EXCLUDED.verified_by_level,
				trust_score = EXCLUDED.trust_score,
				is_ghost = EXCLUDED.is_ghost,
				status = EXCLUDED.status,
				amenities = EXCLUDED.amenities,
				version = stations.version + 1
			RETURNING id
		`
		args = append(args, s.ID)
	}

	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return "", fmt.Errorf("upserting station: %w", err)
	}

	d.logger.Debug().
		Str("station", id).
		Str("brand", string(s.Brand)).
		Msg("upserted station")

	return id, nil
}

// UpdateStationFields applies update in a single UPDATE statement. A price
// patch merges into the JSONB column server-side, so concurrent patches on
// different fuel types of the same station do not overwrite each other.
func (d *DB) UpdateStationFields(ctx context.Context, id string, update store.StationUpdate) (err error) {
	defer func() { d.observe("update_station", err) }()

	query, args := buildStationUpdate(id, update)
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating station: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating station: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("station %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func buildStationUpdate(id string, update store.StationUpdate) (string, []any) {
	args := []any{id}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var sets []string
	if p := update.Price; p != nil {
		sets = append(sets, fmt.Sprintf("prices = prices || jsonb_build_object(%s::text, %s::float8)",
			arg(string(p.FuelType)), arg(p.Price)))
	}
	if update.LastUpdated != nil {
		sets = append(sets, "last_updated = "+arg(*update.LastUpdated))
	}
	if update.LastUpdatedTimestamp != nil {
		sets = append(sets, "last_updated_timestamp = "+arg(*update.LastUpdatedTimestamp))
	}
	if update.VerifiedBy != nil {
		sets = append(sets, "verified_by = "+arg(*update.VerifiedBy))
	}
	if update.VerifiedByLevel != nil {
		sets = append(sets, "verified_by_level = "+arg(*update.VerifiedByLevel))
	}
	if update.IsGhost != nil {
		sets = append(sets, "is_ghost = "+arg(*update.IsGhost))
	}
	sets = append(sets, "version = version + 1")

	return "UPDATE stations SET " + strings.Join(sets, ", ") + " WHERE id = $1", args
}

// CountStations returns the total number of stations in the database.
func (d *DB) CountStations(ctx context.Context) (count int64, err error) {
	defer func() { d.observe("count_stations", err) }()

	err = d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM stations").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting stations: %w", err)
	}
	return count, nil
}

// InsertContribution appends a price report record.
func (d *DB) InsertContribution(ctx context.Context, c models.Contribution) (err error) {
	defer func() { d.observe("insert_contribution", err) }()

	query := `
		INSERT INTO price_reports (user_id, station_id, fuel_type, price, report_type, points_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	ts := c.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err = d.db.ExecContext(ctx, query,
		c.UserID,
		c.StationID,
		string(c.FuelType),
		c.Price,
		string(c.ReportType),
		c.PointsEarned,
		ts,
	)
	if err != nil {
		return fmt.Errorf("inserting contribution: %w", err)
	}

	d.logger.Debug().
		Str("user", c.UserID).
		Str("station", c.StationID).
		Str("report_type", string(c.ReportType)).
		Float64("price", c.Price).
		Msg("inserted contribution record")

	return nil
}

// ListContributions returns a user's contributions, oldest first.
func (d *DB) ListContributions(ctx context.Context, userID string) (out []models.Contribution, err error) {
	defer func() { d.observe("list_contributions", err) }()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, user_id, station_id, fuel_type, price, report_type, points_earned, created_at
		FROM price_reports
		WHERE user_id = $1
		ORDER BY id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing contributions: %w", err)
	}
	defer rows.Close()

	out = make([]models.Contribution, 0)
	for rows.Next() {
		var c models.Contribution
		var fuel, reportType string
		if err := rows.Scan(&c.ID, &c.UserID, &c.StationID, &fuel, &c.Price, &reportType, &c.PointsEarned, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning contribution: %w", err)
		}
		c.FuelType = models.FuelType(fuel)
		c.ReportType = models.ReportType(reportType)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating contributions: %w", err)
	}
	return out, nil
}

// GetUserRewardState returns the reward row of userID, or a zero state.
func (d *DB) GetUserRewardState(ctx context.Context, userID string) (s models.RewardState, err error) {
	defer func() { d.observe("get_reward_state", err) }()

	err = d.db.QueryRowContext(ctx, `
		SELECT total_points, xp, level, next_level_xp, reports_count, verified_count, version
		FROM user_rewards
		WHERE user_id = $1
	`, userID).Scan(&s.TotalPoints, &s.XP, &s.Level, &s.NextLevelXP, &s.ReportsCount, &s.VerifiedCount, &s.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RewardState{}, nil
	}
	if err != nil {
		return models.RewardState{}, fmt.Errorf("getting reward state: %w", err)
	}
	return s, nil
}

// UpdateUserRewardState writes s if the row version still equals s.Version.
// Version 0 means the row does not exist yet.
func (d *DB) UpdateUserRewardState(ctx context.Context, userID string, s models.RewardState) (err error) {
	defer func() { d.observe("update_reward_state", err) }()

	var res sql.Result
	if s.Version == 0 {
		res, err = d.db.ExecContext(ctx, `
			INSERT INTO user_rewards (user_id, total_points, xp, level, next_level_xp, reports_count, verified_count, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, 1, now())
			ON CONFLICT (user_id) DO NOTHING
		`, userID, s.TotalPoints, s.XP, s.Level, s.NextLevelXP, s.ReportsCount, s.VerifiedCount)
	} else {
		res, err = d.db.ExecContext(ctx, `
			UPDATE user_rewards SET
				total_points = $2,
				xp = $3,
				level = $4,
				next_level_xp = $5,
				reports_count = $6,
				verified_count = $7,
				version = version + 1,
				updated_at = now()
			WHERE user_id = $1 AND version = $8
		`, userID, s.TotalPoints, s.XP, s.Level, s.NextLevelXP, s.ReportsCount, s.VerifiedCount, s.Version)
	}
	if err != nil {
		return fmt.Errorf("writing reward state: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("writing reward state: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("reward state of %s: %w", userID, store.ErrVersionConflict)
	}
	return nil
}

// ListUserIDs returns every user with a reward row or a contribution.
func (d *DB) ListUserIDs(ctx context.Context) (ids []string, err error) {
	defer func() { d.observe("list_users", err) }()

	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id FROM user_rewards
		UNION
		SELECT user_id FROM price_reports
		ORDER BY 1
	`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	ids = make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return ids, nil
}
