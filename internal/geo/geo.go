// Package geo provides distance estimation and viewport bounds helpers.
package geo

import (
	"fmt"
	"math"
)

const (
	// EarthRadiusMeters is the mean earth radius used by the haversine formula.
	EarthRadiusMeters = 6371000.0
	// AverageSpeedMetersPerSecond is the assumed city driving speed (~30 km/h).
	AverageSpeedMetersPerSecond = 8.33
	// MaxImportSpanDegrees is the largest latitude or longitude span a viewport
	// may cover before ghost imports are refused.
	MaxImportSpanDegrees = 0.3
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceMeters returns the great-circle distance between a and b.
func DistanceMeters(a, b Point) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	// Rounding can push h a hair outside [0, 1] for antipodal points.
	h = math.Min(1, math.Max(0, h))
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

// DrivingTimeMinutes estimates the driving time for a distance, rounded up.
func DrivingTimeMinutes(distanceMeters float64) int {
	seconds := distanceMeters / AverageSpeedMetersPerSecond
	return int(math.Ceil(seconds / 60))
}

// Bounds is a map viewport in degrees.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// TooLargeForImport reports whether the viewport spans more than
// MaxImportSpanDegrees in either direction. A viewport with a non-finite
// edge has no measurable span and counts as too large.
func (b Bounds) TooLargeForImport() bool {
	return !b.finite() ||
		math.Abs(b.North-b.South) > MaxImportSpanDegrees ||
		math.Abs(b.East-b.West) > MaxImportSpanDegrees
}

// Contains reports whether p lies inside b. Viewports crossing the
// antimeridian are not supported.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{Lat: (b.South + b.North) / 2, Lng: (b.West + b.East) / 2}
}

// Key returns the cache key for b: every edge rounded to 2 decimals.
// Viewports that differ only by a small pan share a key.
func (b Bounds) Key() string {
	return fmt.Sprintf("%.2f,%.2f,%.2f,%.2f",
		round2(b.South), round2(b.West), round2(b.North), round2(b.East))
}

// Validate checks that b is a well-formed viewport.
func (b Bounds) Validate() error {
	switch {
	case !b.finite():
		return fmt.Errorf("bounds must be finite: %+v", b)
	case b.South < -90 || b.North > 90:
		return fmt.Errorf("latitude out of range: south=%v north=%v", b.South, b.North)
	case b.West < -180 || b.East > 180:
		return fmt.Errorf("longitude out of range: west=%v east=%v", b.West, b.East)
	case b.South > b.North:
		return fmt.Errorf("south %v is north of north %v", b.South, b.North)
	case b.West > b.East:
		return fmt.Errorf("west %v is east of east %v", b.West, b.East)
	}
	return nil
}

func (b Bounds) finite() bool {
	return IsFinite(b.South) && IsFinite(b.West) && IsFinite(b.North) && IsFinite(b.East)
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	// Avoid "-0.00" and "0.00" producing different keys.
	if r == 0 {
		return 0
	}
	return r
}
