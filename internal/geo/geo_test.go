package geo

import (
	"math"
	"testing"
)

func TestDistanceMetersSamePointIsZero(t *testing.T) {
	points := []Point{
		{Lat: 0, Lng: 0},
		{Lat: 33.5890, Lng: -7.6310},
		{Lat: -89.9, Lng: 179.9},
		{Lat: 400, Lng: -1000},
	}
	for _, p := range points {
		if d := DistanceMeters(p, p); d != 0 {
			t.Errorf("DistanceMeters(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceMetersSymmetric(t *testing.T) {
	pairs := [][2]Point{
		{{Lat: 33.5890, Lng: -7.6310}, {Lat: 33.5800, Lng: -7.6350}},
		{{Lat: 51.5074, Lng: -0.1278}, {Lat: 48.8566, Lng: 2.3522}},
		{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 180}},
	}
	for _, pair := range pairs {
		ab := DistanceMeters(pair[0], pair[1])
		ba := DistanceMeters(pair[1], pair[0])
		if ab != ba {
			t.Errorf("asymmetric distance: %v vs %v", ab, ba)
		}
		if ab < 0 {
			t.Errorf("negative distance %v", ab)
		}
	}
}

func TestDistanceMetersKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111195, 1},
		{"half circumference", Point{0, 0}, Point{0, 180}, math.Pi * EarthRadiusMeters, 1},
		{"london to paris", Point{51.5074, -0.1278}, Point{48.8566, 2.3522}, 343556, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceMeters(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("DistanceMeters = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestDrivingTimeMinutes(t *testing.T) {
	tests := []struct {
		meters float64
		want   int
	}{
		{0, 0},
		{1, 1},
		{100, 1},
		{500, 2},
		{4000, 9},
		{5000, 11},
	}
	for _, tt := range tests {
		if got := DrivingTimeMinutes(tt.meters); got != tt.want {
			t.Errorf("DrivingTimeMinutes(%v) = %d, want %d", tt.meters, got, tt.want)
		}
	}
}

func TestBoundsTooLargeForImport(t *testing.T) {
	tests := []struct {
		name   string
		bounds Bounds
		want   bool
	}{
		{"small", Bounds{South: 33.50, West: -7.70, North: 33.60, East: -7.60}, false},
		{"exactly limit", Bounds{South: 33.0, West: -7.5, North: 33.3, East: -7.2}, false},
		{"too tall", Bounds{South: 33.0, West: -7.70, North: 33.31, East: -7.60}, true},
		{"too wide", Bounds{South: 33.50, West: -8.0, North: 33.60, East: -7.69}, true},
		{"inverted but tall", Bounds{South: 34.0, West: -7.70, North: 33.5, East: -7.60}, true},
		{"nan edges", Bounds{South: -80, West: -170, North: math.NaN(), East: math.NaN()}, true},
		{"infinite edge", Bounds{South: 33.50, West: -7.70, North: math.Inf(1), East: -7.60}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.bounds.TooLargeForImport(); got != tt.want {
				t.Errorf("TooLargeForImport() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBoundsKey(t *testing.T) {
	a := Bounds{South: 33.5812, West: -7.6349, North: 33.6011, East: -7.6101}
	b := Bounds{South: 33.5790, West: -7.6290, North: 33.6044, East: -7.6140}
	if a.Key() != b.Key() {
		t.Errorf("expected small pan to share key: %q vs %q", a.Key(), b.Key())
	}
	if want := "33.58,-7.63,33.60,-7.61"; a.Key() != want {
		t.Errorf("Key() = %q, want %q", a.Key(), want)
	}

	c := Bounds{South: 33.62, West: -7.6349, North: 33.70, East: -7.6101}
	if a.Key() == c.Key() {
		t.Errorf("expected different keys for distinct viewports")
	}

	neg := Bounds{South: -0.001, West: -0.001, North: 0.001, East: 0.001}
	if want := "0.00,0.00,0.00,0.00"; neg.Key() != want {
		t.Errorf("Key() = %q, want %q", neg.Key(), want)
	}
}

func TestBoundsValidate(t *testing.T) {
	if err := (Bounds{South: 1, West: 1, North: 2, East: 2}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := []Bounds{
		{South: -91, West: 0, North: 0, East: 1},
		{South: 0, West: -181, North: 1, East: 1},
		{South: 2, West: 0, North: 1, East: 1},
		{South: 0, West: 2, North: 1, East: 1},
		{South: -80, West: -170, North: math.NaN(), East: math.NaN()},
		{South: math.NaN(), West: 0, North: 1, East: 1},
		{South: 0, West: math.Inf(-1), North: 1, East: 1},
	}
	for _, b := range bad {
		if err := b.Validate(); err == nil {
			t.Errorf("expected error for %+v", b)
		}
	}
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{South: 33.5, West: -7.7, North: 33.6, East: -7.6}
	if !b.Contains(Point{Lat: 33.55, Lng: -7.65}) {
		t.Error("expected point inside bounds")
	}
	if b.Contains(Point{Lat: 33.65, Lng: -7.65}) {
		t.Error("expected point outside bounds")
	}
}
