package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/bazar-cloud/bazar/internal/domain"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		tolKm                  float64
	}{
		{"same point", 55.7558, 37.6173, 55.7558, 37.6173, 0, 1e-9},
		{"moscow to spb", 55.7558, 37.6173, 59.9343, 30.3351, 634, 5},
		{"one degree of latitude", 0, 0, 1, 0, 111.19, 0.5},
		{"antipodal", 0, 0, 0, 180, math.Pi * EarthRadiusKm, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm) > tt.tolKm {
				t.Errorf("Haversine() = %v km, want %v±%v", got, tt.wantKm, tt.tolKm)
			}
		})
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Point{Lat: 48.8566, Lon: 2.3522}
	b := Point{Lat: 51.5074, Lon: -0.1278}

	if d1, d2 := Distance(a, b), Distance(b, a); math.Abs(d1-d2) > 1e-9 {
		t.Errorf("Distance not symmetric: %v vs %v", d1, d2)
	}
}

func TestProximity(t *testing.T) {
	if got := Proximity(0); got != 1 {
		t.Errorf("Proximity(0) = %v, want 1", got)
	}
	if got := Proximity(1); got != 0.5 {
		t.Errorf("Proximity(1) = %v, want 0.5", got)
	}
	if got := Proximity(-3); got != 1 {
		t.Errorf("Proximity(-3) = %v, want 1 (clamped)", got)
	}

	// Strictly decreasing over increasing distance.
	prev := Proximity(0)
	for _, km := range []float64{0.1, 1, 5, 10, 100, 10_000} {
		cur := Proximity(km)
		if cur >= prev {
			t.Errorf("Proximity(%v) = %v, want < %v", km, cur, prev)
		}
		if cur <= 0 || cur > 1 {
			t.Errorf("Proximity(%v) = %v, want within (0, 1]", km, cur)
		}
		prev = cur
	}
}

func TestNewPoint(t *testing.T) {
	if _, err := NewPoint(55.75, 37.62); err != nil {
		t.Errorf("NewPoint(valid) error = %v", err)
	}

	for _, tt := range []struct {
		name     string
		lat, lon float64
	}{
		{"lat too high", 90.01, 0},
		{"lat too low", -90.01, 0},
		{"lon too high", 0, 180.01},
		{"lon too low", 0, -180.01},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPoint(tt.lat, tt.lon)
			if !errors.Is(err, domain.ErrInvalidCoordinate) {
				t.Errorf("NewPoint(%v, %v) error = %v, want ErrInvalidCoordinate", tt.lat, tt.lon, err)
			}
		})
	}

	// Boundary values are inclusive.
	for _, p := range [][2]float64{{90, 180}, {-90, -180}} {
		if _, err := NewPoint(p[0], p[1]); err != nil {
			t.Errorf("NewPoint(%v, %v) error = %v, want nil", p[0], p[1], err)
		}
	}
}
