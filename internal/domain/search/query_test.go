package search

import (
	"errors"
	"strings"
	"testing"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/geo"
)

func TestNewQuery(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		q, err := New("fresh milk", nil, Filter{}, 0, 0)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if q.Limit() != DefaultLimit {
			t.Errorf("Limit() = %d, want %d", q.Limit(), DefaultLimit)
		}
		if _, ok := q.BuyerLocation(); ok {
			t.Error("BuyerLocation() present without coordinates")
		}
	})

	t.Run("limit clamped", func(t *testing.T) {
		q, err := New("milk", nil, Filter{}, 0, 500)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if q.Limit() != MaxLimit {
			t.Errorf("Limit() = %d, want %d", q.Limit(), MaxLimit)
		}
	})

	t.Run("text trimmed", func(t *testing.T) {
		q, err := New("  bike \n", nil, Filter{}, 0, 5)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if q.Text() != "bike" {
			t.Errorf("Text() = %q, want %q", q.Text(), "bike")
		}
	})

	t.Run("filters normalized", func(t *testing.T) {
		q, err := New("milk", nil, Filter{District: " Arbat ", Category: ""}, 0, 5)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		f := q.Filters()
		if f.District != "Arbat" || f.Category != "" {
			t.Errorf("Filters() = %+v", f)
		}
		if f.Empty() {
			t.Error("Empty() = true with a district set")
		}
	})

	t.Run("with location and radius", func(t *testing.T) {
		loc := &geo.Point{Lat: 55.75, Lon: 37.62}
		q, err := New("bike", loc, Filter{}, 10, 5)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if pt, ok := q.BuyerLocation(); !ok || pt.Lat != 55.75 {
			t.Errorf("BuyerLocation() = %+v, %v", pt, ok)
		}
		if q.MaxDistanceKm() != 10 {
			t.Errorf("MaxDistanceKm() = %v, want 10", q.MaxDistanceKm())
		}
	})

	invalid := []struct {
		name string
		fn   func() (Query, error)
	}{
		{"empty text", func() (Query, error) { return New("", nil, Filter{}, 0, 10) }},
		{"whitespace text", func() (Query, error) { return New("   \t ", nil, Filter{}, 0, 10) }},
		{"text too long", func() (Query, error) { return New(strings.Repeat("q", MaxQueryLength+1), nil, Filter{}, 0, 10) }},
		{"negative radius", func() (Query, error) { return New("x", &geo.Point{}, Filter{}, -1, 10) }},
		{"radius without location", func() (Query, error) { return New("x", nil, Filter{}, 5, 10) }},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("New() error = %v, want ErrInvalidInput", err)
			}
		})
	}
}
