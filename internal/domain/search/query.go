// Package search holds the buyer query and ranked match types.
package search

import (
	"fmt"
	"strings"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/geo"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultLimit   = 10
	MaxLimit       = 50
)

// Query is a validated buyer search.
type Query struct {
	text          string
	buyerLocation *geo.Point
	filters       Filter
	maxDistanceKm float64
	limit         int
}

// New validates and normalizes search parameters.
// Defaults: limit=10, clamped to 50. A max distance without a buyer
// location is rejected since there is nothing to measure from.
func New(text string, buyerLocation *geo.Point, filters Filter, maxDistanceKm float64, limit int) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, fmt.Errorf("%w: query text is required", domain.ErrInvalidInput)
	}
	if len(text) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidInput, MaxQueryLength)
	}
	if maxDistanceKm < 0 {
		return Query{}, fmt.Errorf("%w: max distance must be non-negative", domain.ErrInvalidInput)
	}
	if maxDistanceKm > 0 && buyerLocation == nil {
		return Query{}, fmt.Errorf("%w: max distance requires a buyer location", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Query{
		text:          text,
		buyerLocation: buyerLocation,
		filters:       filters.Normalize(),
		maxDistanceKm: maxDistanceKm,
		limit:         limit,
	}, nil
}

// Text returns the query text.
func (q *Query) Text() string { return q.text }

// BuyerLocation returns the buyer coordinates and whether they are set.
func (q *Query) BuyerLocation() (geo.Point, bool) {
	if q.buyerLocation == nil {
		return geo.Point{}, false
	}
	return *q.buyerLocation, true
}

// Filters returns the exact-match pre-filters.
func (q *Query) Filters() Filter { return q.filters }

// MaxDistanceKm returns the radius filter in kilometers, 0 meaning unlimited.
func (q *Query) MaxDistanceKm() float64 { return q.maxDistanceKm }

// Limit returns the maximum results to return.
func (q *Query) Limit() int { return q.limit }
