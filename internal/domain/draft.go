package domain

import (
	"fmt"
	"math"
	"strings"
)

// Defaults applied when the extraction provider leaves a field blank or junk.
const (
	DefaultUnit     = "piece"
	DefaultCategory = "Uncategorized"
)

// Draft is the structured listing produced by an extraction provider.
// It is not yet a Product: fields may be missing or malformed and go
// through Sanitize before anything persists.
type Draft struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unit        string  `json:"unit"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// Sanitize repairs recoverable defects and rejects unrecoverable ones.
// Только отсутствие имени фатально; остальные поля чинятся дефолтами.
func (d Draft) Sanitize() (Draft, error) {
	out := d

	out.Name = strings.TrimSpace(out.Name)
	if out.Name == "" {
		return Draft{}, fmt.Errorf("%w: draft has no product name", ErrInvalidInput)
	}

	out.Description = strings.TrimSpace(out.Description)

	if out.Price < 0 || math.IsNaN(out.Price) || math.IsInf(out.Price, 0) {
		out.Price = 0
	}
	if out.Quantity < 1 {
		out.Quantity = 1
	}

	out.Unit = strings.TrimSpace(out.Unit)
	if out.Unit == "" {
		out.Unit = DefaultUnit
	}

	out.Category = strings.TrimSpace(out.Category)
	if out.Category == "" {
		out.Category = DefaultCategory
	}

	out.ImageURL = strings.TrimSpace(out.ImageURL)

	return out, nil
}
