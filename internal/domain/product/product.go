// Package product defines the listing aggregate sold on the marketplace.
package product

import (
	"fmt"
	"time"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/geo"
)

// MaxNameLen bounds the product name length in runes.
const MaxNameLen = 200

// Product is the listing aggregate (immutable value object).
// The embedding vector is attached after creation, once the listing
// text has been vectorized.
type Product struct {
	id          string
	sellerID    string
	name        string
	description string
	price       float64
	quantity    int
	unit        string
	category    string
	district    string
	imageURL    string
	location    *geo.Point
	embedding   []float32
	active      bool
	sold        bool
	createdAt   time.Time
	updatedAt   time.Time
}

// New validates and creates a Product from a sanitized draft's fields.
// ID: non-empty (callers pass a UUID). Name: non-empty, max 200 runes.
// Price must be non-negative and quantity positive; Sanitize guarantees
// both for drafts coming out of extraction.
func New(id, sellerID, name, description string, price float64, quantity int, unit, category string) (Product, error) {
	if id == "" {
		return Product{}, fmt.Errorf("%w: product ID is required", domain.ErrInvalidInput)
	}
	if name == "" {
		return Product{}, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	if len([]rune(name)) > MaxNameLen {
		return Product{}, fmt.Errorf("%w: product name too long (max %d)", domain.ErrInvalidInput, MaxNameLen)
	}
	if price < 0 {
		return Product{}, fmt.Errorf("%w: price must be non-negative", domain.ErrInvalidInput)
	}
	if quantity < 1 {
		return Product{}, fmt.Errorf("%w: quantity must be positive", domain.ErrInvalidInput)
	}
	if unit == "" {
		return Product{}, fmt.Errorf("%w: unit is required", domain.ErrInvalidInput)
	}
	if category == "" {
		return Product{}, fmt.Errorf("%w: category is required", domain.ErrInvalidInput)
	}

	return Product{
		id:          id,
		sellerID:    sellerID,
		name:        name,
		description: description,
		price:       price,
		quantity:    quantity,
		unit:        unit,
		category:    category,
		active:      true,
	}, nil
}

// FromDraft builds a Product from a sanitized extraction draft.
func FromDraft(id, sellerID string, d domain.Draft) (Product, error) {
	p, err := New(id, sellerID, d.Name, d.Description, d.Price, d.Quantity, d.Unit, d.Category)
	if err != nil {
		return Product{}, err
	}
	p.imageURL = d.ImageURL
	return p, nil
}

// Reconstruct creates a Product without validation (storage hydration).
func Reconstruct(
	id, sellerID, name, description string, price float64, quantity int,
	unit, category, district, imageURL string, location *geo.Point,
	embedding []float32, active, sold bool, createdAt, updatedAt time.Time,
) Product {
	return Product{
		id: id, sellerID: sellerID, name: name, description: description,
		price: price, quantity: quantity, unit: unit, category: category,
		district: district, imageURL: imageURL, location: location,
		embedding: embedding, active: active, sold: sold,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the product identifier.
func (p *Product) ID() string { return p.id }

// SellerID returns the owning seller identifier, empty for anonymous listings.
func (p *Product) SellerID() string { return p.sellerID }

// Name returns the product name.
func (p *Product) Name() string { return p.name }

// Description returns the free-form description.
func (p *Product) Description() string { return p.description }

// Price returns the unit price.
func (p *Product) Price() float64 { return p.price }

// Quantity returns how many units are offered.
func (p *Product) Quantity() int { return p.quantity }

// Unit returns the sale unit (kg, piece, litre).
func (p *Product) Unit() string { return p.unit }

// Category returns the product category.
func (p *Product) Category() string { return p.category }

// District returns the seller's district, empty when unknown.
func (p *Product) District() string { return p.district }

// ImageURL returns the illustration URL, empty when none was found.
func (p *Product) ImageURL() string { return p.imageURL }

// Location returns the listing coordinates and whether they are set.
func (p *Product) Location() (geo.Point, bool) {
	if p.location == nil {
		return geo.Point{}, false
	}
	return *p.location, true
}

// Embedding returns the listing embedding vector.
func (p *Product) Embedding() []float32 { return p.embedding }

// Active reports whether the listing is visible at all.
func (p *Product) Active() bool { return p.active }

// Sold reports whether the listing has been marked sold.
func (p *Product) Sold() bool { return p.sold }

// CreatedAt returns the creation timestamp (zero until persisted).
func (p *Product) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last modification timestamp (zero until persisted).
func (p *Product) UpdatedAt() time.Time { return p.updatedAt }

// EmbeddingText композит для векторизации: имя, описание и категория одной строкой.
// Queries and listings must go through the same composition to share the space.
func (p *Product) EmbeddingText() string {
	return fmt.Sprintf("%s %s %s", p.name, p.description, p.category)
}

// SetEmbedding sets the vector in place (mutation).
func (p *Product) SetEmbedding(v []float32) { p.embedding = v }

// SetLocation attaches validated coordinates in place.
func (p *Product) SetLocation(pt geo.Point) { p.location = &pt }

// SetDistrict attaches the seller's district in place.
func (p *Product) SetDistrict(d string) { p.district = d }

// SetImageURL attaches an illustration URL in place.
func (p *Product) SetImageURL(u string) { p.imageURL = u }

// MarkSold flags the listing as sold in place.
func (p *Product) MarkSold() { p.sold = true }
