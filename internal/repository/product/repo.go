// Package product persists listings in Postgres with their pgvector embeddings.
package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/bazar-cloud/bazar/internal/domain"
	domprod "github.com/bazar-cloud/bazar/internal/domain/product"
	domsearch "github.com/bazar-cloud/bazar/internal/domain/search"
)

const productColumns = `id, seller_id, name, description, price, quantity, unit, category, district,
	image_url, latitude, longitude, embedding, is_active, is_sold, created_at, updated_at`

// Repo implements the product persistence contracts of the usecases.
type Repo struct {
	db *sql.DB
}

// New creates a product repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Create inserts a listing together with its embedding and coordinates.
func (r *Repo) Create(ctx context.Context, p *domprod.Product) error {
	stmt := `
		INSERT INTO products (id, seller_id, name, description, price, quantity, unit,
			category, district, image_url, latitude, longitude, embedding, is_active, is_sold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	var lat, lon sql.NullFloat64
	if pt, ok := p.Location(); ok {
		lat = sql.NullFloat64{Float64: pt.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: pt.Lon, Valid: true}
	}

	var emb any
	if p.Embedding() != nil {
		emb = pgvector.NewVector(p.Embedding())
	}

	_, err := r.db.ExecContext(ctx, stmt,
		p.ID(), p.SellerID(), p.Name(), p.Description(), p.Price(), p.Quantity(),
		p.Unit(), p.Category(), p.District(), p.ImageURL(), lat, lon, emb,
		p.Active(), p.Sold(),
	)
	if err != nil {
		return fmt.Errorf("insert product %s: %w", p.ID(), err)
	}
	return nil
}

// Get returns a listing by ID.
func (r *Repo) Get(ctx context.Context, id string) (domprod.Product, error) {
	stmt := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	p, err := scanProduct(r.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domprod.Product{}, domain.ErrProductNotFound
		}
		return domprod.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// Candidates returns the closest active unsold listings to the query
// vector, ordered by cosine distance. Listings without an embedding
// never match; inactive and sold ones are excluded here, not in the
// ranker, so they cannot leak past any filter combination.
func (r *Repo) Candidates(ctx context.Context, queryVec []float32, f domsearch.Filter, poolSize int) ([]domprod.Product, error) {
	stmt := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_active = TRUE AND is_sold = FALSE AND embedding IS NOT NULL
			AND ($2 = '' OR district = $2)
			AND ($3 = '' OR category = $3)
		ORDER BY embedding <=> $1
		LIMIT $4
	`

	rows, err := r.db.QueryContext(ctx, stmt, pgvector.NewVector(queryVec), f.District, f.Category, poolSize)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// List returns active listings, newest first. An empty category means all.
func (r *Repo) List(ctx context.Context, category string, includeSold bool, limit, offset int) ([]domprod.Product, error) {
	stmt := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_active = TRUE AND ($1 = '' OR category = $1) AND ($2 OR is_sold = FALSE)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.QueryContext(ctx, stmt, category, includeSold, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Count returns the number of listings matching the List filters.
func (r *Repo) Count(ctx context.Context, category string, includeSold bool) (int, error) {
	stmt := `SELECT COUNT(*) FROM products
		WHERE is_active = TRUE AND ($1 = '' OR category = $1) AND ($2 OR is_sold = FALSE)`

	var n int
	if err := r.db.QueryRowContext(ctx, stmt, category, includeSold).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// MarkSold flags a listing as sold.
func (r *Repo) MarkSold(ctx context.Context, id string) error {
	stmt := `UPDATE products SET is_sold = TRUE, updated_at = now() WHERE id = $1`

	res, err := r.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("mark sold %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
