package product

import (
	"database/sql"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/bazar-cloud/bazar/internal/domain/geo"
	domprod "github.com/bazar-cloud/bazar/internal/domain/product"
)

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// nullVector scans a nullable pgvector column.
type nullVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

// scanProduct hydrates a Product from one row of productColumns.
func scanProduct(row rowScanner) (domprod.Product, error) {
	var (
		id, sellerID, name, description    string
		unit, category, district, imageURL string
		price                              float64
		quantity                           int
		lat, lon                           sql.NullFloat64
		emb                                nullVector
		active, sold                       bool
		createdAt, updatedAt               time.Time
	)

	err := row.Scan(
		&id, &sellerID, &name, &description, &price, &quantity, &unit, &category,
		&district, &imageURL, &lat, &lon, &emb, &active, &sold, &createdAt, &updatedAt,
	)
	if err != nil {
		return domprod.Product{}, err
	}

	var loc *geo.Point
	if lat.Valid && lon.Valid {
		loc = &geo.Point{Lat: lat.Float64, Lon: lon.Float64}
	}

	var vec []float32
	if emb.valid {
		vec = emb.vec.Slice()
	}

	return domprod.Reconstruct(
		id, sellerID, name, description, price, quantity, unit, category,
		district, imageURL, loc, vec, active, sold, createdAt, updatedAt,
	), nil
}

func collectProducts(rows *sql.Rows) ([]domprod.Product, error) {
	out := []domprod.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
