// Package searchlog records executed searches and their ranked results,
// the audit trail behind relevance debugging.
package searchlog

import (
	"context"
	"database/sql"
	"fmt"

	domsearch "github.com/bazar-cloud/bazar/internal/domain/search"
)

// Repo implements the audit log contract of the search usecase.
type Repo struct {
	db *sql.DB
}

// New creates a search log repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Save writes the query and all its ranked results in one transaction.
// Either the whole search is audited or none of it is.
func (r *Repo) Save(ctx context.Context, queryID string, q domsearch.Query, matches []domsearch.Match, durationMs int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var buyerLat, buyerLon *float64
	if pt, ok := q.BuyerLocation(); ok {
		buyerLat, buyerLon = &pt.Lat, &pt.Lon
	}

	queryStmt := `
		INSERT INTO search_queries (id, query_text, district, category, buyer_lat, buyer_lon,
			max_distance_km, result_count, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	f := q.Filters()
	_, err = tx.ExecContext(ctx, queryStmt,
		queryID, q.Text(), f.District, f.Category, buyerLat, buyerLon,
		q.MaxDistanceKm(), len(matches), durationMs,
	)
	if err != nil {
		return fmt.Errorf("insert search query %s: %w", queryID, err)
	}

	resultStmt := `
		INSERT INTO search_results (query_id, product_id, rank, similarity, proximity, score, distance_km)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, m := range matches {
		// rank is 1-based in the audit log
		_, err = tx.ExecContext(ctx, resultStmt,
			queryID, m.Product.ID(), i+1, m.Similarity, m.Proximity, m.Score, m.DistanceKm,
		)
		if err != nil {
			return fmt.Errorf("insert search result %s/%d: %w", queryID, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit tx: %w", err)
	}
	return nil
}
