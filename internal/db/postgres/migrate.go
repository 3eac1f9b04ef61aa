package postgres

import (
	"context"
	"fmt"
)

// schemaDDL is applied idempotently on startup. The embedding column
// dimension comes from config and must match the embedding model.
const schemaDDL = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS products (
	id            UUID PRIMARY KEY,
	seller_id     TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT '',
	price         NUMERIC(12,2) NOT NULL DEFAULT 0,
	quantity      INTEGER NOT NULL DEFAULT 1,
	unit          TEXT NOT NULL DEFAULT 'piece',
	category      TEXT NOT NULL DEFAULT 'Uncategorized',
	district      TEXT NOT NULL DEFAULT '',
	image_url     TEXT NOT NULL DEFAULT '',
	latitude      DOUBLE PRECISION,
	longitude     DOUBLE PRECISION,
	embedding     vector(%d),
	is_active     BOOLEAN NOT NULL DEFAULT TRUE,
	is_sold       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_products_category ON products (category);
CREATE INDEX IF NOT EXISTS idx_products_district ON products (district);
CREATE INDEX IF NOT EXISTS idx_products_available ON products (is_active, is_sold, created_at DESC);

CREATE TABLE IF NOT EXISTS ingestion_jobs (
	id              UUID PRIMARY KEY,
	seller_id       TEXT NOT NULL DEFAULT '',
	modality        TEXT NOT NULL,
	input_text      TEXT NOT NULL DEFAULT '',
	input_payload   BYTEA,
	input_filename  TEXT NOT NULL DEFAULT '',
	seller_lat      DOUBLE PRECISION,
	seller_lon      DOUBLE PRECISION,
	seller_district TEXT NOT NULL DEFAULT '',
	status          TEXT NOT NULL DEFAULT 'pending',
	product_id      UUID REFERENCES products(id) ON DELETE SET NULL,
	error_message   TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_status ON ingestion_jobs (status, created_at);

CREATE TABLE IF NOT EXISTS search_queries (
	id              UUID PRIMARY KEY,
	query_text      TEXT NOT NULL,
	district        TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT '',
	buyer_lat       DOUBLE PRECISION,
	buyer_lon       DOUBLE PRECISION,
	max_distance_km DOUBLE PRECISION NOT NULL DEFAULT 0,
	result_count    INTEGER NOT NULL DEFAULT 0,
	duration_ms     BIGINT NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS search_results (
	id          BIGSERIAL PRIMARY KEY,
	query_id    UUID NOT NULL REFERENCES search_queries(id) ON DELETE CASCADE,
	product_id  UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	rank        INTEGER NOT NULL,
	similarity  DOUBLE PRECISION NOT NULL,
	proximity   DOUBLE PRECISION NOT NULL,
	score       DOUBLE PRECISION NOT NULL,
	distance_km DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_search_results_query ON search_results (query_id, rank);
`

// Migrate applies the schema. Safe to run on every startup.
func (d *DB) Migrate(ctx context.Context, embeddingDim int) error {
	if embeddingDim <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", embeddingDim)
	}

	if _, err := d.db.ExecContext(ctx, fmt.Sprintf(schemaDDL, embeddingDim)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
