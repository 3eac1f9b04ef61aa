package search

import (
	"context"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/product"
	domsearch "github.com/bazar-cloud/bazar/internal/domain/search"
)

// ProductSource supplies scoring candidates: active unsold listings
// with embeddings, closest to the query vector first. The filter is
// applied store-side so inactive listings never leave the store.
type ProductSource interface {
	Candidates(ctx context.Context, queryVec []float32, f domsearch.Filter, poolSize int) ([]product.Product, error)
}

// AuditLog persists executed searches with their ranked results.
type AuditLog interface {
	Save(ctx context.Context, queryID string, q domsearch.Query, matches []domsearch.Match, durationMs int64) error
}

// Embedder vectorizes query text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
