package ingest

import (
	"context"

	"github.com/bazar-cloud/bazar/internal/domain"
	domjob "github.com/bazar-cloud/bazar/internal/domain/job"
	"github.com/bazar-cloud/bazar/internal/domain/product"
)

// JobStore persists ingestion jobs. Transition methods are status-guarded:
// they fail with domain.ErrInvalidTransition when the job is not in the
// expected previous state, and Claim loses quietly instead.
type JobStore interface {
	Create(ctx context.Context, j *domjob.Job) error
	Get(ctx context.Context, id string) (domjob.Job, error)
	Claim(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id, productID string) error
	MarkFailed(ctx context.Context, id, reason string) error
	ListPending(ctx context.Context, limit int) ([]domjob.Job, error)
}

// ProductStore persists created listings.
type ProductStore interface {
	Create(ctx context.Context, p *product.Product) error
}

// Extractor turns raw seller input into a structured draft.
type Extractor interface {
	Extract(ctx context.Context, in domain.RawListing) (domain.Draft, error)
}

// Embedder vectorizes listing text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ImageFinder locates illustration candidates for a listing, best effort.
// No results is an empty slice, not an error.
type ImageFinder interface {
	FindImages(ctx context.Context, query string) ([]string, error)
}

// Dispatcher hands a submitted job to the background workers.
// A false return means the queue is full; the job stays pending and the
// recovery sweep picks it up later.
type Dispatcher interface {
	Dispatch(jobID string) bool
}
