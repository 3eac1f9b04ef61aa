package catalog

import (
	"context"

	"github.com/bazar-cloud/bazar/internal/domain/product"
)

// ProductStore defines the storage contract for catalog reads and the
// sold flip.
type ProductStore interface {
	Get(ctx context.Context, id string) (product.Product, error)
	List(ctx context.Context, category string, includeSold bool, limit, offset int) ([]product.Product, error)
	Count(ctx context.Context, category string, includeSold bool) (int, error)
	MarkSold(ctx context.Context, id string) error
}
