// Package catalog serves the read side of the marketplace: browsing
// listings and flipping them to sold.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain/product"
)

// Page is one catalog page plus the total across all pages.
type Page struct {
	Products []product.Product
	Total    int
}

// Service handles catalog browsing.
type Service struct {
	products        ProductStore
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// New creates a catalog service.
func New(products ProductStore, logger *zap.Logger) *Service {
	return &Service{
		products:        products,
		defaultPageSize: 20,
		maxPageSize:     100,
		logger:          logger,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Get returns one listing by ID.
func (s *Service) Get(ctx context.Context, id string) (product.Product, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return product.Product{}, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// List returns a catalog page, newest first. An empty category means
// all categories; sold listings are hidden unless asked for.
func (s *Service) List(ctx context.Context, category string, includeSold bool, limit, offset int) (Page, error) {
	category = strings.TrimSpace(category)
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	items, err := s.products.List(ctx, category, includeSold, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("list products: %w", err)
	}
	total, err := s.products.Count(ctx, category, includeSold)
	if err != nil {
		return Page{}, fmt.Errorf("count products: %w", err)
	}

	return Page{Products: items, Total: total}, nil
}

// MarkSold flips a listing to sold and returns the updated state.
// Sold listings drop out of search on the next request.
func (s *Service) MarkSold(ctx context.Context, id string) (product.Product, error) {
	if err := s.products.MarkSold(ctx, id); err != nil {
		return product.Product{}, err
	}

	s.logger.Info("Listing marked sold", zap.String("product_id", id))

	return s.products.Get(ctx, id)
}
