// Package search orchestrates a buyer search: vectorize the query, pull
// candidates, score and rank them, and audit the outcome.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	domsearch "github.com/bazar-cloud/bazar/internal/domain/search"
)

// DefaultCandidatePool is how many nearest listings are pulled for
// exact re-scoring when not overridden.
const DefaultCandidatePool = 200

// Service handles marketplace search.
type Service struct {
	products ProductSource
	audit    AuditLog
	embed    Embedder
	pool     int
	duration prometheus.Observer
	results  prometheus.Observer
	logger   *zap.Logger
}

// New creates a search service with the default candidate pool.
func New(products ProductSource, audit AuditLog, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		audit:    audit,
		embed:    embed,
		pool:     DefaultCandidatePool,
		logger:   logger,
	}
}

// WithCandidatePool overrides the candidate pool size.
func (s *Service) WithCandidatePool(n int) *Service {
	if n > 0 {
		s.pool = n
	}
	return s
}

// WithMetrics records search duration and result counts.
func (s *Service) WithMetrics(duration, results prometheus.Observer) *Service {
	s.duration = duration
	s.results = results
	return s
}

// Search runs the full pipeline and returns ranked matches.
// The audit write is part of the operation: a search that cannot be
// recorded fails rather than silently losing its trail.
func (s *Service) Search(ctx context.Context, q *domsearch.Query) ([]domsearch.Match, error) {
	start := time.Now()

	embRes, err := s.embed.Embed(ctx, q.Text())
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	pool := s.pool
	if pool < q.Limit() {
		pool = q.Limit()
	}

	candidates, err := s.products.Candidates(ctx, embRes.Embedding, q.Filters(), pool)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	matches := rank(q, embRes.Embedding, candidates, s.logger)

	queryID := uuid.NewString()
	durationMs := time.Since(start).Milliseconds()
	if err := s.audit.Save(ctx, queryID, *q, matches, durationMs); err != nil {
		return nil, fmt.Errorf("save search audit: %w", err)
	}

	if s.duration != nil {
		s.duration.Observe(time.Since(start).Seconds())
	}
	if s.results != nil {
		s.results.Observe(float64(len(matches)))
	}

	s.logger.Debug("Search executed",
		zap.String("query_id", queryID),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(matches)),
		zap.Int64("duration_ms", durationMs),
	)

	return matches, nil
}
