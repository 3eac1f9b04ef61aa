package search

import (
	"errors"
	"sort"

	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/geo"
	"github.com/bazar-cloud/bazar/internal/domain/product"
	domsearch "github.com/bazar-cloud/bazar/internal/domain/search"
	"github.com/bazar-cloud/bazar/internal/domain/vector"
)

// Score weights. Proximity only participates when both sides have
// coordinates; otherwise the score is the similarity alone.
const (
	similarityWeight = 0.7
	proximityWeight  = 0.3
)

// rank scores every candidate against the query and returns the top
// matches: score desc, ties broken by product ID asc for determinism.
// Candidates whose vectors do not match the query dimension are skipped.
// Candidates beyond the radius filter are dropped; candidates without
// coordinates are never dropped by the radius.
func rank(q *domsearch.Query, queryVec []float32, candidates []product.Product, logger *zap.Logger) []domsearch.Match {
	matches := make([]domsearch.Match, 0, len(candidates))
	buyer, hasBuyer := q.BuyerLocation()

	for i := range candidates {
		cand := &candidates[i]

		sim, err := vector.Cosine(queryVec, cand.Embedding())
		if err != nil {
			if errors.Is(err, domain.ErrDimensionMismatch) {
				logger.Warn("Skipping candidate with mismatched embedding",
					zap.String("product_id", cand.ID()), zap.Error(err))
				continue
			}
			logger.Warn("Skipping candidate after similarity failure",
				zap.String("product_id", cand.ID()), zap.Error(err))
			continue
		}

		m := domsearch.Match{
			Product:    *cand,
			Similarity: sim,
			Score:      sim,
		}

		if loc, ok := cand.Location(); hasBuyer && ok {
			dist := geo.Distance(buyer, loc)
			if maxKm := q.MaxDistanceKm(); maxKm > 0 && dist > maxKm {
				continue
			}
			m.DistanceKm = &dist
			m.Proximity = geo.Proximity(dist)
			m.Score = similarityWeight*sim + proximityWeight*m.Proximity
		}

		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Product.ID() < matches[j].Product.ID()
	})

	if len(matches) > q.Limit() {
		matches = matches[:q.Limit()]
	}

	return matches
}
