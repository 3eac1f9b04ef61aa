package search

import "github.com/bazar-cloud/bazar/internal/domain/product"

// Match is one ranked search hit.
// Distance is nil when either side lacks coordinates; in that case
// Proximity is 0 and Score equals Similarity.
type Match struct {
	Product    product.Product
	Similarity float64
	Proximity  float64
	Score      float64
	DistanceKm *float64
}
