package bazar

import (
	"context"
	"net/http"
)

// Search runs a semantic product search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	var out SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/search", req, &out); err != nil {
		return SearchResponse{}, err
	}
	return out, nil
}

// SearchQuery is a fluent builder over Search.
type SearchQuery struct {
	c   *Client
	req SearchRequest
}

// SearchFor starts building a search for the given text.
func (c *Client) SearchFor(query string) *SearchQuery {
	return &SearchQuery{c: c, req: SearchRequest{Query: query}}
}

// Near sets the buyer location used for distance-aware ranking.
func (q *SearchQuery) Near(lat, lon float64) *SearchQuery {
	q.req.Latitude, q.req.Longitude = &lat, &lon
	return q
}

// Km caps results to sellers within the given distance. Only applies
// when Near was called.
func (q *SearchQuery) Km(maxDistance float64) *SearchQuery {
	q.req.MaxDistanceKm = maxDistance
	return q
}

// In restricts results to one district.
func (q *SearchQuery) In(district string) *SearchQuery {
	q.req.District = district
	return q
}

// Category restricts results to one product category.
func (q *SearchQuery) Category(category string) *SearchQuery {
	q.req.Category = category
	return q
}

// Limit caps the number of results.
func (q *SearchQuery) Limit(n int) *SearchQuery {
	q.req.Limit = n
	return q
}

// Do executes the search.
func (q *SearchQuery) Do(ctx context.Context) (SearchResponse, error) {
	return q.c.Search(ctx, q.req)
}
