package bazar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Health checks the health of all system components. A degraded or
// failing report is a normal return: the server answers 503 but the
// body still describes every component. Only transport and decode
// failures return an error.
func (c *Client) Health(ctx context.Context) (HealthStatus, error) {
	resp, err := c.send(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return HealthStatus{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, apiErrorFrom(resp)
	}

	var out HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return HealthStatus{}, fmt.Errorf("bazar: decode health response: %w", err)
	}
	return out, nil
}
