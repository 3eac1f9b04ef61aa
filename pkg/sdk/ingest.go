package bazar

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Ingest submits a listing for background processing and returns the
// pending job. Poll Job or use WaitForJob to observe the outcome.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (Job, error) {
	var out Job
	if err := c.do(ctx, http.MethodPost, "/api/ingest", req, &out); err != nil {
		return Job{}, err
	}
	return out, nil
}

// IngestSync submits a listing and processes it inline. The returned
// job is terminal: completed with a ProductID, or failed with the
// extraction error in ErrorMessage.
func (c *Client) IngestSync(ctx context.Context, req IngestRequest) (Job, error) {
	var out Job
	if err := c.do(ctx, http.MethodPost, "/api/ingest/sync", req, &out); err != nil {
		return Job{}, err
	}
	return out, nil
}

// Job fetches one ingestion job by ID.
func (c *Client) Job(ctx context.Context, jobID string) (Job, error) {
	var out Job
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil, &out); err != nil {
		return Job{}, err
	}
	return out, nil
}

// ResubmitJob starts a new attempt for a failed job. The returned job
// is the fresh pending one; poll it, not the original, for the outcome.
func (c *Client) ResubmitJob(ctx context.Context, jobID string) (Job, error) {
	var out Job
	if err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(jobID)+"/resubmit", nil, &out); err != nil {
		return Job{}, err
	}
	return out, nil
}

// WaitForJob polls until the job reaches a terminal status or ctx
// expires. A failed job is a normal return, not an error; check
// job.Status. A non-positive poll interval defaults to one second.
func (c *Client) WaitForJob(ctx context.Context, jobID string, poll time.Duration) (Job, error) {
	if poll <= 0 {
		poll = time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		job, err := c.Job(ctx, jobID)
		if err != nil {
			return Job{}, err
		}
		if job.Done() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, fmt.Errorf("bazar: waiting for job %s: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}
