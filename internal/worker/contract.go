package worker

import (
	"context"

	domjob "github.com/bazar-cloud/bazar/internal/domain/job"
)

// Processor runs one claimed ingestion job and lists jobs awaiting one.
type Processor interface {
	Process(ctx context.Context, jobID string) (domjob.Job, error)
	PendingJobs(ctx context.Context, limit int) ([]domjob.Job, error)
}
