// Package ingest runs the listing pipeline: a seller submission becomes a
// pending job, a worker claims it, the AI provider extracts a draft, and a
// published product comes out the other end.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/domain"
	domjob "github.com/bazar-cloud/bazar/internal/domain/job"
	"github.com/bazar-cloud/bazar/internal/domain/product"
)

// Service handles the ingestion job lifecycle.
type Service struct {
	jobs      JobStore
	products  ProductStore
	extract   Extractor
	embed     Embedder
	images    ImageFinder
	dispatch  Dispatcher
	jobsTotal *prometheus.CounterVec
	logger    *zap.Logger
}

// New creates an ingestion service. Image enrichment and dispatch are
// wired separately because both are optional.
func New(jobs JobStore, products ProductStore, extract Extractor, embed Embedder, logger *zap.Logger) *Service {
	return &Service{
		jobs:     jobs,
		products: products,
		extract:  extract,
		embed:    embed,
		logger:   logger,
	}
}

// WithImageFinder enables best-effort illustration lookup for drafts
// that come back without an image.
func (s *Service) WithImageFinder(f ImageFinder) *Service {
	s.images = f
	return s
}

// WithDispatcher routes submitted jobs to background workers. Without
// one, jobs stay pending until processed explicitly.
func (s *Service) WithDispatcher(d Dispatcher) *Service {
	s.dispatch = d
	return s
}

// WithMetrics counts finished jobs by outcome.
// jobsTotal is a counter vec with label "status" ("completed"/"failed").
func (s *Service) WithMetrics(jobsTotal *prometheus.CounterVec) *Service {
	s.jobsTotal = jobsTotal
	return s
}

// Submit validates the input, persists a pending job and hands it to the
// workers. The returned job is what the seller polls.
func (s *Service) Submit(ctx context.Context, sellerID string, in domain.RawListing, seller domjob.SellerContext) (domjob.Job, error) {
	j, err := domjob.New(uuid.NewString(), sellerID, in, seller)
	if err != nil {
		return domjob.Job{}, err
	}

	if err := s.jobs.Create(ctx, &j); err != nil {
		return domjob.Job{}, fmt.Errorf("create job: %w", err)
	}

	if s.dispatch != nil && !s.dispatch.Dispatch(j.ID()) {
		s.logger.Warn("Dispatch queue full, job stays pending for the sweep",
			zap.String("job_id", j.ID()))
	}

	return j, nil
}

// Process claims a pending job and runs it to a terminal status.
// The returned job reflects the outcome; extraction and embedding
// failures are captured in the job rather than returned, so the error
// is only for claim and storage problems.
func (s *Service) Process(ctx context.Context, jobID string) (domjob.Job, error) {
	claimed, err := s.jobs.Claim(ctx, jobID)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		j, err := s.jobs.Get(ctx, jobID)
		if err != nil {
			return domjob.Job{}, err
		}
		return domjob.Job{}, domain.NewInvalidTransition(string(j.Status()), string(domjob.StatusProcessing))
	}

	j, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return domjob.Job{}, fmt.Errorf("load claimed job: %w", err)
	}

	p, procErr := s.buildProduct(ctx, &j)
	if procErr != nil {
		return s.finishFailed(ctx, jobID, procErr)
	}

	if err := s.products.Create(ctx, p); err != nil {
		return s.finishFailed(ctx, jobID, fmt.Errorf("save product: %w", err))
	}

	if err := s.jobs.MarkCompleted(ctx, jobID, p.ID()); err != nil {
		return domjob.Job{}, fmt.Errorf("complete job: %w", err)
	}
	s.countOutcome(domjob.StatusCompleted)

	s.logger.Info("Ingestion job completed",
		zap.String("job_id", jobID),
		zap.String("product_id", p.ID()),
		zap.String("modality", j.Input().Modality.String()),
	)

	return s.jobs.Get(ctx, jobID)
}

// buildProduct runs extraction, sanitation, enrichment and embedding.
func (s *Service) buildProduct(ctx context.Context, j *domjob.Job) (*product.Product, error) {
	draft, err := s.extract.Extract(ctx, j.Input())
	if err != nil {
		return nil, fmt.Errorf("extract draft: %w", err)
	}

	draft, err = draft.Sanitize()
	if err != nil {
		return nil, fmt.Errorf("sanitize draft: %w", err)
	}

	p, err := product.FromDraft(uuid.NewString(), j.SellerID(), draft)
	if err != nil {
		return nil, fmt.Errorf("build product: %w", err)
	}

	if p.ImageURL() == "" && s.images != nil {
		urls, err := s.images.FindImages(ctx, draft.Name)
		if err != nil {
			// Missing illustration never fails the listing.
			s.logger.Debug("Image lookup failed", zap.String("job_id", j.ID()), zap.Error(err))
		} else if len(urls) > 0 {
			p.SetImageURL(urls[0])
		}
	}

	embRes, err := s.embed.Embed(ctx, p.EmbeddingText())
	if err != nil {
		return nil, fmt.Errorf("embed listing: %w", err)
	}
	p.SetEmbedding(embRes.Embedding)

	if pt, ok := j.Location(); ok {
		p.SetLocation(pt)
	}
	p.SetDistrict(j.District())

	return &p, nil
}

// finishFailed records the failure reason on the job. The processing
// error itself is not returned: the job carries it for the seller.
func (s *Service) finishFailed(ctx context.Context, jobID string, cause error) (domjob.Job, error) {
	s.logger.Warn("Ingestion job failed", zap.String("job_id", jobID), zap.Error(cause))

	if err := s.jobs.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		return domjob.Job{}, fmt.Errorf("mark failed: %w", err)
	}
	s.countOutcome(domjob.StatusFailed)

	return s.jobs.Get(ctx, jobID)
}

// Status returns the current job state for polling.
func (s *Service) Status(ctx context.Context, jobID string) (domjob.Job, error) {
	return s.jobs.Get(ctx, jobID)
}

// Resubmit starts a new attempt for a failed job. The source job keeps
// its failed record; the retry is a fresh pending job with the same
// submission, so every attempt stays visible.
func (s *Service) Resubmit(ctx context.Context, jobID string) (domjob.Job, error) {
	src, err := s.jobs.Get(ctx, jobID)
	if err != nil {
		return domjob.Job{}, err
	}

	retry, err := domjob.Retry(uuid.NewString(), src)
	if err != nil {
		return domjob.Job{}, err
	}
	if err := s.jobs.Create(ctx, &retry); err != nil {
		return domjob.Job{}, fmt.Errorf("create retry job: %w", err)
	}
	s.logger.Info("Job resubmitted",
		zap.String("job_id", retry.ID()), zap.String("source_job_id", jobID))

	if s.dispatch != nil && !s.dispatch.Dispatch(retry.ID()) {
		s.logger.Warn("Dispatch queue full, job stays pending for the sweep",
			zap.String("job_id", retry.ID()))
	}

	return retry, nil
}

// ProcessSync runs the whole pipeline inline: submit, claim, process.
// Used by the synchronous ingestion endpoint where the seller waits.
func (s *Service) ProcessSync(ctx context.Context, sellerID string, in domain.RawListing, seller domjob.SellerContext) (domjob.Job, error) {
	j, err := domjob.New(uuid.NewString(), sellerID, in, seller)
	if err != nil {
		return domjob.Job{}, err
	}
	if err := s.jobs.Create(ctx, &j); err != nil {
		return domjob.Job{}, fmt.Errorf("create job: %w", err)
	}
	return s.Process(ctx, j.ID())
}

// PendingJobs lists jobs awaiting a worker, oldest first.
func (s *Service) PendingJobs(ctx context.Context, limit int) ([]domjob.Job, error) {
	return s.jobs.ListPending(ctx, limit)
}

func (s *Service) countOutcome(st domjob.Status) {
	if s.jobsTotal != nil {
		s.jobsTotal.WithLabelValues(string(st)).Inc()
	}
}

// IsBenignClaimRace reports whether a Process error just means someone
// else already took the job.
func IsBenignClaimRace(err error) bool {
	return errors.Is(err, domain.ErrInvalidTransition)
}
