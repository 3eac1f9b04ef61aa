// Package worker runs ingestion jobs in the background.
// Submit → channel → N workers → Process. Периодический sweep подбирает
// pending джобы из стора после рестарта или переполнения очереди.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bazar-cloud/bazar/internal/usecase/ingest"
)

// Defaults used when the pool is not configured explicitly.
const (
	DefaultWorkers    = 4
	DefaultQueueSize  = 64
	DefaultSweepEvery = 30 * time.Second
	DefaultSweepLimit = 100
)

// Pool is a fixed-size worker pool over a buffered dispatch queue.
// The queue is a hint, not the source of truth: a job that never made
// it into the channel is still found by the sweep, and the claim in
// the store keeps double dispatch harmless.
type Pool struct {
	ingest     Processor
	workers    int
	queue      chan string
	sweepEvery time.Duration
	sweepLimit int
	queueDepth prometheus.Gauge
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	stop   chan struct{}
}

// New creates a pool. Zero workers or queueSize fall back to defaults.
func New(ing Processor, workers, queueSize int, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Pool{
		ingest:     ing,
		workers:    workers,
		queue:      make(chan string, queueSize),
		sweepEvery: DefaultSweepEvery,
		sweepLimit: DefaultSweepLimit,
		stop:       make(chan struct{}),
		logger:     logger,
	}
}

// WithSweep overrides how often and how many pending jobs the recovery
// sweep re-enqueues. A non-positive interval disables sweeping.
func (p *Pool) WithSweep(every time.Duration, limit int) *Pool {
	p.sweepEvery = every
	if limit > 0 {
		p.sweepLimit = limit
	}
	return p
}

// WithMetrics exports the current queue depth.
func (p *Pool) WithMetrics(queueDepth prometheus.Gauge) *Pool {
	p.queueDepth = queueDepth
	return p
}

// Start launches the workers and the sweep loop. The context bounds
// job processing; cancel it only when abandoning in-flight work is
// acceptable (Stop is the graceful path).
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func(workerID int) {
			defer p.wg.Done()
			p.run(ctx, workerID)
		}(i)
	}

	if p.sweepEvery > 0 {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.sweepLoop(ctx)
		}()
	}

	p.logger.Info("Worker pool started",
		zap.Int("workers", p.workers),
		zap.Int("queue_size", cap(p.queue)),
		zap.Duration("sweep_every", p.sweepEvery),
	)
}

// Dispatch hands a job to the pool without blocking. It reports false
// when the queue is full or the pool is stopping; the job stays
// pending in the store either way.
func (p *Pool) Dispatch(jobID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.queue <- jobID:
		if p.queueDepth != nil {
			p.queueDepth.Inc()
		}
		return true
	default:
		return false
	}
}

// Stop drains the queue and waits for in-flight jobs, bounded by ctx.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stop)
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) run(ctx context.Context, workerID int) {
	for jobID := range p.queue {
		if p.queueDepth != nil {
			p.queueDepth.Dec()
		}

		j, err := p.ingest.Process(ctx, jobID)
		switch {
		case err == nil:
			p.logger.Debug("Job processed",
				zap.Int("worker", workerID),
				zap.String("job_id", jobID),
				zap.String("status", string(j.Status())),
			)
		case ingest.IsBenignClaimRace(err):
			// Кто-то успел раньше. Не ошибка.
			p.logger.Debug("Job already taken",
				zap.Int("worker", workerID),
				zap.String("job_id", jobID),
			)
		default:
			p.logger.Error("Job processing failed",
				zap.Int("worker", workerID),
				zap.String("job_id", jobID),
				zap.Error(err),
			)
		}
	}
}

// sweepLoop re-enqueues pending jobs on a timer. The first sweep runs
// immediately so jobs left over from a previous run are picked up
// without waiting a full interval.
func (p *Pool) sweepLoop(ctx context.Context) {
	p.sweep(ctx)

	ticker := time.NewTicker(p.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Pool) sweep(ctx context.Context) {
	jobs, err := p.ingest.PendingJobs(ctx, p.sweepLimit)
	if err != nil {
		p.logger.Warn("Pending sweep failed", zap.Error(err))
		return
	}

	dispatched := 0
	for i := range jobs {
		if p.Dispatch(jobs[i].ID()) {
			dispatched++
		}
	}
	if dispatched > 0 {
		p.logger.Info("Pending sweep re-enqueued jobs",
			zap.Int("found", len(jobs)),
			zap.Int("dispatched", dispatched),
		)
	}
}
