// Package job persists ingestion jobs and guards their status transitions.
// Every status change is a compare-and-set on the previous status so that
// two workers can never process the same job.
package job

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bazar-cloud/bazar/internal/domain"
	domjob "github.com/bazar-cloud/bazar/internal/domain/job"
)

const jobColumns = `id, seller_id, modality, input_text, input_payload, input_filename,
	seller_lat, seller_lon, seller_district, status, COALESCE(product_id::text, ''),
	error_message, created_at, updated_at`

// Repo implements the job persistence contracts of the ingest usecase.
type Repo struct {
	db *sql.DB
}

// New creates a job repository.
func New(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Create inserts a pending job with its raw input.
func (r *Repo) Create(ctx context.Context, j *domjob.Job) error {
	stmt := `
		INSERT INTO ingestion_jobs (id, seller_id, modality, input_text, input_payload, input_filename,
			seller_lat, seller_lon, seller_district, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var lat, lon sql.NullFloat64
	if pt, ok := j.Location(); ok {
		lat = sql.NullFloat64{Float64: pt.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: pt.Lon, Valid: true}
	}

	in := j.Input()
	_, err := r.db.ExecContext(ctx, stmt,
		j.ID(), j.SellerID(), string(in.Modality), in.Text, in.Payload, in.Filename,
		lat, lon, j.District(), string(j.Status()),
	)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", j.ID(), err)
	}
	return nil
}

// Get returns a job by ID.
func (r *Repo) Get(ctx context.Context, id string) (domjob.Job, error) {
	stmt := `SELECT ` + jobColumns + ` FROM ingestion_jobs WHERE id = $1`

	j, err := scanJob(r.db.QueryRowContext(ctx, stmt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domjob.Job{}, domain.ErrJobNotFound
		}
		return domjob.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// Claim atomically moves a pending job to processing. It reports false
// when the job was not pending, which is how concurrent workers lose
// the race without error.
func (r *Repo) Claim(ctx context.Context, id string) (bool, error) {
	stmt := `
		UPDATE ingestion_jobs SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
	`

	res, err := r.db.ExecContext(ctx, stmt, id, string(domjob.StatusProcessing), string(domjob.StatusPending))
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	return n == 1, nil
}

// MarkCompleted moves a processing job to completed with its product.
func (r *Repo) MarkCompleted(ctx context.Context, id, productID string) error {
	stmt := `
		UPDATE ingestion_jobs
		SET status = $2, product_id = $3, error_message = '', updated_at = now()
		WHERE id = $1 AND status = $4
	`

	res, err := r.db.ExecContext(ctx, stmt, id,
		string(domjob.StatusCompleted), productID, string(domjob.StatusProcessing))
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return r.checkGuarded(ctx, res, id, domjob.StatusCompleted)
}

// MarkFailed moves a processing job to failed with a reason.
func (r *Repo) MarkFailed(ctx context.Context, id, reason string) error {
	stmt := `
		UPDATE ingestion_jobs
		SET status = $2, error_message = $3, updated_at = now()
		WHERE id = $1 AND status = $4
	`

	res, err := r.db.ExecContext(ctx, stmt, id,
		string(domjob.StatusFailed), reason, string(domjob.StatusProcessing))
	if err != nil {
		return fmt.Errorf("fail job %s: %w", id, err)
	}
	return r.checkGuarded(ctx, res, id, domjob.StatusFailed)
}

// ListPending returns the oldest pending jobs, for the recovery sweep.
func (r *Repo) ListPending(ctx context.Context, limit int) ([]domjob.Job, error) {
	stmt := `
		SELECT ` + jobColumns + `
		FROM ingestion_jobs
		WHERE status = $1
		ORDER BY created_at
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, stmt, string(domjob.StatusPending), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	out := []domjob.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// checkGuarded resolves a zero-row guarded update into the right sentinel:
// missing job or illegal transition from the job's current status.
func (r *Repo) checkGuarded(ctx context.Context, res sql.Result, id string, to domjob.Status) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("job %s rows affected: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT status FROM ingestion_jobs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("job %s status lookup: %w", id, err)
	}
	return domain.NewInvalidTransition(current, string(to))
}
