// Package job defines the ingestion job aggregate and its status lifecycle.
package job

import (
	"fmt"
	"strings"
	"time"

	"github.com/bazar-cloud/bazar/internal/domain"
	"github.com/bazar-cloud/bazar/internal/domain/geo"
)

// Status is the ingestion job lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// validTransitions кодирует жизненный цикл: pending → processing → {completed, failed}.
// Both end states are frozen: another attempt is a new job (Retry), not a transition.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusFailed:     {},
	StatusCompleted:  {},
}

// CanTransition reports whether from → to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

// Terminal reports whether the status ends the happy path of a job.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusFailed }

// SellerContext is the seller profile snapshot captured at submission.
// The product inherits whatever the seller had set then, even if the
// profile changes while the job waits.
type SellerContext struct {
	Location *geo.Point
	District string
}

// Job is the ingestion job aggregate: one seller submission moving
// from raw input to a published product.
type Job struct {
	id           string
	sellerID     string
	input        domain.RawListing
	seller       SellerContext
	status       Status
	productID    string
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
}

// New validates the raw input and creates a pending Job.
// Text submissions need non-empty text; voice and image need a payload.
func New(id, sellerID string, in domain.RawListing, seller SellerContext) (Job, error) {
	if id == "" {
		return Job{}, fmt.Errorf("%w: job ID is required", domain.ErrInvalidInput)
	}
	if _, err := domain.ParseModality(string(in.Modality)); err != nil {
		return Job{}, err
	}
	switch in.Modality {
	case domain.ModalityText:
		if in.Text == "" {
			return Job{}, fmt.Errorf("%w: text submission has no text", domain.ErrInvalidInput)
		}
	default:
		if len(in.Payload) == 0 {
			return Job{}, fmt.Errorf("%w: %s submission has no payload", domain.ErrInvalidInput, in.Modality)
		}
	}
	if seller.Location != nil {
		if _, err := geo.NewPoint(seller.Location.Lat, seller.Location.Lon); err != nil {
			return Job{}, err
		}
	}
	seller.District = strings.TrimSpace(seller.District)

	return Job{
		id:       id,
		sellerID: sellerID,
		input:    in,
		seller:   seller,
		status:   StatusPending,
	}, nil
}

// Reconstruct creates a Job without validation (storage hydration).
func Reconstruct(
	id, sellerID string, in domain.RawListing, seller SellerContext, status Status,
	productID, errorMessage string, createdAt, updatedAt time.Time,
) Job {
	return Job{
		id: id, sellerID: sellerID, input: in, seller: seller, status: status,
		productID: productID, errorMessage: errorMessage,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// ID returns the job identifier.
func (j *Job) ID() string { return j.id }

// SellerID returns the submitting seller identifier.
func (j *Job) SellerID() string { return j.sellerID }

// Input returns the raw seller submission.
func (j *Job) Input() domain.RawListing { return j.input }

// Location returns the seller coordinates and whether they are set.
func (j *Job) Location() (geo.Point, bool) {
	if j.seller.Location == nil {
		return geo.Point{}, false
	}
	return *j.seller.Location, true
}

// District returns the seller's district, empty when unknown.
func (j *Job) District() string { return j.seller.District }

// Seller returns the captured seller profile snapshot.
func (j *Job) Seller() SellerContext { return j.seller }

// Status returns the current lifecycle state.
func (j *Job) Status() Status { return j.status }

// ProductID returns the created product identifier, empty until completion.
func (j *Job) ProductID() string { return j.productID }

// ErrorMessage returns the failure reason, empty unless failed.
func (j *Job) ErrorMessage() string { return j.errorMessage }

// CreatedAt returns the creation timestamp (zero until persisted).
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// UpdatedAt returns the last modification timestamp (zero until persisted).
func (j *Job) UpdatedAt() time.Time { return j.updatedAt }

// Start moves the job to processing.
func (j *Job) Start() error {
	return j.transition(StatusProcessing)
}

// Complete moves the job to completed and records the created product.
func (j *Job) Complete(productID string) error {
	if productID == "" {
		return fmt.Errorf("%w: completed job needs a product ID", domain.ErrInvalidInput)
	}
	if err := j.transition(StatusCompleted); err != nil {
		return err
	}
	j.productID = productID
	j.errorMessage = ""
	return nil
}

// Fail moves the job to failed with a reason.
func (j *Job) Fail(reason string) error {
	if err := j.transition(StatusFailed); err != nil {
		return err
	}
	j.errorMessage = reason
	return nil
}

// Retry creates a fresh pending job carrying the same submission as a
// failed one. Jobs never leave a terminal state, so every attempt keeps
// its own record; only failed jobs can spawn a retry.
func Retry(id string, source Job) (Job, error) {
	if source.status != StatusFailed {
		return Job{}, domain.NewInvalidTransition(string(source.status), string(StatusPending))
	}
	return New(id, source.sellerID, source.input, source.seller)
}

func (j *Job) transition(to Status) error {
	if !CanTransition(j.status, to) {
		return domain.NewInvalidTransition(string(j.status), string(to))
	}
	j.status = to
	return nil
}
