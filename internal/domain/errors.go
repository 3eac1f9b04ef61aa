package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrProductNotFound signals a missing product.
	ErrProductNotFound = errors.New("product not found")
	// ErrJobNotFound signals a missing ingestion job.
	ErrJobNotFound = errors.New("ingestion job not found")
	// ErrInvalidTransition signals an ingestion job status change
	// that the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid job status transition")
	// ErrInvalidInput signals malformed caller input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDimensionMismatch signals vectors of unequal length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidCoordinate signals a latitude or longitude outside its valid range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExtractionProviderError signals an extraction provider failure.
	ErrExtractionProviderError = errors.New("extraction provider error")
	// ErrNotImplemented signals an unimplemented feature.
	ErrNotImplemented = errors.New("not implemented")
)

// DimensionMismatchError wraps ErrDimensionMismatch with both vector lengths.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}

// TransitionError wraps ErrInvalidTransition with the offending statuses.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition.Error(), e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NewInvalidTransition creates an invalid transition error.
func NewInvalidTransition(from, to string) error {
	return &TransitionError{From: from, To: to}
}
