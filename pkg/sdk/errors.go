package bazar

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bazar-cloud/bazar/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrProductNotFound         = domain.ErrProductNotFound
	ErrJobNotFound             = domain.ErrJobNotFound
	ErrInvalidTransition       = domain.ErrInvalidTransition
	ErrInvalidInput            = domain.ErrInvalidInput
	ErrEmbeddingProviderError  = domain.ErrEmbeddingProviderError
	ErrExtractionProviderError = domain.ErrExtractionProviderError
	ErrNotImplemented          = domain.ErrNotImplemented
)

// maxErrorBody caps how much of a broken error reply we keep around.
const maxErrorBody = 4 << 10

// APIError is a non-2xx reply from the API.
type APIError struct {
	Status  int    // HTTP status code
	Code    string // machine-readable code, e.g. "product_not_found"
	Message string

	// From and To carry the job statuses on an invalid_transition reply.
	From string
	To   string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("bazar: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("bazar: %s: %s", e.Code, e.Message)
}

// Unwrap maps the wire code back onto the matching sentinel, so
// errors.Is keeps working across the HTTP hop. Codes without a
// sentinel (unauthorized, internal_error) unwrap to nil.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "product_not_found":
		return ErrProductNotFound
	case "job_not_found":
		return ErrJobNotFound
	case "invalid_transition":
		return ErrInvalidTransition
	case "validation_failed", "bad_request":
		return ErrInvalidInput
	case "embedding_provider_error":
		return ErrEmbeddingProviderError
	case "extraction_provider_error":
		return ErrExtractionProviderError
	case "not_implemented":
		return ErrNotImplemented
	}
	return nil
}

// apiErrorFrom decodes an error reply. A body that is not the standard
// {code, message} shape still produces a usable APIError.
func apiErrorFrom(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		From    string `json:"from"`
		To      string `json:"to"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Code == "" {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	return &APIError{
		Status:  resp.StatusCode,
		Code:    body.Code,
		Message: body.Message,
		From:    body.From,
		To:      body.To,
	}
}
