package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no extractor handles a document format.
	ErrUnsupportedType = errors.New("unsupported type")

	// Ingestion Errors.

	// ErrMissingResource indicates the source document cannot be located.
	// The source is skipped; other sources proceed.
	ErrMissingResource = errors.New("missing resource")

	// ErrEnrichmentFailure indicates the embedding service failed for a batch.
	// The batch is skipped; the run continues.
	ErrEnrichmentFailure = errors.New("enrichment failed")

	// ErrPersistenceFailure indicates the store rejected a write.
	// Handled like ErrEnrichmentFailure at batch granularity.
	ErrPersistenceFailure = errors.New("persistence failed")

	// ErrConfiguration indicates a required credential, selector or setting
	// is absent or invalid. Fatal before any source is processed.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// EmbeddingError is returned when the embedding service answers with a
// non-success status. It matches ErrEnrichmentFailure with errors.Is.
type EmbeddingError struct {
	// Provider names the service that failed (e.g. "openai").
	Provider string

	// StatusCode is the HTTP-style status returned by the service.
	StatusCode int

	// Body is the raw response body, for diagnosis.
	Body string
}

// Error implements error.
func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Unwrap allows errors.Is(err, ErrEnrichmentFailure).
func (e *EmbeddingError) Unwrap() error {
	return ErrEnrichmentFailure
}

// SourceError is a failure to check, extract, normalise or chunk one
// source. Run skips the source and carries on.
type SourceError struct {
	// Source is the source label.
	Source string

	// Stage is the step that failed.
	Stage string

	// Err is the underlying failure.
	Err error
}

// Error implements error.
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Source, e.Err)
}

// Unwrap returns the underlying failure.
func (e *SourceError) Unwrap() error {
	return e.Err
}
