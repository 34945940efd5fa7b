package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrMissingResource", ErrMissingResource},
		{"ErrEnrichmentFailure", ErrEnrichmentFailure},
		{"ErrPersistenceFailure", ErrPersistenceFailure},
		{"ErrConfiguration", ErrConfiguration},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	assert.False(t, errors.Is(ErrEnrichmentFailure, ErrPersistenceFailure))
	assert.False(t, errors.Is(ErrMissingResource, ErrNotFound))
	assert.False(t, errors.Is(ErrConfiguration, ErrInvalidInput))
}

func TestErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("open NASM.pdf: %w", ErrMissingResource)
	assert.True(t, errors.Is(err, ErrMissingResource))
	assert.Contains(t, err.Error(), "missing resource")
}

func TestEmbeddingError(t *testing.T) {
	err := &EmbeddingError{Provider: "openai", StatusCode: 429, Body: `{"error":"rate limited"}`}

	assert.Equal(t, `openai API error 429: {"error":"rate limited"}`, err.Error())
	assert.True(t, errors.Is(err, ErrEnrichmentFailure))
	assert.False(t, errors.Is(err, ErrPersistenceFailure))

	wrapped := fmt.Errorf("embed batch: %w", err)
	var target *EmbeddingError
	if assert.True(t, errors.As(wrapped, &target)) {
		assert.Equal(t, 429, target.StatusCode)
	}
}

func TestSourceError(t *testing.T) {
	err := &SourceError{Source: "ACE", Stage: "extract", Err: fmt.Errorf("%w: ace.pdf", ErrMissingResource)}

	assert.Equal(t, "extract ACE: missing resource: ace.pdf", err.Error())
	assert.True(t, errors.Is(err, ErrMissingResource))

	var target *SourceError
	if assert.True(t, errors.As(fmt.Errorf("run: %w", err), &target)) {
		assert.Equal(t, "extract", target.Stage)
	}
}
