package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	t.Run("requires api key", func(t *testing.T) {
		_, err := NewEmbeddingService(Config{})
		require.ErrorIs(t, err, domain.ErrConfiguration)
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("defaults", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "sk-test"})
		require.NoError(t, err)
		assert.Equal(t, DefaultModel, s.ModelName())
		assert.Equal(t, 1536, s.Dimensions())
		assert.Equal(t, DefaultBaseURL, s.endpoint)
		assert.False(t, s.shorten)
	})

	t.Run("known model dimensions", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "sk-test", Model: "text-embedding-3-large"})
		require.NoError(t, err)
		assert.Equal(t, 3072, s.Dimensions())
	})

	t.Run("dimension override", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "sk-test", Dimensions: 512})
		require.NoError(t, err)
		assert.Equal(t, 512, s.Dimensions())
		assert.True(t, s.shorten)
	})

	t.Run("override ignored by older models", func(t *testing.T) {
		s, err := NewEmbeddingService(Config{APIKey: "sk-test", Model: "text-embedding-ada-002", Dimensions: 512})
		require.NoError(t, err)
		assert.False(t, s.shorten)
	})
}

func TestEmbedBatch(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		// Answer out of order; the index is authoritative.
		_, _ = w.Write([]byte(`{
			"data": [
				{"embedding": [0.3, 0.4], "index": 1},
				{"embedding": [0.1, 0.2], "index": 0}
			],
			"usage": {"prompt_tokens": 4, "total_tokens": 4}
		}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	items, err := s.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, got.Model)
	assert.Equal(t, []string{"first", "second"}, got.Input)
	assert.Zero(t, got.Dimensions)

	require.Len(t, items, 2)
	assert.Equal(t, 1, items[0].Index)
	assert.Equal(t, []float32{0.3, 0.4}, items[0].Vector)
	assert.Equal(t, 0, items[1].Index)
	assert.Equal(t, []float32{0.1, 0.2}, items[1].Vector)
}

func TestEmbedBatch_Empty(t *testing.T) {
	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	items, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, items)
}

func TestEmbedBatch_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.EmbedBatch(context.Background(), []string{"text"})
	require.Error(t, err)

	var apiErr *domain.EmbeddingError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "openai", apiErr.Provider)
	assert.Contains(t, apiErr.Body, "rate limited")
	assert.ErrorIs(t, err, domain.ErrEnrichmentFailure)
}

func TestEmbedBatch_MalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.EmbedBatch(context.Background(), []string{"text"})
	assert.ErrorIs(t, err, domain.ErrEnrichmentFailure)
}

func TestPing(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(int(status.Load()))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))

	status.Store(http.StatusUnauthorized)
	err = s.Ping(context.Background())
	var apiErr *domain.EmbeddingError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	assert.NoError(t, s.Close())
}

func TestEmbedBatch_SendsDimensions(t *testing.T) {
	var got embeddingRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data": [{"embedding": [1, 2], "index": 0}]}`))
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	items, err := s.EmbedBatch(context.Background(), []string{"squat depth cues"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, got.Dimensions)
}
