// Package gemini provides an embedding service adapter using Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-embedding-001"

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model is the embedding model to use (default: gemini-embedding-001).
	// The vector size is the model's native one; shortening is not offered.
	Model string
}

// batchFunc embeds texts and returns vectors in input order.
type batchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// EmbeddingService generates embeddings using the Gemini API.
type EmbeddingService struct {
	client     *genai.Client
	model      string
	dimensions int
	embed      batchFunc
}

// NewEmbeddingService creates a new Gemini embedding service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is required (set %s)",
			domain.ErrConfiguration, domain.AIProviderGemini.APIKeyEnv())
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	s := newService(cfg, nil)
	s.client = client
	s.embed = s.batchEmbed
	return s, nil
}

// newService builds the service around an embedding function.
func newService(cfg Config, embed batchFunc) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &EmbeddingService{
		model:      cfg.Model,
		dimensions: domain.EmbeddingDimensions()[cfg.Model],
		embed:      embed,
	}
}

// batchEmbed sends all texts in one BatchEmbedContents call.
func (s *EmbeddingService) batchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	em := s.client.EmbeddingModel(s.model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil {
			out = append(out, nil)
			continue
		}
		out = append(out, e.Values)
	}
	return out, nil
}

// EmbedBatch embeds texts in one request. Gemini answers in input order,
// so the response position is the index.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors, err := s.embed(ctx, texts)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]domain.Embedding, len(vectors))
	for i, v := range vectors {
		items[i] = domain.Embedding{Index: i, Vector: v}
	}
	return items, nil
}

// mapError turns API failures with an HTTP status into EmbeddingError.
func mapError(err error) error {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPCode() > 0 {
		return &domain.EmbeddingError{
			Provider:   string(domain.AIProviderGemini),
			StatusCode: apiErr.HTTPCode(),
			Body:       apiErr.Error(),
		}
	}
	return fmt.Errorf("%w: gemini batch embed: %w", domain.ErrEnrichmentFailure, err)
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a single short text to validate the key and model.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.EmbedBatch(ctx, []string{"ping"}); err != nil {
		return fmt.Errorf("gemini: ping failed: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *EmbeddingService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
