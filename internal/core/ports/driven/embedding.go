// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/custodia-labs/kbingest/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Gemini (text-embedding-004)
type EmbeddingService interface {
	// EmbedBatch generates one embedding per input text in a single request.
	// Each result carries the index of the input it belongs to. Results are
	// not guaranteed to arrive in request order; callers must re-order them.
	// A non-success response is reported as *domain.EmbeddingError.
	EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536, 3072).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
