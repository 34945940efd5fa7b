package domain

import (
	"fmt"
	"time"
)

// Default pipeline settings.
const (
	DefaultChunkTargetChars  = 2400 // ≈ 600 tokens
	DefaultChunkOverlapChars = 320  // ≈ 80 tokens
	DefaultMinChunkChars     = 200
	DefaultEmbedBatchSize    = 20
	DefaultEmbedModel        = "text-embedding-3-small"
	DefaultBatchPause        = 150 * time.Millisecond
	DefaultPreviewChunks     = 3
	DefaultPreviewChars      = 400
	DefaultCharsPerToken     = 4
)

// Settings is the explicit configuration value passed into the pipeline.
// Nothing in the pipeline reads package-level state, so runs with different
// settings can coexist in one process.
type Settings struct {
	// ChunkTargetChars is the size above which the current chunk is closed.
	ChunkTargetChars int

	// ChunkOverlapChars is how much of a closed chunk is carried into the next.
	ChunkOverlapChars int

	// MinChunkChars drops chunks shorter than this.
	MinChunkChars int

	// EmbedBatchSize is the number of chunks per embedding request.
	EmbedBatchSize int

	// EmbedModel is the embedding model identifier.
	EmbedModel string

	// BatchPause is the wait after each embedding batch before the next.
	BatchPause time.Duration

	// EmbedRequestsPerMinute caps embedding requests. 0 means no cap.
	EmbedRequestsPerMinute int

	// PreviewChunks is how many chunks a dry run shows per source.
	PreviewChunks int

	// PreviewChars truncates each previewed chunk.
	PreviewChars int

	// CharsPerToken is the ratio used by the token estimator.
	CharsPerToken int
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		ChunkTargetChars:  DefaultChunkTargetChars,
		ChunkOverlapChars: DefaultChunkOverlapChars,
		MinChunkChars:     DefaultMinChunkChars,
		EmbedBatchSize:    DefaultEmbedBatchSize,
		EmbedModel:        DefaultEmbedModel,
		BatchPause:        DefaultBatchPause,
		PreviewChunks:     DefaultPreviewChunks,
		PreviewChars:      DefaultPreviewChars,
		CharsPerToken:     DefaultCharsPerToken,
	}
}

// Validate checks the settings are internally consistent.
func (s Settings) Validate() error {
	switch {
	case s.ChunkTargetChars <= 0:
		return fmt.Errorf("%w: chunk target must be positive, got %d", ErrConfiguration, s.ChunkTargetChars)
	case s.ChunkOverlapChars < 0:
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrConfiguration, s.ChunkOverlapChars)
	case s.ChunkOverlapChars >= s.ChunkTargetChars:
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than target (%d)",
			ErrConfiguration, s.ChunkOverlapChars, s.ChunkTargetChars)
	case s.MinChunkChars <= 0:
		return fmt.Errorf("%w: minimum chunk size must be positive, got %d", ErrConfiguration, s.MinChunkChars)
	case s.MinChunkChars > s.ChunkTargetChars:
		return fmt.Errorf("%w: minimum chunk size (%d) exceeds target (%d)",
			ErrConfiguration, s.MinChunkChars, s.ChunkTargetChars)
	case s.EmbedBatchSize <= 0:
		return fmt.Errorf("%w: embedding batch size must be positive, got %d", ErrConfiguration, s.EmbedBatchSize)
	case s.CharsPerToken <= 0:
		return fmt.Errorf("%w: chars per token must be positive, got %d", ErrConfiguration, s.CharsPerToken)
	case s.BatchPause < 0:
		return fmt.Errorf("%w: batch pause must not be negative", ErrConfiguration)
	case s.EmbedRequestsPerMinute < 0:
		return fmt.Errorf("%w: requests per minute must not be negative, got %d",
			ErrConfiguration, s.EmbedRequestsPerMinute)
	}
	return nil
}

// StorageDriver selects the knowledge store backend.
type StorageDriver string

// Available storage drivers.
const (
	// StorageSQLite is the default embedded store.
	StorageSQLite StorageDriver = "sqlite"

	// StoragePostgres stores vectors in a pgvector column.
	StoragePostgres StorageDriver = "postgres"
)

// IsValid returns true if the driver is recognised.
func (d StorageDriver) IsValid() bool {
	return d == StorageSQLite || d == StoragePostgres
}

// AIProvider identifies an embedding service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderGemini is Google's Gemini API.
	AIProviderGemini AIProvider = "gemini"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderOllama, AIProviderGemini:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderGemini
}

// APIKeyEnv returns the environment variable holding the provider's key.
func (p AIProvider) APIKeyEnv() string {
	switch p {
	case AIProviderOpenAI:
		return "OPENAI_API_KEY"
	case AIProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// EmbeddingSettings configures the embedding provider.
type EmbeddingSettings struct {
	// Provider selects the service.
	Provider AIProvider

	// Model is the model identifier.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is loaded from the environment, never from the config file.
	APIKey string

	// Dimensions overrides the model's default vector size.
	Dimensions int
}

// IsConfigured returns true if the provider can be constructed.
func (s *EmbeddingSettings) IsConfigured() bool {
	if s == nil || s.Provider == "" {
		return false
	}
	if s.Provider.RequiresAPIKey() && s.APIKey == "" {
		return false
	}
	return true
}

// EmbeddingDimensions maps known models to their default vector size.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"nomic-embed-text":       768,
		"mxbai-embed-large":      1024,
		"all-minilm":             384,
		"text-embedding-004":     768,
		"gemini-embedding-001":   3072,
	}
}
