// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/kbingest/internal/adapters/driven/embedding/gemini"
	"github.com/custodia-labs/kbingest/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/kbingest/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns nil when no provider is configured.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil || svc == nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable (%w)",
			domain.ErrEmbeddingUnavailable, settings.Provider, err)
	}

	return svc, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if no provider is set. A provider that needs a key and has
// none yields domain.ErrConfiguration.
func CreateEmbeddingService(
	ctx context.Context,
	settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)

	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil

	case domain.AIProviderGemini:
		return createGeminiEmbedding(ctx, settings)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q (use openai, ollama or gemini)",
			domain.ErrConfiguration, settings.Provider)
	}
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openai.NewEmbeddingService(openai.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	return ollama.NewEmbeddingService(ollama.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: settings.Dimensions,
	})
}

func createGeminiEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings.Dimensions > 0 {
		return nil, fmt.Errorf("%w: gemini embeddings use the model's native size; remove dimensions = %d",
			domain.ErrConfiguration, settings.Dimensions)
	}
	svc, err := gemini.NewEmbeddingService(ctx, gemini.Config{
		APIKey: settings.APIKey,
		Model:  settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
