package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
	"github.com/custodia-labs/kbingest/internal/postprocessors/chunker"
	"github.com/custodia-labs/kbingest/internal/postprocessors/heading"
	"github.com/custodia-labs/kbingest/internal/postprocessors/tokens"
)

// DefaultChain is the processor order used for ingestion.
var DefaultChain = []string{"chunker", "heading", "tokens"}

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("heading", buildHeading)
	r.Register("tokens", buildTokens)
}

// BuildPipeline creates the default chain configured from settings.
func BuildPipeline(r *Registry, settings domain.Settings) (*Pipeline, error) {
	configs := map[string]map[string]any{
		"chunker": {
			"target_chars":  settings.ChunkTargetChars,
			"overlap_chars": settings.ChunkOverlapChars,
			"min_chars":     settings.MinChunkChars,
		},
		"tokens": {
			"chars_per_token": settings.CharsPerToken,
		},
	}

	pipeline, err := r.BuildChain(DefaultChain, configs)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return pipeline, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - target_chars (int): Size above which a chunk is closed (default: 2400)
//   - overlap_chars (int): Characters carried into the next chunk, 0 disables (default: 320)
//   - min_chars (int): Chunks shorter than this are dropped (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := getIntFromConfig(cfg, "target_chars"); ok {
		if size <= 0 {
			return nil, fmt.Errorf("%w: target_chars must be positive", domain.ErrConfiguration)
		}
		opts = append(opts, chunker.WithTargetSize(size))
	}
	if overlap, ok := getIntFromConfig(cfg, "overlap_chars"); ok {
		if overlap < 0 {
			return nil, fmt.Errorf("%w: overlap_chars must not be negative", domain.ErrConfiguration)
		}
		opts = append(opts, chunker.WithOverlap(overlap))
	}
	if minSize, ok := getIntFromConfig(cfg, "min_chars"); ok {
		if minSize <= 0 {
			return nil, fmt.Errorf("%w: min_chars must be positive", domain.ErrConfiguration)
		}
		opts = append(opts, chunker.WithMinSize(minSize))
	}

	return chunker.New(opts...), nil
}

// buildHeading creates the heading processor. It takes no config.
func buildHeading(_ map[string]any) (driven.PostProcessor, error) {
	return heading.New(), nil
}

// buildTokens creates a tokens processor from generic config.
// Supported config keys:
//   - chars_per_token (int): Characters per estimated token (default: 4)
func buildTokens(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []tokens.Option

	if ratio, ok := getIntFromConfig(cfg, "chars_per_token"); ok {
		if ratio <= 0 {
			return nil, fmt.Errorf("%w: chars_per_token must be positive", domain.ErrConfiguration)
		}
		opts = append(opts, tokens.WithCharsPerToken(ratio))
	}

	return tokens.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
// The second result is false when the key is absent or not numeric.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
