// Package openai provides an embedding service adapter for the OpenAI
// embeddings endpoint and API-compatible servers.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/kbingest/internal/core/domain"
	"github.com/custodia-labs/kbingest/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = domain.DefaultEmbedModel
	DefaultTimeout = 60 * time.Second

	fallbackDimensions = 1536
	maxErrorBody       = 4 << 10
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is required.
	APIKey string
	// BaseURL defaults to DefaultBaseURL. Point it at any server speaking
	// the same /embeddings protocol.
	BaseURL string
	Model   string
	Timeout time.Duration
	// Dimensions asks text-embedding-3-* models for shortened vectors.
	// Other models ignore it.
	Dimensions int
}

// EmbeddingService embeds chunk texts through the OpenAI API.
type EmbeddingService struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	model      string
	dimensions int
	shorten    bool
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewEmbeddingService validates cfg and fills defaults.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required (set %s)",
			domain.ErrConfiguration, domain.AIProviderOpenAI.APIKeyEnv())
	}

	s := &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		endpoint:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if s.client.Timeout == 0 {
		s.client.Timeout = DefaultTimeout
	}
	if s.endpoint == "" {
		s.endpoint = DefaultBaseURL
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	s.shorten = s.dimensions > 0 && strings.HasPrefix(s.model, "text-embedding-3-")
	if s.dimensions == 0 {
		s.dimensions = fallbackDimensions
		if dims, ok := domain.EmbeddingDimensions()[s.model]; ok {
			s.dimensions = dims
		}
	}
	return s, nil
}

// EmbedBatch embeds texts in one request. Items carry the input index the
// API reported, which need not match response order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	in := embeddingRequest{Model: s.model, Input: texts}
	if s.shorten {
		in.Dimensions = s.dimensions
	}
	var out embeddingResponse
	if err := s.call(ctx, http.MethodPost, "/embeddings", in, &out); err != nil {
		return nil, err
	}

	items := make([]domain.Embedding, 0, len(out.Data))
	for _, d := range out.Data {
		items = append(items, domain.Embedding{Index: d.Index, Vector: d.Embedding})
	}
	return items, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which checks the key without spending tokens.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.call(ctx, http.MethodGet, "/models", nil, nil)
}

// Close drops idle connections.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// call sends in as JSON (when non-nil) and decodes the reply into out
// (when non-nil). A non-200 reply becomes an EmbeddingError.
func (s *EmbeddingService) call(ctx context.Context, method, path string, in, out any) error {
	body := io.Reader(http.NoBody)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &domain.EmbeddingError{
			Provider:   string(domain.AIProviderOpenAI),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: openai: decode response: %w", domain.ErrEnrichmentFailure, err)
	}
	return nil
}
