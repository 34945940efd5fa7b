// Package ollama provides an embedding service adapter for a local Ollama
// server.
package ollama

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
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 120 * time.Second
	// DefaultDimensions is used for models missing from the dimension table.
	DefaultDimensions = 768
)

// Config holds configuration for the Ollama embedding service.
// Every field is optional.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService embeds chunk texts with a model served by Ollama.
// No credentials are involved.
type EmbeddingService struct {
	client     *http.Client
	server     string
	model      string
	dimensions int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse lists vectors in input order.
type embedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// NewEmbeddingService fills defaults into cfg.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	s := &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		server:     strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if s.client.Timeout == 0 {
		s.client.Timeout = DefaultTimeout
	}
	if s.server == "" {
		s.server = DefaultBaseURL
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.dimensions == 0 {
		s.dimensions = DefaultDimensions
		if dims, ok := domain.EmbeddingDimensions()[s.model]; ok {
			s.dimensions = dims
		}
	}
	return s
}

// EmbedBatch embeds all texts in one /api/embed call. The position of a
// vector in the reply is the index of its input.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out embedResponse
	if err := s.call(ctx, http.MethodPost, "/api/embed", embedRequest{Model: s.model, Input: texts}, &out); err != nil {
		return nil, err
	}

	items := make([]domain.Embedding, len(out.Embeddings))
	for i, vec := range out.Embeddings {
		items[i] = domain.Embedding{Index: i, Vector: vec}
	}
	return items, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists local models to confirm the server answers.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.call(ctx, http.MethodGet, "/api/tags", nil, nil)
}

// Close drops idle connections.
func (s *EmbeddingService) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *EmbeddingService) call(ctx context.Context, method, path string, in, out any) error {
	body := io.Reader(http.NoBody)
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.server+path, body)
	if err != nil {
		return fmt.Errorf("ollama: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &domain.EmbeddingError{
			Provider:   string(domain.AIProviderOllama),
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: ollama: decode response: %w", domain.ErrEnrichmentFailure, err)
	}
	return nil
}
