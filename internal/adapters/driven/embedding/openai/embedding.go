// Package openai provides an embedding service adapter for the OpenAI
// /embeddings API and compatible servers. Returned vectors are L2 normalised.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/codeassist/internal/adapters/driven/vectorindex/vecmath"
	"github.com/custodia-labs/codeassist/internal/core/domain"
	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// MaxInputsPerRequest is the API limit on inputs in one call.
	MaxInputsPerRequest = 2048
)

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey is sent as a bearer token (required).
	APIKey string

	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Model defaults to DefaultModel.
	Model string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// Dimensions asks text-embedding-3 models for shortened vectors. Zero
	// keeps the native width of the model.
	Dimensions int
}

// EmbeddingService embeds text through /embeddings.
type EmbeddingService struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	shortened int

	mu         sync.RWMutex
	dimensions int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// NewEmbeddingService creates a new OpenAI embedding service. The width is
// known up front for the models in domain.EmbeddingDimensions and learned from
// the first response otherwise.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &EmbeddingService{
		client:     &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: domain.EmbeddingDimensions()[cfg.Model],
	}
	if cfg.Dimensions > 0 && strings.HasPrefix(cfg.Model, "text-embedding-3-") {
		s.shortened = cfg.Dimensions
		s.dimensions = cfg.Dimensions
	}
	return s, nil
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch embeds texts in input order, splitting batches larger than
// MaxInputsPerRequest into several calls.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxInputsPerRequest {
		end := min(start+MaxInputsPerRequest, len(texts))
		vecs, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}

	s.mu.Lock()
	if s.dimensions == 0 {
		s.dimensions = len(out[0])
	}
	s.mu.Unlock()

	return out, nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string) ([][]float32, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		// The API rejects empty strings.
		if strings.TrimSpace(t) == "" {
			t = " "
		}
		input[i] = t
	}

	body, err := json.Marshal(embeddingRequest{Model: s.model, Input: input, Dimensions: s.shortened})
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai: send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, raw)
	}

	var decoded embeddingResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if decoded.Error != nil {
		return nil, fmt.Errorf("openai: %s", decoded.Error.Message)
	}

	// Order by index; every input must come back exactly once.
	vecs := make([][]float32, len(texts))
	for _, d := range decoded.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai: embedding index %d out of range", d.Index)
		}
		v := make([]float32, len(d.Embedding))
		for i, x := range d.Embedding {
			v[i] = float32(x)
		}
		vecs[d.Index] = vecmath.Normalize(v)
	}
	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("openai: no embedding returned for input %d", i)
		}
	}
	return vecs, nil
}

// Dimensions returns the vector width, or zero before the first call for
// models outside domain.EmbeddingDimensions.
func (s *EmbeddingService) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensions
}

// ModelName returns the name of the embedding model being used.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without embedding anything.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, "/models", http.NoBody)
	if err != nil {
		return err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return statusError(resp.StatusCode, raw)
	}
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

func (s *EmbeddingService) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

// statusError describes a non-200 reply; 429 matches domain.ErrRateLimited.
func statusError(status int, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	var envelope struct {
		Error *apiError `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
		msg = envelope.Error.Message
	}

	if status == http.StatusTooManyRequests {
		return fmt.Errorf("openai: %w: %s", domain.ErrRateLimited, msg)
	}
	return fmt.Errorf("openai: status %d: %s", status, msg)
}
