// Package tgi provides an LLM service adapter for Hugging Face
// text-generation-inference servers.
package tgi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/codeassist/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8080"
	DefaultModel   = "tgi"
	DefaultTimeout = 600 * time.Second
)

// Config holds configuration for the TGI LLM service.
type Config struct {
	// BaseURL is the TGI server URL (default: http://localhost:8080).
	BaseURL string

	// Model labels the served model. TGI serves a single model per process,
	// so the value is informational.
	Model string

	// Timeout is the request timeout (default: 600s).
	Timeout time.Duration
}

// LLMService calls the TGI /generate endpoint.
type LLMService struct {
	client  *http.Client
	baseURL string
	model   string
}

type generateRequest struct {
	Inputs     string     `json:"inputs"`
	Parameters parameters `json:"parameters"`
}

type parameters struct {
	MaxNewTokens int      `json:"max_new_tokens,omitempty"`
	Temperature  float64  `json:"temperature,omitempty"`
	TopP         float64  `json:"top_p,omitempty"`
	Stop         []string `json:"stop,omitempty"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

type errorResponse struct {
	Error     string `json:"error"`
	ErrorType string `json:"error_type"`
}

// NewLLMService creates a new TGI LLM service.
func NewLLMService(cfg Config) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	reqBody := generateRequest{
		Inputs: prompt,
		Parameters: parameters{
			MaxNewTokens: opts.MaxTokens,
			Temperature:  opts.Temperature,
			TopP:         opts.TopP,
			Stop:         opts.StopWords,
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return "", fmt.Errorf("tgi error (status %d): %s", resp.StatusCode, errResp.Error)
		}
		return "", fmt.Errorf("tgi error (status %d): %s", resp.StatusCode, string(body))
	}

	// TGI answers with an object, some proxies wrap it in a one element array.
	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		var list []generateResponse
		if err := json.Unmarshal(body, &list); err != nil || len(list) == 0 {
			return "", fmt.Errorf("decode response: %s", string(body))
		}
		genResp = list[0]
	}

	return genResp.GeneratedText, nil
}

// ModelName returns the configured model label.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the /health endpoint.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", http.NoBody)
	if err != nil {
		return fmt.Errorf("tgi: failed to create ping request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("tgi: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tgi: health returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
