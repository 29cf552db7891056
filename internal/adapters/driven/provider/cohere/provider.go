// Package cohere provides a provider adapter for the Cohere API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.Provider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL         = "https://api.cohere.ai"
	DefaultEmbeddingModel  = "embed-english-v3.0"
	DefaultCompletionModel = "command-r-plus"
	DefaultMaxTokens       = 512

	// inputType marks embedded texts as retrieval documents.
	inputType = "search_document"
)

// Config holds configuration for the Cohere provider.
type Config struct {
	// APIKey is the Cohere API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.cohere.ai).
	BaseURL string

	// EmbeddingModel is the embedding model (default: embed-english-v3.0).
	EmbeddingModel string

	// CompletionModel is the chat model (default: command-r-plus).
	CompletionModel string

	// HTTPClient overrides the transport.
	HTTPClient *http.Client
}

// Provider embeds and completes through the Cohere API.
type Provider struct {
	client          *http.Client
	baseURL         string
	apiKey          string
	embeddingModel  string
	completionModel string
}

// embedRequest is the Cohere /v1/embed request format.
type embedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

// embedResponse is the Cohere /v1/embed response format.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Message    string      `json:"message,omitempty"`
}

// chatRequest is the Cohere /v1/chat request format.
type chatRequest struct {
	Message     string  `json:"message"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

// chatResponse is the Cohere /v1/chat response format.
type chatResponse struct {
	Text string `json:"text"`
	Meta struct {
		BilledUnits struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"billed_units"`
	} `json:"meta"`
	Message string `json:"message,omitempty"`
}

// New creates a Cohere provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: cohere: API key is required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = DefaultCompletionModel
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &Provider{
		client:          cfg.HTTPClient,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:          cfg.APIKey,
		embeddingModel:  cfg.EmbeddingModel,
		completionModel: cfg.CompletionModel,
	}, nil
}

// Name returns the provider variant.
func (p *Provider) Name() domain.ProviderName {
	return domain.ProviderCohere
}

// Embed returns one vector per text, in input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var resp embedResponse
	if err := p.post(ctx, "/v1/embed", embedRequest{
		Texts:     texts,
		Model:     p.embeddingModel,
		InputType: inputType,
	}, &resp); err != nil {
		return nil, err
	}

	return resp.Embeddings, nil
}

// Complete sends prompt as a single chat message.
func (p *Provider) Complete(ctx context.Context, prompt string, opts domain.CompleteOptions) (*domain.Completion, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	var resp chatResponse
	if err := p.post(ctx, "/v1/chat", chatRequest{
		Message:     prompt,
		Model:       p.completionModel,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
	}, &resp); err != nil {
		return nil, err
	}

	in, out := resp.Meta.BilledUnits.InputTokens, resp.Meta.BilledUnits.OutputTokens
	return &domain.Completion{
		Text:  strings.TrimSpace(resp.Text),
		Model: p.completionModel,
		Usage: domain.TokenUsage{
			PromptTokens:     in,
			CompletionTokens: out,
			TotalTokens:      in + out,
		},
	}, nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// post sends a JSON request and decodes a JSON response into out.
func (p *Provider) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: cohere: marshal request: %w", domain.ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("%w: cohere: create request: %w", domain.ErrProvider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: cohere: send request: %w", domain.ErrProvider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: cohere: read response: %w", domain.ErrProvider, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: cohere error (status %d): %s", domain.ErrProvider, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("%w: cohere error (status %d): %s", domain.ErrProvider, resp.StatusCode, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: cohere: decode response: %w", domain.ErrProvider, err)
	}
	return nil
}
