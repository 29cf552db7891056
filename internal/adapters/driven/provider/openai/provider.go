// Package openai provides OpenAI and Azure OpenAI provider adapters built on
// github.com/sashabaranov/go-openai.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Provider implements the interface.
var _ driven.Provider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultEmbeddingModel  = "text-embedding-ada-002"
	DefaultCompletionModel = "gpt-3.5-turbo"
)

// Config holds configuration for an OpenAI or Azure OpenAI provider.
type Config struct {
	// APIKey is the vendor API key (required).
	APIKey string

	// BaseURL overrides the API base URL. For Azure it is the resource
	// endpoint and is required.
	BaseURL string

	// EmbeddingModel is the embedding model, or the deployment name on Azure.
	EmbeddingModel string

	// CompletionModel is the chat model, or the deployment name on Azure.
	CompletionModel string

	// HTTPClient overrides the transport (default: a fresh http.Client).
	HTTPClient *http.Client
}

// Provider embeds and completes through the OpenAI API.
type Provider struct {
	name            domain.ProviderName
	client          *goopenai.Client
	httpClient      *http.Client
	embeddingModel  string
	completionModel string
}

// New creates an OpenAI provider.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai: API key is required", domain.ErrConfiguration)
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	return newProvider(domain.ProviderOpenAI, clientCfg, cfg), nil
}

// NewAzure creates an Azure OpenAI provider. Model names are used verbatim
// as deployment names.
func NewAzure(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: azure: API key is required", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: azure: endpoint is required", domain.ErrConfiguration)
	}

	clientCfg := goopenai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.BaseURL, "/"))
	clientCfg.AzureModelMapperFunc = func(model string) string {
		return model
	}

	return newProvider(domain.ProviderAzure, clientCfg, cfg), nil
}

func newProvider(name domain.ProviderName, clientCfg goopenai.ClientConfig, cfg Config) *Provider {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.CompletionModel == "" {
		cfg.CompletionModel = DefaultCompletionModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	clientCfg.HTTPClient = httpClient

	return &Provider{
		name:            name,
		client:          goopenai.NewClientWithConfig(clientCfg),
		httpClient:      httpClient,
		embeddingModel:  cfg.EmbeddingModel,
		completionModel: cfg.CompletionModel,
	}
}

// Name returns the provider variant.
func (p *Provider) Name() domain.ProviderName {
	return p.name
}

// Embed returns one vector per text, in input order.
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequestStrings{
		Input: texts,
		Model: goopenai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s embeddings: %w", domain.ErrProvider, p.name, unwrapAPIError(err))
	}

	data := resp.Data
	sort.SliceStable(data, func(i, j int) bool {
		return data[i].Index < data[j].Index
	})

	vectors := make([][]float32, len(data))
	for i, d := range data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

// Complete sends prompt as a single user message.
func (p *Provider) Complete(ctx context.Context, prompt string, opts domain.CompleteOptions) (*domain.Completion, error) {
	req := goopenai.ChatCompletionRequest{
		Model: p.completionModel,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: float32(opts.Temperature),
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s completion: %w", domain.ErrProvider, p.name, unwrapAPIError(err))
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: %s: no completion choices returned", domain.ErrProvider, p.name)
	}

	model := resp.Model
	if model == "" {
		model = p.completionModel
	}

	return &domain.Completion{
		Text:  strings.TrimSpace(resp.Choices[0].Message.Content),
		Model: model,
		Usage: domain.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Close releases idle connections.
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// unwrapAPIError surfaces the vendor message from an API error.
func unwrapAPIError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	return err
}
