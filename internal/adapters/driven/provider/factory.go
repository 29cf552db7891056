// Package provider builds provider adapters from resolved configuration.
package provider

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/kbase/internal/adapters/driven/provider/anthropic"
	"github.com/custodia-labs/kbase/internal/adapters/driven/provider/cohere"
	"github.com/custodia-labs/kbase/internal/adapters/driven/provider/ollama"
	"github.com/custodia-labs/kbase/internal/adapters/driven/provider/openai"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Factory implements the interface.
var _ driven.ProviderFactory = (*Factory)(nil)

// builder constructs one provider variant.
type builder func(cfg domain.ProviderConfig) (driven.Provider, error)

// builders is the closed variant table.
var builders = map[domain.ProviderName]builder{
	domain.ProviderOpenAI: func(cfg domain.ProviderConfig) (driven.Provider, error) {
		return openai.New(openai.Config{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.Endpoint,
			EmbeddingModel:  cfg.EmbeddingModel,
			CompletionModel: cfg.CompletionModel,
		})
	},
	domain.ProviderAzure: func(cfg domain.ProviderConfig) (driven.Provider, error) {
		return openai.NewAzure(openai.Config{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.Endpoint,
			EmbeddingModel:  cfg.EmbeddingModel,
			CompletionModel: cfg.CompletionModel,
		})
	},
	domain.ProviderCohere: func(cfg domain.ProviderConfig) (driven.Provider, error) {
		return cohere.New(cohere.Config{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.Endpoint,
			EmbeddingModel:  cfg.EmbeddingModel,
			CompletionModel: cfg.CompletionModel,
		})
	},
	domain.ProviderAnthropic: func(cfg domain.ProviderConfig) (driven.Provider, error) {
		return anthropic.New(anthropic.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.Endpoint,
			Model:   cfg.CompletionModel,
		})
	},
	domain.ProviderOllama: func(cfg domain.ProviderConfig) (driven.Provider, error) {
		return ollama.New(ollama.Config{
			BaseURL: cfg.Endpoint,
			Model:   cfg.CompletionModel,
		}), nil
	},
}

// Factory creates providers by variant name.
// When a rate limit is set, every provider of the same name shares one
// token bucket for the lifetime of the factory.
type Factory struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[domain.ProviderName]*rate.Limiter
}

// NewFactory creates a factory. A non-positive rps disables limiting.
func NewFactory(rps float64, burst int) *Factory {
	if burst < 1 {
		burst = domain.DefaultRateBurst
	}
	return &Factory{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[domain.ProviderName]*rate.Limiter),
	}
}

// NewFactoryFromSettings creates a factory using the settings' rate limit.
func NewFactoryFromSettings(settings *domain.Settings) *Factory {
	return NewFactory(settings.RateLimit, settings.RateBurst)
}

// Create returns the variant selected by cfg.Name.
func (f *Factory) Create(cfg domain.ProviderConfig) (driven.Provider, error) {
	build, ok := builders[cfg.Name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, cfg.Name)
	}

	p, err := build(cfg)
	if err != nil {
		return nil, err
	}

	if f.limit <= 0 {
		return p, nil
	}
	return &rateLimited{Provider: p, limiter: f.limiterFor(cfg.Name)}, nil
}

// SupportedProviders returns the names the factory can build.
func (f *Factory) SupportedProviders() []domain.ProviderName {
	names := make([]domain.ProviderName, 0, len(builders))
	for _, name := range domain.AllProviders() {
		if _, ok := builders[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

func (f *Factory) limiterFor(name domain.ProviderName) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	limiter, ok := f.limiters[name]
	if !ok {
		limiter = rate.NewLimiter(f.limit, f.burst)
		f.limiters[name] = limiter
	}
	return limiter
}

// rateLimited waits on a token bucket before each vendor call.
type rateLimited struct {
	driven.Provider
	limiter *rate.Limiter
}

func (r *rateLimited) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.Embed(ctx, texts)
}

func (r *rateLimited) Complete(ctx context.Context, prompt string, opts domain.CompleteOptions) (*domain.Completion, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.Provider.Complete(ctx, prompt, opts)
}

func (r *rateLimited) wait(ctx context.Context) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s rate limit wait: %w", domain.ErrProvider, r.Name(), err)
	}
	return nil
}
