package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// providerResolver builds the provider a collection is configured for.
type providerResolver struct {
	directory driven.ProviderDirectory
	factory   driven.ProviderFactory
	timeout   time.Duration
}

// resolve looks up the collection's provider by name and creates it.
// The collection's embedding model overrides the directory's.
func (r providerResolver) resolve(collection *domain.Collection) (driven.Provider, error) {
	if r.directory == nil || r.factory == nil {
		return nil, fmt.Errorf("%w: provider directory not configured", domain.ErrConfiguration)
	}

	cfg, err := r.directory.Resolve(collection.Provider)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: AI provider %q not found or not enabled",
				domain.ErrConfiguration, collection.Provider)
		}
		return nil, err
	}
	if collection.EmbeddingModel != "" {
		cfg.EmbeddingModel = collection.EmbeddingModel
	}

	provider, err := r.factory.Create(*cfg)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// embed calls the provider under the configured timeout and checks that it
// returned one vector of the given dimension per text.
func (r providerResolver) embed(ctx context.Context, p driven.Provider, texts []string, dimension int) ([][]float32, error) {
	callCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	vectors, err := p.Embed(callCtx, texts)
	if err != nil {
		return nil, asProviderError(err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d texts",
			domain.ErrProvider, p.Name(), len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != dimension {
			return nil, fmt.Errorf("%w: embedding %d has %d dimensions, index expects %d",
				domain.ErrDimensionMismatch, i, len(v), dimension)
		}
	}
	return vectors, nil
}

// complete calls the provider under the configured timeout.
func (r providerResolver) complete(ctx context.Context, p driven.Provider, prompt string) (*domain.Completion, error) {
	callCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	completion, err := p.Complete(callCtx, prompt, domain.CompleteOptions{})
	if err != nil {
		return nil, asProviderError(err)
	}
	return completion, nil
}

func (r providerResolver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithTimeout(ctx, domain.DefaultProviderTimeout)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// asProviderError leaves classified errors alone and marks anything else,
// such as a bare deadline, as a provider failure.
func asProviderError(err error) error {
	if domain.KindOf(err) != domain.KindUnknown {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrProvider, err)
}
