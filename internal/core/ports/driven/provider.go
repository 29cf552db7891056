package driven

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// Provider is the capability set offered by one vendor integration.
// Completion-only variants return domain.ErrUnsupportedOperation from Embed.
type Provider interface {
	// Name returns the provider variant name.
	Name() domain.ProviderName

	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Complete generates text for a prompt and reports the model actually
	// used together with token usage (zeros when the vendor omits usage).
	Complete(ctx context.Context, prompt string, opts domain.CompleteOptions) (*domain.Completion, error)

	// Close releases resources.
	Close() error
}

// ProviderFactory builds providers from resolved configuration.
type ProviderFactory interface {
	// Create returns the variant selected by cfg.Name.
	// Unknown names and missing settings are configuration errors.
	Create(cfg domain.ProviderConfig) (Provider, error)
}
