package driven

import "github.com/custodia-labs/kbase/internal/core/domain"

// ProviderDirectory resolves provider names to connection settings.
// It is read-only once constructed.
type ProviderDirectory interface {
	// Resolve returns the settings for name or domain.ErrNotFound.
	Resolve(name string) (*domain.ProviderConfig, error)

	// Names returns the configured provider names in sorted order.
	Names() []string
}
