// Package credentials resolves provider names to connection settings.
package credentials

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Directory implements the interface.
var _ driven.ProviderDirectory = (*Directory)(nil)

// Directory is an immutable provider directory.
// It copies its input so later changes to the source map are not seen.
type Directory struct {
	providers map[string]domain.ProviderConfig
	names     []string
}

// NewDirectory creates a directory from configured providers.
// The map key wins over a config's own Name field.
func NewDirectory(providers map[domain.ProviderName]domain.ProviderConfig) *Directory {
	d := &Directory{
		providers: make(map[string]domain.ProviderConfig, len(providers)),
		names:     make([]string, 0, len(providers)),
	}
	for name, cfg := range providers {
		cfg.Name = name
		d.providers[string(name)] = cfg
		d.names = append(d.names, string(name))
	}
	sort.Strings(d.names)
	return d
}

// NewDirectoryFromSettings creates a directory from the deployment settings.
func NewDirectoryFromSettings(settings *domain.Settings) *Directory {
	return NewDirectory(settings.Providers)
}

// Resolve returns the settings for name. Names are case-insensitive.
func (d *Directory) Resolve(name string) (*domain.ProviderConfig, error) {
	cfg, ok := d.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: provider %q is not configured", domain.ErrNotFound, name)
	}
	return &cfg, nil
}

// Names returns the configured provider names in sorted order.
func (d *Directory) Names() []string {
	return append([]string(nil), d.names...)
}
