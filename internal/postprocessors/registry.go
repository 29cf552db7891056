// Package postprocessors provides text post-processing used during ingestion.
package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ChunkerRegistry = (*Registry)(nil)

// Registry maps chunking strategy tags to chunkers.
type Registry struct {
	chunkers map[string]driven.Chunker
}

// NewRegistry creates an empty chunker registry.
func NewRegistry() *Registry {
	return &Registry{
		chunkers: make(map[string]driven.Chunker),
	}
}

// Register binds a strategy tag to a chunker.
func (r *Registry) Register(strategy string, chunker driven.Chunker) {
	r.chunkers[strategy] = chunker
}

// Resolve returns the chunker for strategy.
// Unknown strategies are configuration errors.
func (r *Registry) Resolve(strategy string) (driven.Chunker, error) {
	chunker, ok := r.chunkers[strategy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown chunking strategy %q", domain.ErrConfiguration, strategy)
	}
	return chunker, nil
}

// Has returns true if the strategy is registered.
func (r *Registry) Has(strategy string) bool {
	_, ok := r.chunkers[strategy]
	return ok
}

// Names returns all registered strategy tags in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.chunkers))
	for name := range r.chunkers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
