package postprocessors

import (
	"github.com/custodia-labs/kbase/internal/postprocessors/chunker"
)

// Built-in chunking strategy tags.
const (
	// StrategyWords is the plain word-window strategy.
	StrategyWords = "words"

	// StrategyRecursive is the default tag given to new collections.
	// It uses the same word windows.
	StrategyRecursive = "recursive"
)

// RegisterDefaults registers all built-in chunking strategies.
func RegisterDefaults(r *Registry) {
	words := chunker.New()
	r.Register(StrategyWords, words)
	r.Register(StrategyRecursive, words)
}

// NewDefaultRegistry returns a registry with the built-in strategies.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
