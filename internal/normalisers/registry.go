package normalisers

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
	"github.com/custodia-labs/kbase/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry selects a normaliser by lower-cased file extension.
// A later registration for the same extension replaces the earlier one.
type Registry struct {
	mu       sync.RWMutex
	byExt    map[string]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates an empty registry with a plain text fallback.
func NewRegistry() *Registry {
	return &Registry{
		byExt:    make(map[string]driven.Normaliser),
		fallback: plaintext.New(),
	}
}

// Register adds a normaliser for each of its extensions.
func (r *Registry) Register(normaliser driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ext := range normaliser.SupportedExtensions() {
		r.byExt[strings.ToLower(ext)] = normaliser
	}
}

// Normalise extracts text with the normaliser for filename's extension.
func (r *Registry) Normalise(ctx context.Context, data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	r.mu.RLock()
	normaliser, ok := r.byExt[ext]
	r.mu.RUnlock()

	if !ok {
		logger.Debug("No normaliser for %q, decoding %s as plain text", ext, filename)
		normaliser = r.fallback
	}
	return normaliser.Normalise(ctx, data, filename)
}

// SupportedExtensions returns all registered extensions in sorted order.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
