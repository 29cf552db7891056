package normalisers

import (
	"github.com/custodia-labs/kbase/internal/normalisers/docx"
	"github.com/custodia-labs/kbase/internal/normalisers/html"
	"github.com/custodia-labs/kbase/internal/normalisers/markdown"
	"github.com/custodia-labs/kbase/internal/normalisers/pdf"
	"github.com/custodia-labs/kbase/internal/normalisers/plaintext"
)

// RegisterDefaults registers all built-in normalisers.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
}

// NewDefaultRegistry returns a registry with the built-in normalisers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
