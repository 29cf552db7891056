package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
// It is also the registry's fallback for unknown extensions.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{
		".txt",
		".text",
		".log",
		".csv",
		".tsv",
		".json",
		".xml",
		".yaml",
		".yml",
		".toml",
		".ini",
		".go",
		".py",
		".rs",
		".java",
		".c",
		".h",
		".cpp",
		".rb",
		".sh",
		".sql",
		".js",
		".ts",
		".css",
	}
}

// Normalise decodes data as UTF-8, dropping invalid byte sequences.
func (n *Normaliser) Normalise(_ context.Context, data []byte, _ string) (string, error) {
	return Decode(data), nil
}

// Decode converts bytes to text, dropping invalid UTF-8 and NUL bytes.
func Decode(data []byte) string {
	text := strings.ToValidUTF8(string(data), "")
	return strings.ReplaceAll(text, "\x00", "")
}
