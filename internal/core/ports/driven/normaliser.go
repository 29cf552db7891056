package driven

import "context"

// Normaliser extracts plain text from uploaded bytes.
// Each normaliser handles a set of file extensions.
type Normaliser interface {
	// SupportedExtensions returns lower-case extensions including the dot.
	SupportedExtensions() []string

	// Normalise returns the extracted text.
	Normalise(ctx context.Context, data []byte, filename string) (string, error)
}
