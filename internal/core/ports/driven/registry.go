package driven

import "context"

// NormaliserRegistry selects a normaliser by file extension.
type NormaliserRegistry interface {
	// Normalise extracts text using the normaliser for filename's extension,
	// falling back to plain text for unknown extensions.
	Normalise(ctx context.Context, data []byte, filename string) (string, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedExtensions returns all registered extensions.
	SupportedExtensions() []string
}
