package driven

// Chunker splits extracted text into overlapping word-windows.
// Implementations are pure: identical input yields identical output.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Split returns the non-empty windows of text.
	// size - overlap <= 0 is a configuration error raised before chunking.
	Split(text string, size, overlap int) ([]string, error)
}

// ChunkerRegistry resolves a collection's strategy tag to a Chunker.
type ChunkerRegistry interface {
	// Resolve returns the chunker for strategy or a configuration error.
	Resolve(strategy string) (Chunker, error)
}
