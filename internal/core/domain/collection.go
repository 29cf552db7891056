package domain

import (
	"fmt"
	"strings"
	"time"
)

// Collection defaults applied when an operator omits a setting.
const (
	DefaultChunkingStrategy = "recursive"
	DefaultChunkSize        = 1000
	DefaultChunkOverlap     = 200
	DefaultProvider         = ProviderOpenAI
	DefaultEmbeddingModel   = "text-embedding-ada-002"
)

// Collection is a named, independently configured knowledge base.
// It is read-only to the ingestion and query pipelines.
type Collection struct {
	// ID is the unique identifier and the key of the collection's vector index.
	ID string

	// Name is the unique human-readable name.
	Name string

	// Description is optional free text.
	Description string

	// Provider is the provider name resolved through the provider directory.
	Provider string

	// EmbeddingModel overrides the provider's configured embedding model.
	EmbeddingModel string

	// ChunkingStrategy is the tag selecting a chunker.
	ChunkingStrategy string

	// ChunkSize is the window size in words.
	ChunkSize int

	// ChunkOverlap is the number of words shared by consecutive windows.
	ChunkOverlap int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ApplyDefaults fills unset fields with the collection defaults.
func (c *Collection) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = string(DefaultProvider)
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.ChunkingStrategy == "" {
		c.ChunkingStrategy = DefaultChunkingStrategy
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
		if c.ChunkOverlap == 0 {
			c.ChunkOverlap = DefaultChunkOverlap
		}
	}
}

// Validate checks the collection's own invariants.
func (c *Collection) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	return ValidateChunking(c.ChunkSize, c.ChunkOverlap)
}

// ValidateChunking enforces 0 <= overlap < size.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, size)
	}
	if overlap < 0 {
		return fmt.Errorf("%w: chunk overlap must not be negative, got %d", ErrConfiguration, overlap)
	}
	if overlap >= size {
		return fmt.Errorf("%w: chunk overlap (%d) must be smaller than chunk size (%d)",
			ErrConfiguration, overlap, size)
	}
	return nil
}

// CollectionStats summarises a collection's stored state.
// ChunkRows and IndexCount differ only when an index append failed
// after its rows were committed.
type CollectionStats struct {
	CollectionID string
	Documents    map[DocumentStatus]int
	ChunkRows    int
	IndexCount   int
}

// Consistent reports whether every chunk row has a vector in the index.
func (s CollectionStats) Consistent() bool {
	return s.ChunkRows == s.IndexCount
}
