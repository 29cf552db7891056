package driving

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// CollectionService administers collections and their documents.
type CollectionService interface {
	// Create validates, applies defaults and stores a new collection.
	Create(ctx context.Context, collection domain.Collection) (*domain.Collection, error)

	// Get retrieves a collection by ID.
	Get(ctx context.Context, id string) (*domain.Collection, error)

	// Resolve finds a collection by name, falling back to ID.
	Resolve(ctx context.Context, nameOrID string) (*domain.Collection, error)

	// List returns all collections.
	List(ctx context.Context) ([]domain.Collection, error)

	// Delete removes a collection, its rows and its index files.
	Delete(ctx context.Context, id string) error

	// ListDocuments returns a collection's documents.
	ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error)

	// DeleteDocument removes one document and its chunk rows.
	DeleteDocument(ctx context.Context, documentID string) error

	// ClearDocuments removes every document and resets the index.
	ClearDocuments(ctx context.Context, collectionID string) error

	// Rebuild resets the collection's index and re-appends every stored
	// embedding of its ready documents. Returns the number of vectors indexed.
	Rebuild(ctx context.Context, collectionID string) (int, error)

	// Stats reports document, chunk-row and index counts.
	Stats(ctx context.Context, collectionID string) (*domain.CollectionStats, error)

	// Providers returns the configured provider names.
	Providers() []string
}
