package driven

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// CollectionStore persists collection configuration.
type CollectionStore interface {
	// Save creates or updates a collection.
	// Returns domain.ErrAlreadyExists if another collection has the same name.
	Save(ctx context.Context, collection *domain.Collection) error

	// Get retrieves a collection by ID.
	Get(ctx context.Context, id string) (*domain.Collection, error)

	// GetByName retrieves a collection by its unique name.
	GetByName(ctx context.Context, name string) (*domain.Collection, error)

	// List returns all collections ordered by name.
	List(ctx context.Context) ([]domain.Collection, error)

	// Delete removes a collection and everything it owns.
	Delete(ctx context.Context, id string) error
}

// DocumentStore persists documents, chunks and their embedding audit rows.
type DocumentStore interface {
	// CreateDocument inserts a document and commits immediately.
	CreateDocument(ctx context.Context, doc *domain.Document) error

	// UpdateStatus moves a document to status with an optional reason.
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, reason string) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns a collection's documents, newest first.
	ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error)

	// DeleteDocument removes a document with its chunks and embeddings.
	DeleteDocument(ctx context.Context, id string) error

	// DeleteDocuments removes every document in a collection.
	DeleteDocuments(ctx context.Context, collectionID string) error

	// SaveChunks inserts chunks and their embeddings in one transaction.
	// Each chunk row is inserted first to obtain its ID, then its embedding.
	// The returned chunks are in input order.
	SaveChunks(ctx context.Context, documentID string, inputs []domain.ChunkInput) ([]domain.Chunk, error)

	// GetChunksByIDs fetches chunks by ID. Order is unspecified and
	// unknown IDs are skipped.
	GetChunksByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)

	// CountChunks returns the number of chunk rows in a collection.
	CountChunks(ctx context.Context, collectionID string) (int, error)

	// ListEmbeddings returns the stored embeddings of a collection's ready
	// documents, ordered by document creation then chunk index.
	ListEmbeddings(ctx context.Context, collectionID string) ([]domain.Embedding, error)
}

// QueryLogStore persists answered queries and their feedback.
type QueryLogStore interface {
	// Save inserts a query log.
	Save(ctx context.Context, log *domain.QueryLog) error

	// Get retrieves a query log by ID.
	Get(ctx context.Context, id string) (*domain.QueryLog, error)

	// List returns a collection's logs, newest first, at most limit rows.
	List(ctx context.Context, collectionID string, limit int) ([]domain.QueryLog, error)

	// SetFeedback overwrites the feedback on a log.
	SetFeedback(ctx context.Context, id string, rating int, comment string) error
}
