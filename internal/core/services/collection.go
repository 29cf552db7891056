package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure CollectionService implements the interface.
var _ driving.CollectionService = (*CollectionService)(nil)

// CollectionService administers collections, their documents and indexes.
type CollectionService struct {
	collections driven.CollectionStore
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndexStore
	chunkers    driven.ChunkerRegistry
	directory   driven.ProviderDirectory
}

// NewCollectionService creates a new collection service.
// The chunker registry and directory are optional; without a registry
// strategies are not checked at creation.
func NewCollectionService(
	collections driven.CollectionStore,
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndexStore,
	chunkers driven.ChunkerRegistry,
	directory driven.ProviderDirectory,
) *CollectionService {
	return &CollectionService{
		collections: collections,
		docStore:    docStore,
		vectorIndex: vectorIndex,
		chunkers:    chunkers,
		directory:   directory,
	}
}

// Create validates, applies defaults and stores a new collection.
func (s *CollectionService) Create(ctx context.Context, collection domain.Collection) (*domain.Collection, error) {
	collection.Name = strings.TrimSpace(collection.Name)
	collection.Provider = strings.ToLower(strings.TrimSpace(collection.Provider))
	collection.ApplyDefaults()

	if err := collection.Validate(); err != nil {
		return nil, err
	}
	if s.chunkers != nil {
		if _, err := s.chunkers.Resolve(collection.ChunkingStrategy); err != nil {
			return nil, err
		}
	}
	if !domain.ProviderName(collection.Provider).IsValid() {
		return nil, fmt.Errorf("%w: unknown provider %q", domain.ErrConfiguration, collection.Provider)
	}

	collection.ID = uuid.New().String()
	if err := s.collections.Save(ctx, &collection); err != nil {
		return nil, err
	}
	logger.Info("Created collection %s (%s)", collection.Name, collection.ID)
	return &collection, nil
}

// Get retrieves a collection by ID.
func (s *CollectionService) Get(ctx context.Context, id string) (*domain.Collection, error) {
	return s.collections.Get(ctx, id)
}

// Resolve finds a collection by name, then by ID.
func (s *CollectionService) Resolve(ctx context.Context, nameOrID string) (*domain.Collection, error) {
	key := strings.TrimSpace(nameOrID)
	if key == "" {
		return nil, fmt.Errorf("%w: collection name or id is required", domain.ErrInvalidInput)
	}

	c, err := s.collections.GetByName(ctx, key)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	c, err = s.collections.Get(ctx, key)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: collection %q", domain.ErrNotFound, key)
	}
	return c, err
}

// List returns all collections.
func (s *CollectionService) List(ctx context.Context) ([]domain.Collection, error) {
	return s.collections.List(ctx)
}

// Delete removes a collection, its documents and its index files.
func (s *CollectionService) Delete(ctx context.Context, id string) error {
	if _, err := s.collections.Get(ctx, id); err != nil {
		return err
	}
	if err := s.docStore.DeleteDocuments(ctx, id); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if err := s.collections.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	if err := s.vectorIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	logger.Info("Deleted collection %s", id)
	return nil
}

// ListDocuments returns a collection's documents, newest first.
func (s *CollectionService) ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error) {
	if _, err := s.collections.Get(ctx, collectionID); err != nil {
		return nil, err
	}
	return s.docStore.ListDocuments(ctx, collectionID)
}

// DeleteDocument removes a document's rows. Its index slots stay behind
// and are skipped at query time.
func (s *CollectionService) DeleteDocument(ctx context.Context, documentID string) error {
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	logger.Debug("Deleted document %s", documentID)
	return nil
}

// ClearDocuments removes every document and resets the index.
func (s *CollectionService) ClearDocuments(ctx context.Context, collectionID string) error {
	if _, err := s.collections.Get(ctx, collectionID); err != nil {
		return err
	}
	if err := s.docStore.DeleteDocuments(ctx, collectionID); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}
	if err := s.vectorIndex.Reset(ctx, collectionID); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	logger.Info("Cleared collection %s", collectionID)
	return nil
}

// Rebuild replaces the index with every stored embedding of the
// collection's ready documents. Vectors already appended for documents
// still processing are carried over. The whole rebuild holds the
// collection's index lock, so a concurrent ingestion appends either
// before it or after it.
func (s *CollectionService) Rebuild(ctx context.Context, collectionID string) (int, error) {
	logger.Section("Rebuild")
	if _, err := s.collections.Get(ctx, collectionID); err != nil {
		return 0, err
	}

	dimension := s.vectorIndex.Dimension()
	n, err := s.vectorIndex.Replace(ctx, collectionID, func(current []driven.IndexEntry) ([]driven.IndexEntry, error) {
		embeddings, err := s.docStore.ListEmbeddings(ctx, collectionID)
		if err != nil {
			return nil, fmt.Errorf("list embeddings: %w", err)
		}

		entries := make([]driven.IndexEntry, 0, len(embeddings))
		ready := make(map[string]bool, len(embeddings))
		for _, e := range embeddings {
			if len(e.Vector) != dimension {
				logger.Warn("Skipping embedding for chunk %s: %d dimensions, index expects %d",
					e.ChunkID, len(e.Vector), dimension)
				continue
			}
			ready[e.ChunkID] = true
			entries = append(entries, driven.IndexEntry{ChunkID: e.ChunkID, Vector: e.Vector})
		}

		inFlight, err := s.processingEntries(ctx, current, ready)
		if err != nil {
			return nil, err
		}
		return append(entries, inFlight...), nil
	})
	if err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	logger.Info("Rebuilt index for %s with %d vectors", collectionID, n)
	return n, nil
}

// processingEntries keeps the indexed entries of documents that are still
// being ingested. Entries of ready documents, deleted chunks and failed
// documents are dropped.
func (s *CollectionService) processingEntries(
	ctx context.Context,
	current []driven.IndexEntry,
	ready map[string]bool,
) ([]driven.IndexEntry, error) {
	var ids []string
	for _, e := range current {
		if !ready[e.ChunkID] {
			ids = append(ids, e.ChunkID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}

	chunks, err := s.docStore.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load indexed chunks: %w", err)
	}

	status := make(map[string]domain.DocumentStatus)
	keep := make(map[string]bool, len(chunks))
	for _, c := range chunks {
		st, ok := status[c.DocumentID]
		if !ok {
			doc, err := s.docStore.GetDocument(ctx, c.DocumentID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					status[c.DocumentID] = ""
					continue
				}
				return nil, fmt.Errorf("load document %s: %w", c.DocumentID, err)
			}
			st = doc.Status
			status[c.DocumentID] = st
		}
		if st == domain.DocumentProcessing {
			keep[c.ID] = true
		}
	}

	var kept []driven.IndexEntry
	for _, e := range current {
		if keep[e.ChunkID] {
			kept = append(kept, e)
			delete(keep, e.ChunkID)
		}
	}
	return kept, nil
}

// Stats reports document counts by status alongside chunk-row and
// index counts.
func (s *CollectionService) Stats(ctx context.Context, collectionID string) (*domain.CollectionStats, error) {
	if _, err := s.collections.Get(ctx, collectionID); err != nil {
		return nil, err
	}

	docs, err := s.docStore.ListDocuments(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	stats := &domain.CollectionStats{
		CollectionID: collectionID,
		Documents:    make(map[domain.DocumentStatus]int),
	}
	for i := range docs {
		stats.Documents[docs[i].Status]++
	}

	if stats.ChunkRows, err = s.docStore.CountChunks(ctx, collectionID); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	if stats.IndexCount, err = s.vectorIndex.Count(ctx, collectionID); err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}
	if !stats.Consistent() {
		logger.Warn("Collection %s has %d chunk rows but %d indexed vectors",
			collectionID, stats.ChunkRows, stats.IndexCount)
	}
	return stats, nil
}

// Providers returns the configured provider names.
func (s *CollectionService) Providers() []string {
	if s.directory == nil {
		return nil
	}
	return s.directory.Names()
}
