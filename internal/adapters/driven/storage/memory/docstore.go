package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	chunks     map[string]domain.Chunk
	embeddings map[string]domain.Embedding // keyed by chunk ID
	order      map[string]int              // document insertion order
	nextSeq    int
	nextEmbID  int64
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents:  make(map[string]domain.Document),
		chunks:     make(map[string]domain.Chunk),
		embeddings: make(map[string]domain.Embedding),
		order:      make(map[string]int),
	}
}

// CreateDocument inserts a document.
func (s *DocumentStore) CreateDocument(_ context.Context, doc *domain.Document) error {
	if !doc.Status.IsValid() {
		return fmt.Errorf("%w: document status %q", domain.ErrInvalidInput, doc.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if _, exists := s.documents[doc.ID]; exists {
		return fmt.Errorf("%w: document %s", domain.ErrAlreadyExists, doc.ID)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	s.documents[doc.ID] = *doc
	s.order[doc.ID] = s.nextSeq
	s.nextSeq++
	return nil
}

// UpdateStatus moves a document to a new status.
func (s *DocumentStore) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, reason string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: document status %q", domain.ErrInvalidInput, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	doc.Reason = reason
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// ListDocuments returns a collection's documents, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, collectionID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := s.collectionDocuments(collectionID)
	sort.SliceStable(result, func(i, j int) bool {
		return s.order[result[i].ID] > s.order[result[j].ID]
	})
	return result, nil
}

// DeleteDocument removes a document with its chunks and embeddings.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	s.deleteDocument(id)
	return nil
}

// DeleteDocuments removes every document in a collection.
func (s *DocumentStore) DeleteDocuments(_ context.Context, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.collectionDocuments(collectionID) {
		s.deleteDocument(doc.ID)
	}
	return nil
}

// SaveChunks stores chunks and their embeddings. Either all inputs are
// stored or none are.
func (s *DocumentStore) SaveChunks(_ context.Context, documentID string, inputs []domain.ChunkInput) ([]domain.Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(inputs) == 0 {
		return []domain.Chunk{}, nil
	}
	if _, ok := s.documents[documentID]; !ok {
		return nil, fmt.Errorf("saving chunks: document %s: %w", documentID, domain.ErrNotFound)
	}

	seen := make(map[int]bool, len(inputs))
	for _, c := range s.chunks {
		if c.DocumentID == documentID {
			seen[c.Index] = true
		}
	}
	for _, in := range inputs {
		if seen[in.Index] {
			return nil, fmt.Errorf("%w: chunk %d of document %s", domain.ErrAlreadyExists, in.Index, documentID)
		}
		seen[in.Index] = true
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(inputs))
	for _, in := range inputs {
		chunk := domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Index:      in.Index,
			Content:    in.Content,
			CreatedAt:  now,
		}
		s.nextEmbID++
		s.chunks[chunk.ID] = chunk
		s.embeddings[chunk.ID] = domain.Embedding{
			ID:        s.nextEmbID,
			ChunkID:   chunk.ID,
			Provider:  in.Provider,
			Model:     in.Model,
			Version:   in.Version,
			Vector:    append([]float32(nil), in.Vector...),
			CreatedAt: now,
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

// GetChunksByIDs fetches chunks by ID. Unknown IDs are skipped.
func (s *DocumentStore) GetChunksByIDs(_ context.Context, ids []string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.chunks[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

// CountChunks returns the number of chunk rows in a collection.
func (s *DocumentStore) CountChunks(_ context.Context, collectionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, c := range s.chunks {
		if doc, ok := s.documents[c.DocumentID]; ok && doc.CollectionID == collectionID {
			count++
		}
	}
	return count, nil
}

// ListEmbeddings returns the embeddings of a collection's ready documents,
// in document insertion order then chunk index.
func (s *DocumentStore) ListEmbeddings(_ context.Context, collectionID string) ([]domain.Embedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collectionDocuments(collectionID)
	sort.Slice(docs, func(i, j int) bool {
		return s.order[docs[i].ID] < s.order[docs[j].ID]
	})

	var result []domain.Embedding
	for _, doc := range docs {
		if doc.Status != domain.DocumentReady {
			continue
		}
		var chunks []domain.Chunk
		for _, c := range s.chunks {
			if c.DocumentID == doc.ID {
				chunks = append(chunks, c)
			}
		}
		sort.Slice(chunks, func(i, j int) bool {
			return chunks[i].Index < chunks[j].Index
		})
		for _, c := range chunks {
			result = append(result, s.embeddings[c.ID])
		}
	}
	return result, nil
}

// collectionDocuments returns copies of a collection's documents.
// Caller must hold the lock.
func (s *DocumentStore) collectionDocuments(collectionID string) []domain.Document {
	result := make([]domain.Document, 0)
	for _, doc := range s.documents {
		if doc.CollectionID == collectionID {
			result = append(result, doc)
		}
	}
	return result
}

// deleteDocument removes a document and its chunks. Caller must hold the lock.
func (s *DocumentStore) deleteDocument(id string) {
	delete(s.documents, id)
	delete(s.order, id)
	for chunkID, c := range s.chunks {
		if c.DocumentID == id {
			delete(s.chunks, chunkID)
			delete(s.embeddings, chunkID)
		}
	}
}
