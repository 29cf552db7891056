package flat

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndexStore = (*Manager)(nil)

// Manager owns the per-collection index files under one directory.
// Appends to a collection are serialised by an exclusive lock; searches
// take a shared lock and reload the latest persisted snapshot.
type Manager struct {
	dir       string
	dimension int

	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// NewManager creates a manager rooted at dir for vectors of dimension.
func NewManager(dir string, dimension int) (*Manager, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive, got %d", domain.ErrConfiguration, dimension)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating vector directory: %w", domain.ErrIndexIO, err)
	}

	return &Manager{
		dir:       dir,
		dimension: dimension,
		locks:     make(map[string]*sync.RWMutex),
	}, nil
}

// Dimension returns the deployment-wide vector size.
func (m *Manager) Dimension() int {
	return m.dimension
}

// PathFor returns the blob path for a collection.
func (m *Manager) PathFor(collectionID string) string {
	return filepath.Join(m.dir, IndexKey(collectionID)+BlobExt)
}

// Append adds vectors to a collection's index and persists them.
func (m *Manager) Append(ctx context.Context, collectionID string, vectors [][]float32, chunkIDs []string) error {
	l := m.lockFor(collectionID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	idx, err := Open(m.PathFor(collectionID), m.dimension)
	if err != nil {
		return err
	}
	return idx.Add(vectors, chunkIDs)
}

// Search queries a collection's latest persisted snapshot.
func (m *Manager) Search(ctx context.Context, collectionID string, query []float32, k int) ([]driven.VectorHit, error) {
	l := m.lockFor(collectionID)
	l.RLock()
	defer l.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := Open(m.PathFor(collectionID), m.dimension)
	if err != nil {
		return nil, err
	}
	return idx.Search(query, k)
}

// Count returns the number of vectors in a collection's index.
func (m *Manager) Count(ctx context.Context, collectionID string) (int, error) {
	l := m.lockFor(collectionID)
	l.RLock()
	defer l.RUnlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	idx, err := Open(m.PathFor(collectionID), m.dimension)
	if err != nil {
		return 0, err
	}
	return idx.Count(), nil
}

// Reset clears a collection's index and persists the empty state.
func (m *Manager) Reset(ctx context.Context, collectionID string) error {
	l := m.lockFor(collectionID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	idx := &Index{
		path:      m.PathFor(collectionID),
		dimension: m.dimension,
		slots:     make(map[int64]string),
	}
	return idx.Reset()
}

// Replace rebuilds a collection's index from the entries build returns.
// The exclusive lock is held from reading the current entries until the
// replacement is persisted. When build fails the index is left untouched.
func (m *Manager) Replace(ctx context.Context, collectionID string,
	build func(current []driven.IndexEntry) ([]driven.IndexEntry, error)) (int, error) {
	l := m.lockFor(collectionID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	idx, err := Open(m.PathFor(collectionID), m.dimension)
	if err != nil {
		return 0, err
	}

	entries, err := build(idx.Entries())
	if err != nil {
		return 0, err
	}

	vectors := make([][]float32, len(entries))
	chunkIDs := make([]string, len(entries))
	for i, e := range entries {
		vectors[i] = e.Vector
		chunkIDs[i] = e.ChunkID
	}

	idx.vectors = nil
	idx.slots = make(map[int64]string)
	if len(entries) == 0 {
		return 0, idx.Save()
	}
	if err := idx.Add(vectors, chunkIDs); err != nil {
		return 0, err
	}
	return idx.Count(), nil
}

// Delete removes a collection's index files.
func (m *Manager) Delete(ctx context.Context, collectionID string) error {
	l := m.lockFor(collectionID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return Delete(m.PathFor(collectionID))
}

// lockFor returns the lock guarding a collection's files.
func (m *Manager) lockFor(collectionID string) *sync.RWMutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.locks[collectionID]
	if !ok {
		l = &sync.RWMutex{}
		m.locks[collectionID] = l
	}
	return l
}
