package driven

import "context"

// VectorIndexStore manages one persistent flat L2 index per collection.
// Appends to a collection are serialised; searches see either the
// pre-append or post-append snapshot, never a partial one.
type VectorIndexStore interface {
	// Append adds vectors keyed by chunk IDs and persists before returning.
	Append(ctx context.Context, collectionID string, vectors [][]float32, chunkIDs []string) error

	// Search returns up to k hits ordered by ascending squared L2 distance.
	// An empty or missing index yields no hits and no error.
	Search(ctx context.Context, collectionID string, query []float32, k int) ([]VectorHit, error)

	// Count returns the number of vectors in the collection's index.
	Count(ctx context.Context, collectionID string) (int, error)

	// Reset clears the collection's index and persists the empty state.
	Reset(ctx context.Context, collectionID string) error

	// Replace swaps the collection's index for the entries build returns.
	// build runs under the collection's exclusive lock and receives the
	// current entries in slot order, so no append can interleave.
	// It returns the number of vectors in the new index.
	Replace(ctx context.Context, collectionID string, build func(current []IndexEntry) ([]IndexEntry, error)) (int, error)

	// Delete removes the collection's index files. Missing files are not an error.
	Delete(ctx context.Context, collectionID string) error

	// Dimension returns the deployment-wide vector size.
	Dimension() int
}

// VectorHit is one nearest-neighbour result.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Distance is the squared Euclidean distance to the query.
	Distance float32
}

// IndexEntry is one indexed vector and the chunk it belongs to.
type IndexEntry struct {
	ChunkID string
	Vector  []float32
}
