package flat

import (
	"cmp"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

const (
	// BlobExt is the extension of the index blob.
	BlobExt = ".vec"

	// SlotsSuffix is appended to the blob path to name the sidecar.
	SlotsSuffix = ".slots.json"

	magic         = "KBVI"
	formatVersion = 1
	headerSize    = 20
	maxKeyLength  = 128
)

var safeKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// errMissing reports that neither file exists yet.
var errMissing = errors.New("index files not present")

// IndexKey derives a filesystem-safe, stable key from a collection ID.
// Safe IDs are used verbatim; anything else is hashed.
func IndexKey(collectionID string) string {
	if len(collectionID) <= maxKeyLength && safeKey.MatchString(collectionID) {
		return collectionID
	}
	sum := sha256.Sum256([]byte(collectionID))
	return hex.EncodeToString(sum[:])
}

// SlotsPath returns the sidecar path for an index blob path.
func SlotsPath(path string) string {
	return path + SlotsSuffix
}

// Index is an in-memory flat L2 index bound to a blob path.
type Index struct {
	path      string
	dimension int
	vectors   []float32
	slots     map[int64]string
}

// slotFile is the on-disk sidecar format.
type slotFile struct {
	Dimension int              `json:"dimension"`
	Count     int              `json:"count"`
	Slots     map[int64]string `json:"slots"`
}

// Open loads the index at path, or starts an empty one when no files exist.
// Unreadable or inconsistent files never fail the caller: the condition is
// logged as data loss and an empty index is returned in their place.
func Open(path string, dimension int) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: vector dimension must be positive, got %d", domain.ErrConfiguration, dimension)
	}

	idx := &Index{
		path:      path,
		dimension: dimension,
		slots:     make(map[int64]string),
	}

	err := idx.load()
	switch {
	case err == nil, errors.Is(err, errMissing):
		return idx, nil
	default:
		logger.Error("vector index %s could not be loaded, starting empty (indexed vectors lost, re-ingest to rebuild): %v",
			path, err)
		idx.vectors = nil
		idx.slots = make(map[int64]string)
		return idx, nil
	}
}

// Path returns the blob path.
func (idx *Index) Path() string {
	return idx.path
}

// Dimension returns the vector size.
func (idx *Index) Dimension() int {
	return idx.dimension
}

// Count returns the number of vectors in the index.
func (idx *Index) Count() int {
	return len(idx.vectors) / idx.dimension
}

// Add appends vectors under consecutive slots and persists the index.
// On a persistence failure the in-memory state is rolled back.
func (idx *Index) Add(vectors [][]float32, chunkIDs []string) error {
	if len(vectors) == 0 {
		return fmt.Errorf("%w: no vectors to add", domain.ErrInvalidInput)
	}
	if len(vectors) != len(chunkIDs) {
		return fmt.Errorf("%w: %d vectors for %d chunk ids", domain.ErrInvalidInput, len(vectors), len(chunkIDs))
	}
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, index has %d",
				domain.ErrDimensionMismatch, i, len(v), idx.dimension)
		}
		if chunkIDs[i] == "" {
			return fmt.Errorf("%w: empty chunk id at position %d", domain.ErrInvalidInput, i)
		}
	}

	base := int64(idx.Count())
	prevLen := len(idx.vectors)

	for i, v := range vectors {
		idx.vectors = append(idx.vectors, v...)
		idx.slots[base+int64(i)] = chunkIDs[i]
	}

	if err := idx.Save(); err != nil {
		idx.vectors = idx.vectors[:prevLen]
		for i := range vectors {
			delete(idx.slots, base+int64(i))
		}
		return err
	}

	return nil
}

// candidate is a scored slot during search.
type candidate struct {
	slot     int64
	distance float32
}

// Search returns up to k hits by ascending squared L2 distance.
// Ties keep slot order. Slots without a chunk ID are skipped.
func (idx *Index) Search(query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), idx.dimension)
	}

	count := idx.Count()
	if count == 0 || k <= 0 {
		return []driven.VectorHit{}, nil
	}

	candidates := make([]candidate, count)
	for slot := 0; slot < count; slot++ {
		row := idx.vectors[slot*idx.dimension : (slot+1)*idx.dimension]
		candidates[slot] = candidate{slot: int64(slot), distance: squaredL2(query, row)}
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return cmp.Compare(a.distance, b.distance)
	})

	hits := make([]driven.VectorHit, 0, min(k, count))
	for _, c := range candidates {
		chunkID, ok := idx.slots[c.slot]
		if !ok {
			continue
		}
		hits = append(hits, driven.VectorHit{ChunkID: chunkID, Distance: c.distance})
		if len(hits) == k {
			break
		}
	}

	return hits, nil
}

// Entries returns the indexed vectors in slot order.
// Slots without a chunk ID are skipped.
func (idx *Index) Entries() []driven.IndexEntry {
	count := idx.Count()
	entries := make([]driven.IndexEntry, 0, count)
	for slot := 0; slot < count; slot++ {
		chunkID, ok := idx.slots[int64(slot)]
		if !ok {
			continue
		}
		vector := make([]float32, idx.dimension)
		copy(vector, idx.vectors[slot*idx.dimension:(slot+1)*idx.dimension])
		entries = append(entries, driven.IndexEntry{ChunkID: chunkID, Vector: vector})
	}
	return entries
}

// Reset clears all vectors and slots and persists the empty state.
func (idx *Index) Reset() error {
	idx.vectors = nil
	idx.slots = make(map[int64]string)
	return idx.Save()
}

// Save atomically writes the blob and sidecar.
func (idx *Index) Save() error {
	dir := filepath.Dir(idx.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("%w: creating index directory: %w", domain.ErrIndexIO, err)
	}

	slotData, err := json.Marshal(slotFile{
		Dimension: idx.dimension,
		Count:     idx.Count(),
		Slots:     idx.slots,
	})
	if err != nil {
		return fmt.Errorf("%w: encoding slot map: %w", domain.ErrIndexIO, err)
	}

	tmpSlots, err := writeTemp(dir, filepath.Base(idx.path), slotData)
	if err != nil {
		return err
	}

	tmpBlob, err := writeTemp(dir, filepath.Base(idx.path), idx.encodeBlob())
	if err != nil {
		os.Remove(tmpSlots) //nolint:errcheck
		return err
	}

	if err := os.Rename(tmpSlots, SlotsPath(idx.path)); err != nil {
		os.Remove(tmpSlots) //nolint:errcheck
		os.Remove(tmpBlob)  //nolint:errcheck
		return fmt.Errorf("%w: replacing slot map: %w", domain.ErrIndexIO, err)
	}

	if err := os.Rename(tmpBlob, idx.path); err != nil {
		os.Remove(tmpBlob) //nolint:errcheck
		return fmt.Errorf("%w: replacing index blob: %w", domain.ErrIndexIO, err)
	}

	return nil
}

// Delete removes the blob and sidecar at path.
// Files that are already absent count as deleted.
func Delete(path string) error {
	for _, p := range []string{path, SlotsPath(path)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: removing %s: %w", domain.ErrIndexIO, p, err)
		}
	}
	return nil
}

// load reads both files into idx.
func (idx *Index) load() error {
	blob, blobErr := os.ReadFile(idx.path)
	slotData, slotErr := os.ReadFile(SlotsPath(idx.path))

	if errors.Is(blobErr, fs.ErrNotExist) && errors.Is(slotErr, fs.ErrNotExist) {
		return errMissing
	}
	if blobErr != nil {
		return fmt.Errorf("%w: reading index blob: %w", domain.ErrIndexIO, blobErr)
	}
	if slotErr != nil {
		return fmt.Errorf("%w: reading slot map: %w", domain.ErrIndexIO, slotErr)
	}

	vectors, err := decodeBlob(blob, idx.dimension)
	if err != nil {
		return err
	}

	var sf slotFile
	if err := json.Unmarshal(slotData, &sf); err != nil {
		return fmt.Errorf("%w: decoding slot map: %w", domain.ErrIndexIO, err)
	}
	if sf.Dimension != idx.dimension {
		return fmt.Errorf("%w: slot map dimension %d, expected %d", domain.ErrIndexIO, sf.Dimension, idx.dimension)
	}

	count := int64(len(vectors) / idx.dimension)
	slots := make(map[int64]string, len(sf.Slots))
	dropped := 0
	for slot, chunkID := range sf.Slots {
		if slot < 0 || slot >= count {
			dropped++
			continue
		}
		slots[slot] = chunkID
	}

	if dropped > 0 {
		logger.Warn("vector index %s: dropped %d slot entries beyond the %d stored vectors (interrupted save)",
			idx.path, dropped, count)
	}
	if int64(len(slots)) != count {
		logger.Warn("vector index %s: %d of %d slots have no chunk id and will be skipped",
			idx.path, count-int64(len(slots)), count)
	}

	idx.vectors = vectors
	idx.slots = slots
	return nil
}

// encodeBlob serialises the header and vector data.
func (idx *Index) encodeBlob() []byte {
	buf := make([]byte, headerSize+len(idx.vectors)*4)
	copy(buf[0:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], formatVersion)
	binary.LittleEndian.PutUint32(buf[8:12], uint32(idx.dimension))
	binary.LittleEndian.PutUint64(buf[12:20], uint64(idx.Count()))
	for i, f := range idx.vectors {
		binary.LittleEndian.PutUint32(buf[headerSize+i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeBlob validates the header and returns the vector data.
func decodeBlob(data []byte, dimension int) ([]float32, error) {
	if len(data) < headerSize || string(data[0:4]) != magic {
		return nil, fmt.Errorf("%w: not an index blob", domain.ErrIndexIO)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != formatVersion {
		return nil, fmt.Errorf("%w: unsupported index format version %d", domain.ErrIndexIO, v)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:12]))
	if dim != dimension {
		return nil, fmt.Errorf("%w: index dimension %d, expected %d", domain.ErrIndexIO, dim, dimension)
	}
	count := binary.LittleEndian.Uint64(data[12:20])
	if uint64(len(data)-headerSize) != count*uint64(dim)*4 {
		return nil, fmt.Errorf("%w: index blob truncated: header says %d vectors", domain.ErrIndexIO, count)
	}

	vectors := make([]float32, (len(data)-headerSize)/4)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[headerSize+i*4:]))
	}
	return vectors, nil
}

// writeTemp writes data to a synced temporary file in dir.
func writeTemp(dir, base string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("%w: creating temp file: %w", domain.ErrIndexIO, err)
	}
	name := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name) //nolint:errcheck
		return "", fmt.Errorf("%w: writing temp file: %w", domain.ErrIndexIO, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name) //nolint:errcheck
		return "", fmt.Errorf("%w: syncing temp file: %w", domain.ErrIndexIO, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name) //nolint:errcheck
		return "", fmt.Errorf("%w: closing temp file: %w", domain.ErrIndexIO, err)
	}

	return name, nil
}

// squaredL2 returns the squared Euclidean distance between a and b.
func squaredL2(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(sum)
}
