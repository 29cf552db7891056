package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

const foxText = "the quick brown fox jumps over the lazy dog"

// createAnimals creates a small word-window collection named animals.
func createAnimals(t *testing.T) {
	t.Helper()
	mustRun(t, "collection", "create", "animals", "--chunk-size", "4", "--chunk-overlap", "1", "-d", "test animals")
}

// writeFile writes a file in a temp dir and returns its path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCollectionCreate(t *testing.T) {
	setupTestServices(t)

	out := mustRun(t, "collection", "create", "handbook")
	assert.Contains(t, out, "Created collection handbook")

	out = mustRun(t, "collection", "show", "handbook")
	assert.Contains(t, out, "Provider:        openai")
	assert.Contains(t, out, "Chunking:        recursive, 1000 words, 200 overlap")
}

func TestCollectionCreate_CustomChunking(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)

	out := mustRun(t, "collection", "show", "animals")
	assert.Contains(t, out, "recursive, 4 words, 1 overlap")
	assert.Contains(t, out, "test animals")
}

func TestCollectionCreate_Errors(t *testing.T) {
	setupTestServices(t)

	_, err := run(t, "collection", "create", "bad", "--chunk-size", "5", "--chunk-overlap", "5")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = run(t, "collection", "create", "bad", "--provider", "mistral")
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	mustRun(t, "collection", "create", "dup")
	_, err = run(t, "collection", "create", "dup")
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = run(t, "collection", "create")
	assert.Error(t, err)
}

func TestCollectionList(t *testing.T) {
	setupTestServices(t)

	out := mustRun(t, "collection", "list")
	assert.Contains(t, out, "No collections")

	createAnimals(t)
	mustRun(t, "collection", "create", "handbook")

	out = mustRun(t, "collection", "ls")
	assert.Contains(t, out, "animals")
	assert.Contains(t, out, "handbook")
	assert.Contains(t, out, "test animals")
}

func TestCollectionShow_NotFound(t *testing.T) {
	setupTestServices(t)

	_, err := run(t, "collection", "show", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCollectionStatsAndRebuild(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)
	mustRun(t, "ingest", "animals", writeFile(t, "fox.txt", foxText))

	out := mustRun(t, "collection", "stats", "animals")
	assert.Contains(t, out, "ready      1")
	assert.Contains(t, out, "Chunk rows: 3")
	assert.Contains(t, out, "Indexed:    3")
	assert.NotContains(t, out, "Warning")

	out = mustRun(t, "collection", "rebuild", "animals")
	assert.Contains(t, out, "3 vectors")
}

func TestCollectionStats_ReportsGapAfterDocumentDelete(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)
	mustRun(t, "ingest", "animals", writeFile(t, "fox.txt", foxText))

	docs, err := collectionService.List(t.Context())
	require.NoError(t, err)
	list, err := collectionService.ListDocuments(t.Context(), docs[0].ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	mustRun(t, "document", "delete", list[0].ID)

	out := mustRun(t, "collection", "stats", "animals")
	assert.Contains(t, out, "Warning: index and chunk rows differ")

	mustRun(t, "collection", "rebuild", "animals")
	out = mustRun(t, "collection", "stats", "animals")
	assert.NotContains(t, out, "Warning")
}

func TestCollectionClear(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)
	mustRun(t, "ingest", "animals", writeFile(t, "fox.txt", foxText))

	out := mustRun(t, "collection", "clear", "animals")
	assert.Contains(t, out, "Cleared collection animals")

	out = mustRun(t, "documents", "animals")
	assert.Contains(t, out, "No documents in animals")
}

func TestCollectionDelete(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)

	out := mustRun(t, "collection", "delete", "animals")
	assert.Contains(t, out, "Deleted collection animals")

	_, err := run(t, "collection", "show", "animals")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocuments_ListsStatusAndReason(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)

	mustRun(t, "ingest", "animals", writeFile(t, "fox.txt", foxText))
	_, err := run(t, "ingest", "animals", writeFile(t, "empty.txt", "   "))
	require.Error(t, err)

	out := mustRun(t, "documents", "animals")
	assert.Contains(t, out, "ready")
	assert.Contains(t, out, "fox.txt")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "no content to ingest")
}

func TestDocumentDelete_NotFound(t *testing.T) {
	setupTestServices(t)

	_, err := run(t, "document", "delete", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCommands_WithoutServices(t *testing.T) {
	SetServices(nil)
	t.Cleanup(func() { resetFlags(rootCmd) })

	_, err := run(t, "collection", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection service not configured")
}
