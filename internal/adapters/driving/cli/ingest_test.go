package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

func TestIngest_Files(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)

	out := mustRun(t, "ingest", "animals",
		writeFile(t, "fox.txt", foxText),
		writeFile(t, "dog.md", "# Dogs\n\nthe lazy dog"),
	)

	assert.Contains(t, out, "ok    fox.txt  3 chunks")
	assert.Contains(t, out, "ok    dog.md")
}

func TestIngest_ContinuesPastFailures(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)

	out, err := run(t, "ingest", "animals",
		writeFile(t, "empty.txt", ""),
		writeFile(t, "fox.txt", foxText),
	)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 files failed")
	assert.Contains(t, out, "fail  empty.txt")
	assert.Contains(t, out, "ok    fox.txt")
}

func TestIngest_MissingFile(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)

	_, err := run(t, "ingest", "animals", "/does/not/exist.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngest_Stdin(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)

	out, err := runWithInput(t, strings.NewReader(foxText), "ingest", "animals", "-", "--name", "piped.txt")
	require.NoError(t, err, out)
	assert.Contains(t, out, "ok    piped.txt  3 chunks")
}

func TestIngest_StdinDefaultName(t *testing.T) {
	setupTestServices(t)
	createAnimals(t)

	out, err := runWithInput(t, strings.NewReader("quick dog"), "ingest", "animals", "-")
	require.NoError(t, err, out)
	assert.Contains(t, out, "stdin.txt")
}

func TestIngest_UnknownCollection(t *testing.T) {
	setupTestServices(t)

	_, err := run(t, "ingest", "missing", writeFile(t, "fox.txt", foxText))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngest_RequiresFile(t *testing.T) {
	setupTestServices(t)

	_, err := run(t, "ingest", "animals")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 2 arg(s)")
}
