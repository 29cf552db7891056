package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

type recordingIngestion struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (r *recordingIngestion) Ingest(context.Context, string, []byte, string) (*domain.IngestResult, error) {
	return nil, errors.New("not used")
}

func (r *recordingIngestion) IngestFile(_ context.Context, _ string, path string) (*domain.IngestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	if r.err != nil {
		return &domain.IngestResult{Status: domain.DocumentFailed, Reason: r.err.Error()}, r.err
	}
	return &domain.IngestResult{DocumentID: "doc", ChunkCount: 1, Status: domain.DocumentReady}, nil
}

func (r *recordingIngestion) IngestMany(context.Context, string, []string) ([]domain.IngestResult, error) {
	return nil, errors.New("not used")
}

func (r *recordingIngestion) ingested() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

type fakeDocuments struct {
	docs    []domain.Document
	deleted []string
}

func (f *fakeDocuments) ListDocuments(_ context.Context, collectionID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, d := range f.docs {
		if d.CollectionID == collectionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocuments) DeleteDocument(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestWatcher(t *testing.T, ing *recordingIngestion) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	w, err := New(ing, "col-1", dir, []string{".txt", ".MD"})
	require.NoError(t, err)
	return w, dir
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, "col-1", t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrMissingIngestionService)

	_, err = New(&recordingIngestion{}, "col-1", filepath.Join(t.TempDir(), "missing"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = New(&recordingIngestion{}, "col-1", file, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{".hidden.txt", true},
		{".DS_Store", true},
		{"file.txt", false},
		{"file.hidden", false},
		{".", false},
		{"..", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.name))
		})
	}
}

func TestIsTemporary(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"notes.txt~", true},
		{"~$report.docx", true},
		{"draft.tmp", true},
		{"notes.txt.swp", true},
		{"big.pdf.part", true},
		{"big.pdf.crdownload", true},
		{"notes.txt", false},
		{"template.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isTemporary(tt.name))
		})
	}
}

func TestAccepts_Extensions(t *testing.T) {
	w, _ := newTestWatcher(t, &recordingIngestion{})

	assert.True(t, w.accepts("/d/a.txt"))
	assert.True(t, w.accepts("/d/a.TXT"))
	assert.True(t, w.accepts("/d/readme.md"))
	assert.False(t, w.accepts("/d/photo.png"))
	assert.False(t, w.accepts("/d/noext"))

	all, err := New(&recordingIngestion{}, "col-1", t.TempDir(), nil)
	require.NoError(t, err)
	assert.True(t, all.accepts("/d/photo.png"))
	assert.False(t, all.accepts("/d/.env"))
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		mkdir     bool
		create    bool
		operation fsnotify.Op
		expected  bool
	}{
		{"create file", "new.txt", false, true, fsnotify.Create, true},
		{"write file", "new.txt", false, true, fsnotify.Write, true},
		{"remove file", "gone.txt", false, false, fsnotify.Remove, false},
		{"rename file", "gone.txt", false, false, fsnotify.Rename, false},
		{"chmod file", "new.txt", false, true, fsnotify.Chmod, false},
		{"create directory", "sub.txt", true, false, fsnotify.Create, false},
		{"hidden file", ".secret.txt", false, true, fsnotify.Create, false},
		{"swap file", "new.txt.swp", false, true, fsnotify.Write, false},
		{"unsupported extension", "photo.png", false, true, fsnotify.Create, false},
		{"vanished before stat", "fleeting.txt", false, false, fsnotify.Create, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, dir := newTestWatcher(t, &recordingIngestion{})
			path := filepath.Join(dir, tt.file)
			if tt.mkdir {
				require.NoError(t, os.Mkdir(path, 0o755))
			}
			if tt.create {
				require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))
			}

			got, ok := w.handleFsEvent(fsnotify.Event{Name: path, Op: tt.operation})

			assert.Equal(t, tt.expected, ok)
			if tt.expected {
				assert.Equal(t, path, got)
			}
		})
	}
}

func TestDue_WaitsForQuietPeriod(t *testing.T) {
	w, _ := newTestWatcher(t, &recordingIngestion{})
	w.WithDebounce(time.Second)

	now := time.Now()
	pending := map[string]time.Time{
		"/d/b.txt": now.Add(-2 * time.Second),
		"/d/a.txt": now.Add(-time.Second),
		"/d/c.txt": now.Add(-100 * time.Millisecond),
	}

	assert.Equal(t, []string{"/d/a.txt", "/d/b.txt"}, w.due(pending, now))
}

func TestWithDebounce_IgnoresNonPositive(t *testing.T) {
	w, _ := newTestWatcher(t, &recordingIngestion{})

	w.WithDebounce(0)
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestScan_IngestsExistingFilesInOrder(t *testing.T) {
	ing := &recordingIngestion{}
	w, dir := newTestWatcher(t, ing)

	for _, name := range []string{"b.txt", "a.md", ".hidden.txt", "skip.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o755))

	var results []string
	w.OnResult(func(path string, result *domain.IngestResult, err error) {
		assert.NoError(t, err)
		assert.Equal(t, domain.DocumentReady, result.Status)
		results = append(results, filepath.Base(path))
	})

	require.NoError(t, w.Scan(context.Background()))

	assert.Equal(t, []string{"a.md", "b.txt"}, results)
	assert.Len(t, ing.ingested(), 2)
}

func TestScan_ContinuesPastFailures(t *testing.T) {
	ing := &recordingIngestion{err: domain.ErrProvider}
	w, dir := newTestWatcher(t, ing)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644))

	var failures int
	w.OnResult(func(_ string, _ *domain.IngestResult, err error) {
		if err != nil {
			failures++
		}
	})

	require.NoError(t, w.Scan(context.Background()))
	assert.Equal(t, 2, failures)
}

func TestScan_StopsOnCancel(t *testing.T) {
	ing := &recordingIngestion{}
	w, dir := newTestWatcher(t, ing)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, w.Scan(ctx), context.Canceled)
	assert.Empty(t, ing.ingested())
}

func TestRun_IngestsNewFile(t *testing.T) {
	ing := &recordingIngestion{}
	w, dir := newTestWatcher(t, ing)
	w.WithDebounce(50 * time.Millisecond)

	done := make(chan string, 1)
	w.OnResult(func(path string, _ *domain.IngestResult, _ error) {
		select {
		case done <- path:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	testFile := filepath.Join(dir, "dropped.txt")
	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = os.WriteFile(testFile, []byte("content"), 0o644)
	}()

	select {
	case path := <-done:
		assert.Equal(t, testFile, path)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for ingestion")
	}

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Contains(t, ing.ingested(), testFile)
}

func TestScan_ReplacesPreviousDocumentWithSameName(t *testing.T) {
	ing := &recordingIngestion{}
	w, dir := newTestWatcher(t, ing)
	docs := &fakeDocuments{docs: []domain.Document{
		{ID: "old-1", CollectionID: "col-1", Filename: "notes.txt"},
		{ID: "old-2", CollectionID: "col-1", Filename: "notes.txt"},
		{ID: "doc", CollectionID: "col-1", Filename: "notes.txt"},
		{ID: "other", CollectionID: "col-1", Filename: "b.txt"},
		{ID: "elsewhere", CollectionID: "col-2", Filename: "notes.txt"},
	}}
	w.ReplacePrevious(docs)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, w.Scan(context.Background()))

	assert.Equal(t, []string{"old-1", "old-2"}, docs.deleted)
}

func TestScan_FailedIngestKeepsPreviousDocument(t *testing.T) {
	ing := &recordingIngestion{err: domain.ErrProvider}
	w, dir := newTestWatcher(t, ing)
	docs := &fakeDocuments{docs: []domain.Document{
		{ID: "old-1", CollectionID: "col-1", Filename: "notes.txt"},
	}}
	w.ReplacePrevious(docs)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, w.Scan(context.Background()))

	assert.Empty(t, docs.deleted)
}
