// Package watcher ingests files dropped into a directory.
//
// Events are debounced per path so an editor's write burst produces one
// ingestion, and files are ingested one at a time through the same
// ingestion service the CLI uses.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// DefaultDebounce is how long a path must be quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// ErrMissingIngestionService is returned when no ingestion service is given.
var ErrMissingIngestionService = errors.New("watcher: ingestion service is required")

// ResultFunc receives the outcome of each ingested file.
type ResultFunc func(path string, result *domain.IngestResult, err error)

// Documents lists and deletes a collection's documents.
type Documents interface {
	ListDocuments(ctx context.Context, collectionID string) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// Watcher ingests new and modified files in one directory into one collection.
type Watcher struct {
	ingestion    driving.IngestionService
	documents    Documents
	collectionID string
	dir          string
	extensions   map[string]bool
	debounce     time.Duration
	onResult     ResultFunc
}

// New creates a watcher for dir. Only files whose extension is in
// extensions are ingested; an empty list accepts every extension.
func New(ingestion driving.IngestionService, collectionID, dir string, extensions []string) (*Watcher, error) {
	if ingestion == nil {
		return nil, ErrMissingIngestionService
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: watch directory: %w", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, dir)
	}

	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts[strings.ToLower(ext)] = true
	}

	return &Watcher{
		ingestion:    ingestion,
		collectionID: collectionID,
		dir:          dir,
		extensions:   exts,
		debounce:     DefaultDebounce,
	}, nil
}

// WithDebounce overrides the quiet period.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	if d > 0 {
		w.debounce = d
	}
	return w
}

// ReplacePrevious makes a successful ingestion delete the collection's
// earlier documents with the same file name, so a modified file is
// searchable once.
func (w *Watcher) ReplacePrevious(docs Documents) *Watcher {
	w.documents = docs
	return w
}

// OnResult registers a callback for ingestion outcomes.
func (w *Watcher) OnResult(fn ResultFunc) *Watcher {
	w.onResult = fn
	return w
}

// Scan ingests the files already present in the directory, in name order.
func (w *Watcher) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		path := filepath.Join(w.dir, e.Name())
		if e.Type().IsRegular() && w.accepts(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	for _, path := range paths {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.ingest(ctx, path)
	}
	return nil
}

// Run watches the directory until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for collection %s", w.dir, w.collectionID)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleFsEvent(event); ok {
				pending[path] = time.Now()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case now := <-ticker.C:
			for _, path := range w.due(pending, now) {
				delete(pending, path)
				w.ingest(ctx, path)
			}
		}
	}
}

// due returns the pending paths quiet for at least the debounce period, sorted.
func (w *Watcher) due(pending map[string]time.Time, now time.Time) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// handleFsEvent returns the path to ingest for an event, if any.
// Only creates and writes of accepted regular files qualify; removals and
// renames leave previously ingested documents in place.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if !w.accepts(event.Name) {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

// accepts reports whether a path passes the name filters.
func (w *Watcher) accepts(path string) bool {
	name := filepath.Base(path)
	if isHidden(name) || isTemporary(name) {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	return w.extensions[strings.ToLower(filepath.Ext(name))]
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	result, err := w.ingestion.IngestFile(ctx, w.collectionID, path)
	switch {
	case err != nil:
		logger.Warn("Ingesting %s failed: %v", path, err)
	case result != nil:
		logger.Info("Ingested %s: %d chunks", path, result.ChunkCount)
		if result.Status == domain.DocumentReady {
			w.dropPrevious(ctx, filepath.Base(path), result.DocumentID)
		}
	}
	if w.onResult != nil {
		w.onResult(path, result, err)
	}
}

// dropPrevious deletes documents named filename other than keepID.
// Failures are logged and leave the older document in place.
func (w *Watcher) dropPrevious(ctx context.Context, filename, keepID string) {
	if w.documents == nil {
		return
	}
	docs, err := w.documents.ListDocuments(ctx, w.collectionID)
	if err != nil {
		logger.Warn("Listing documents for %s failed: %v", filename, err)
		return
	}
	for _, d := range docs {
		if d.Filename != filename || d.ID == keepID {
			continue
		}
		if err := w.documents.DeleteDocument(ctx, d.ID); err != nil {
			logger.Warn("Deleting previous %s (%s) failed: %v", filename, d.ID, err)
			continue
		}
		logger.Debug("Replaced previous %s (%s)", filename, d.ID)
	}
}

// isHidden reports whether a file name starts with a dot.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// isTemporary matches editor swap files and partial downloads.
func isTemporary(name string) bool {
	if strings.HasPrefix(name, "~$") || strings.HasSuffix(name, "~") {
		return true
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".swp", ".swx", ".part", ".crdownload":
		return true
	}
	return false
}
