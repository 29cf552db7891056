package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// untitled names uploads that arrive without a filename.
const untitled = "Untitled"

// IngestionService extracts, chunks, embeds and indexes uploaded files.
type IngestionService struct {
	collections driven.CollectionStore
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndexStore
	normalisers driven.NormaliserRegistry
	chunkers    driven.ChunkerRegistry
	providers   providerResolver
}

// NewIngestionService creates a new ingestion service.
// Every embed call is bounded by settings.ProviderTimeout.
func NewIngestionService(
	collections driven.CollectionStore,
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndexStore,
	normalisers driven.NormaliserRegistry,
	chunkers driven.ChunkerRegistry,
	directory driven.ProviderDirectory,
	factory driven.ProviderFactory,
	settings *domain.Settings,
) *IngestionService {
	resolver := providerResolver{directory: directory, factory: factory}
	if settings != nil {
		resolver.timeout = settings.ProviderTimeout
	}
	return &IngestionService{
		collections: collections,
		docStore:    docStore,
		vectorIndex: vectorIndex,
		normalisers: normalisers,
		chunkers:    chunkers,
		providers:   resolver,
	}
}

// Ingest runs the pipeline for one upload.
//
//nolint:gocyclo // Pipeline with necessary sequential steps
func (s *IngestionService) Ingest(
	ctx context.Context,
	collectionID string,
	data []byte,
	filename string,
) (*domain.IngestResult, error) {
	logger.Section("Ingest")

	collection, err := s.collections.Get(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	if filename == "" {
		filename = untitled
	}

	// 1. Extract text, degrading to empty text on failure
	text, extractErr := s.normalisers.Normalise(ctx, data, filename)
	if extractErr != nil {
		logger.Warn("Extraction failed for %s: %v", filename, extractErr)
		text = ""
	}

	doc := &domain.Document{
		CollectionID: collection.ID,
		Filename:     filename,
		Content:      text,
		Status:       domain.DocumentProcessing,
	}
	if err := s.docStore.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	result := &domain.IngestResult{
		DocumentID: doc.ID,
		Filename:   filename,
		Status:     domain.DocumentProcessing,
	}
	logger.Debug("Created document %s (%s) in collection %s", doc.ID, filename, collection.Name)

	// 2. Chunk with the collection's strategy
	chunker, err := s.chunkers.Resolve(collection.ChunkingStrategy)
	if err != nil {
		return s.fail(ctx, result, err.Error(), err)
	}
	if err := domain.ValidateChunking(collection.ChunkSize, collection.ChunkOverlap); err != nil {
		return s.fail(ctx, result, err.Error(), err)
	}
	chunks, err := chunker.Split(text, collection.ChunkSize, collection.ChunkOverlap)
	if err != nil {
		return s.fail(ctx, result, err.Error(), err)
	}
	if len(chunks) == 0 {
		if extractErr != nil {
			reason := fmt.Sprintf("text extraction failed: %v", extractErr)
			return s.fail(ctx, result, reason, extractErr)
		}
		reason := "no content to ingest"
		return s.fail(ctx, result, reason, fmt.Errorf("%w: %s", domain.ErrInvalidInput, reason))
	}
	logger.Debug("Split %s into %d chunks with %s", filename, len(chunks), chunker.Name())

	// 3. Resolve the provider
	provider, err := s.providers.resolve(collection)
	if err != nil {
		if !domain.IsConfiguration(err) {
			err = fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		return s.fail(ctx, result, err.Error(), err)
	}
	defer provider.Close()

	// 4. Embed every chunk in one batch, before any rows are written
	vectors, err := s.providers.embed(ctx, provider, chunks, s.vectorIndex.Dimension())
	if err != nil {
		return s.fail(ctx, result, fmt.Sprintf("embedding failed: %v", err), err)
	}

	// 5. Persist chunk and embedding rows
	inputs := make([]domain.ChunkInput, len(chunks))
	for i, content := range chunks {
		inputs[i] = domain.ChunkInput{
			Index:    i,
			Content:  content,
			Provider: string(provider.Name()),
			Model:    collection.EmbeddingModel,
			Vector:   vectors[i],
		}
	}
	saved, err := s.docStore.SaveChunks(ctx, doc.ID, inputs)
	if err != nil {
		return s.fail(ctx, result, fmt.Sprintf("saving chunks failed: %v", err), err)
	}

	// 6. Append to the vector index, only after rows are committed
	chunkIDs := make([]string, len(saved))
	for i := range saved {
		chunkIDs[i] = saved[i].ID
	}
	if err := s.vectorIndex.Append(ctx, collection.ID, vectors, chunkIDs); err != nil {
		logger.Error("Consistency gap: collection %s document %s has %d chunk rows missing from the index: %v",
			collection.ID, doc.ID, len(chunkIDs), err)
		result.ChunkCount = len(saved)
		return s.fail(ctx, result, fmt.Sprintf("index append failed: %v", err), err)
	}

	// 7. Mark ready
	if err := s.docStore.UpdateStatus(ctx, doc.ID, domain.DocumentReady, ""); err != nil {
		return result, fmt.Errorf("mark document ready: %w", err)
	}
	result.Status = domain.DocumentReady
	result.ChunkCount = len(saved)
	logger.Info("Ingested %s: %d chunks", filename, len(saved))
	return result, nil
}

// IngestFile reads path and ingests it under its base name.
func (s *IngestionService) IngestFile(ctx context.Context, collectionID, path string) (*domain.IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, path, err)
	}
	return s.Ingest(ctx, collectionID, data, filepath.Base(path))
}

// IngestMany ingests files one after another. Per-file failures are
// recorded in the results; the returned error joins them.
func (s *IngestionService) IngestMany(
	ctx context.Context,
	collectionID string,
	paths []string,
) ([]domain.IngestResult, error) {
	results := make([]domain.IngestResult, 0, len(paths))
	var errs []error

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		result, err := s.IngestFile(ctx, collectionID, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			if result == nil {
				result = &domain.IngestResult{
					Filename: filepath.Base(path),
					Status:   domain.DocumentFailed,
					Reason:   err.Error(),
				}
			}
		}
		results = append(results, *result)
	}

	return results, errors.Join(errs...)
}

// fail marks the document failed and returns the result with cause.
// The status write survives cancellation of ctx so a failed document
// never stays in processing.
func (s *IngestionService) fail(
	ctx context.Context,
	result *domain.IngestResult,
	reason string,
	cause error,
) (*domain.IngestResult, error) {
	result.Status = domain.DocumentFailed
	result.Reason = reason
	logger.Warn("Document %s failed: %s", result.DocumentID, reason)

	if err := s.docStore.UpdateStatus(context.WithoutCancel(ctx), result.DocumentID, domain.DocumentFailed, reason); err != nil {
		return result, errors.Join(cause, fmt.Errorf("mark document failed: %w", err))
	}
	return result, cause
}
