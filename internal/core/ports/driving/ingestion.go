package driving

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// IngestionService turns uploaded files into indexed chunks.
type IngestionService interface {
	// Ingest runs the whole pipeline synchronously for one upload.
	// On failure after the document row exists, both the result (status
	// failed, with a reason) and the error are returned.
	Ingest(ctx context.Context, collectionID string, data []byte, filename string) (*domain.IngestResult, error)

	// IngestFile reads path and ingests it under its base name.
	IngestFile(ctx context.Context, collectionID, path string) (*domain.IngestResult, error)

	// IngestMany ingests files one after another and returns one result
	// per file. A failing file does not stop the rest.
	IngestMany(ctx context.Context, collectionID string, paths []string) ([]domain.IngestResult, error)
}
