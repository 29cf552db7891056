package mcp

import (
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Collections resolves collection names and lists them.
	Collections driving.CollectionService

	// Query answers questions from a collection.
	Query driving.QueryService

	// Ingestion adds text to a collection. Optional.
	Ingestion driving.IngestionService

	// Feedback records ratings on answers. Optional.
	Feedback driving.FeedbackService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Collections == nil {
		return ErrMissingCollectionService
	}
	return nil
}
