// Package tui provides an interactive chat interface over one collection.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ports aggregates the driving ports and state required by the TUI.
type Ports struct {
	// Query answers questions.
	Query driving.QueryService

	// Feedback rates answers. Optional; rating keys are disabled without it.
	Feedback driving.FeedbackService

	// Collection is the collection being chatted with.
	Collection *domain.Collection
}

// NewPorts creates a new Ports aggregate.
func NewPorts(
	query driving.QueryService,
	feedback driving.FeedbackService,
	collection *domain.Collection,
) *Ports {
	return &Ports{
		Query:      query,
		Feedback:   feedback,
		Collection: collection,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Collection == nil {
		return ErrMissingCollection
	}
	return nil
}
