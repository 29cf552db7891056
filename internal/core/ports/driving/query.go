package driving

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// QueryService answers questions from a collection's indexed chunks.
type QueryService interface {
	// Query retrieves the topK nearest chunks, asks the provider to answer
	// from them and logs the exchange. topK <= 0 uses the default.
	Query(ctx context.Context, collectionID, text string, topK int) (*domain.QueryResult, error)
}

// FeedbackService records operator feedback on answered queries.
type FeedbackService interface {
	// SubmitFeedback sets the rating (-1, 0 or 1) and comment on a query log,
	// overwriting any previous feedback.
	SubmitFeedback(ctx context.Context, logID string, rating int, comment string) error

	// ListLogs returns a collection's query logs, newest first.
	ListLogs(ctx context.Context, collectionID string, limit int) ([]domain.QueryLog, error)

	// GetLog retrieves a single query log.
	GetLog(ctx context.Context, logID string) (*domain.QueryLog, error)
}
