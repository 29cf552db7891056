package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
)

// Ensure FeedbackService implements the interface.
var _ driving.FeedbackService = (*FeedbackService)(nil)

// defaultLogLimit caps ListLogs when the caller passes no limit.
const defaultLogLimit = 50

// FeedbackService records ratings on answered queries.
type FeedbackService struct {
	logStore driven.QueryLogStore
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(logStore driven.QueryLogStore) *FeedbackService {
	return &FeedbackService{logStore: logStore}
}

// SubmitFeedback overwrites the rating and comment on a query log.
func (s *FeedbackService) SubmitFeedback(ctx context.Context, logID string, rating int, comment string) error {
	if err := domain.ValidateRating(rating); err != nil {
		return err
	}
	if strings.TrimSpace(logID) == "" {
		return fmt.Errorf("%w: query log id is required", domain.ErrInvalidInput)
	}
	if err := s.logStore.SetFeedback(ctx, logID, rating, comment); err != nil {
		return fmt.Errorf("set feedback on %s: %w", logID, err)
	}
	return nil
}

// ListLogs returns a collection's logs, newest first.
func (s *FeedbackService) ListLogs(ctx context.Context, collectionID string, limit int) ([]domain.QueryLog, error) {
	if limit <= 0 {
		limit = defaultLogLimit
	}
	return s.logStore.List(ctx, collectionID, limit)
}

// GetLog retrieves a single query log.
func (s *FeedbackService) GetLog(ctx context.Context, logID string) (*domain.QueryLog, error) {
	return s.logStore.Get(ctx, logID)
}
