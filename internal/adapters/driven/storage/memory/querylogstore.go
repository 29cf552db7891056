package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure QueryLogStore implements the interface.
var _ driven.QueryLogStore = (*QueryLogStore)(nil)

// QueryLogStore is an in-memory implementation of driven.QueryLogStore.
type QueryLogStore struct {
	mu      sync.RWMutex
	logs    map[string]domain.QueryLog
	order   map[string]int
	nextSeq int
}

// NewQueryLogStore creates a new in-memory query log store.
func NewQueryLogStore() *QueryLogStore {
	return &QueryLogStore{
		logs:  make(map[string]domain.QueryLog),
		order: make(map[string]int),
	}
}

// Save inserts a query log.
func (s *QueryLogStore) Save(_ context.Context, log *domain.QueryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	s.logs[log.ID] = *log
	s.order[log.ID] = s.nextSeq
	s.nextSeq++
	return nil
}

// Get retrieves a query log by ID.
func (s *QueryLogStore) Get(_ context.Context, id string) (*domain.QueryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log, ok := s.logs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &log, nil
}

// List returns a collection's logs, newest first. A non-positive limit
// returns every log.
func (s *QueryLogStore) List(_ context.Context, collectionID string, limit int) ([]domain.QueryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.QueryLog, 0)
	for _, log := range s.logs {
		if log.CollectionID == collectionID {
			result = append(result, log)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return s.order[result[i].ID] > s.order[result[j].ID]
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// SetFeedback overwrites the feedback on a log.
func (s *QueryLogStore) SetFeedback(_ context.Context, id string, rating int, comment string) error {
	if err := domain.ValidateRating(rating); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log, ok := s.logs[id]
	if !ok {
		return domain.ErrNotFound
	}
	log.FeedbackRating = &rating
	log.FeedbackComment = comment
	s.logs[id] = log
	return nil
}
