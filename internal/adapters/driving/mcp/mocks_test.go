package mcp

import (
	"context"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// mockCollectionService is a mock implementation of driving.CollectionService.
type mockCollectionService struct {
	collections []domain.Collection
	documents   []domain.Document
	err         error
	docsErr     error
}

func (m *mockCollectionService) Create(_ context.Context, c domain.Collection) (*domain.Collection, error) {
	return &c, m.err
}

func (m *mockCollectionService) Get(ctx context.Context, id string) (*domain.Collection, error) {
	return m.Resolve(ctx, id)
}

func (m *mockCollectionService) Resolve(_ context.Context, nameOrID string) (*domain.Collection, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.collections {
		if m.collections[i].Name == nameOrID || m.collections[i].ID == nameOrID {
			return &m.collections[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCollectionService) List(_ context.Context) ([]domain.Collection, error) {
	return m.collections, m.err
}

func (m *mockCollectionService) Delete(_ context.Context, _ string) error { return m.err }

func (m *mockCollectionService) ListDocuments(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.docsErr
}

func (m *mockCollectionService) DeleteDocument(_ context.Context, _ string) error { return m.err }

func (m *mockCollectionService) ClearDocuments(_ context.Context, _ string) error { return m.err }

func (m *mockCollectionService) Rebuild(_ context.Context, _ string) (int, error) { return 0, m.err }

func (m *mockCollectionService) Stats(_ context.Context, id string) (*domain.CollectionStats, error) {
	return &domain.CollectionStats{CollectionID: id}, m.err
}

func (m *mockCollectionService) Providers() []string { return []string{"openai"} }

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	result       *domain.QueryResult
	err          error
	collectionID string
	text         string
	topK         int
}

func (m *mockQueryService) Query(_ context.Context, collectionID, text string, topK int) (*domain.QueryResult, error) {
	m.collectionID = collectionID
	m.text = text
	m.topK = topK
	return m.result, m.err
}

// mockIngestionService is a mock implementation of driving.IngestionService.
type mockIngestionService struct {
	result   *domain.IngestResult
	err      error
	data     []byte
	filename string
}

func (m *mockIngestionService) Ingest(_ context.Context, _ string, data []byte, filename string) (*domain.IngestResult, error) {
	m.data = data
	m.filename = filename
	return m.result, m.err
}

func (m *mockIngestionService) IngestFile(_ context.Context, _, _ string) (*domain.IngestResult, error) {
	return m.result, m.err
}

func (m *mockIngestionService) IngestMany(_ context.Context, _ string, _ []string) ([]domain.IngestResult, error) {
	return nil, m.err
}

// mockFeedbackService is a mock implementation of driving.FeedbackService.
type mockFeedbackService struct {
	log     *domain.QueryLog
	err     error
	rating  int
	comment string
}

func (m *mockFeedbackService) SubmitFeedback(_ context.Context, _ string, rating int, comment string) error {
	m.rating = rating
	m.comment = comment
	return m.err
}

func (m *mockFeedbackService) ListLogs(_ context.Context, _ string, _ int) ([]domain.QueryLog, error) {
	return nil, m.err
}

func (m *mockFeedbackService) GetLog(_ context.Context, _ string) (*domain.QueryLog, error) {
	return m.log, m.err
}

func testCollections() *mockCollectionService {
	return &mockCollectionService{
		collections: []domain.Collection{
			{ID: "col-1", Name: "handbook", Description: "Staff handbook", Provider: "openai"},
			{ID: "col-2", Name: "recipes", Provider: "cohere"},
		},
	}
}
