package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driven/credentials"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/normalisers"
	"github.com/custodia-labs/kbase/internal/postprocessors"
)

// testDimension is the vector size used by the service tests.
const testDimension = 4

// keywords maps each test dimension to the word it counts.
// The last dimension is a constant bias so no vector is all zeros.
var keywords = []string{"fox", "dog", "quick"}

// keywordVector embeds text as keyword counts.
func keywordVector(text string) []float32 {
	v := make([]float32, testDimension)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, "?.,!")
		for i, kw := range keywords {
			if word == kw {
				v[i]++
			}
		}
	}
	v[testDimension-1] = 1
	return v
}

// --- Mock implementations shared by the service tests ---

// fakeProvider implements driven.Provider with keyword embeddings.
type fakeProvider struct {
	mu          sync.Mutex
	name        domain.ProviderName
	embedFn     func(ctx context.Context, texts []string) ([][]float32, error)
	completeErr error
	embedCalls  int
	prompts     []string
	closed      int
}

func (p *fakeProvider) Name() domain.ProviderName { return p.name }

func (p *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	p.embedCalls++
	fn := p.embedFn
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, texts)
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = keywordVector(text)
	}
	return vectors, nil
}

func (p *fakeProvider) Complete(_ context.Context, prompt string, _ domain.CompleteOptions) (*domain.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	if p.completeErr != nil {
		return nil, p.completeErr
	}
	return &domain.Completion{
		Text:  "The fox jumps.",
		Model: "fake-model-0613",
		Usage: domain.TokenUsage{PromptTokens: 40, CompletionTokens: 4, TotalTokens: 44},
	}, nil
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return nil
}

func (p *fakeProvider) lastPrompt() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prompts) == 0 {
		return ""
	}
	return p.prompts[len(p.prompts)-1]
}

// fakeFactory implements driven.ProviderFactory and records configs.
type fakeFactory struct {
	mu        sync.Mutex
	provider  *fakeProvider
	createErr error
	configs   []domain.ProviderConfig
}

func (f *fakeFactory) Create(cfg domain.ProviderConfig) (driven.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configs = append(f.configs, cfg)
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.provider.name = cfg.Name
	return f.provider, nil
}

// failingIndex wraps a real index and fails appends on demand.
type failingIndex struct {
	driven.VectorIndexStore
	appendErr error
}

func (f *failingIndex) Append(ctx context.Context, collectionID string, vectors [][]float32, ids []string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.VectorIndexStore.Append(ctx, collectionID, vectors, ids)
}

// hookIndex wraps a real index and runs afterAppend once an append lands.
type hookIndex struct {
	driven.VectorIndexStore
	afterAppend func(collectionID string)
}

func (h *hookIndex) Append(ctx context.Context, collectionID string, vectors [][]float32, ids []string) error {
	if err := h.VectorIndexStore.Append(ctx, collectionID, vectors, ids); err != nil {
		return err
	}
	if h.afterAppend != nil {
		h.afterAppend(collectionID)
	}
	return nil
}

// --- Fixture ---

type fixture struct {
	collectionStore *memory.CollectionStore
	docStore        *memory.DocumentStore
	logStore        *memory.QueryLogStore
	index           *flat.Manager
	provider        *fakeProvider
	factory         *fakeFactory
	settings        *domain.Settings

	collections *CollectionService
	ingestion   *IngestionService
	query       *QueryService
	feedback    *FeedbackService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	index, err := flat.NewManager(t.TempDir(), testDimension)
	require.NoError(t, err)
	return newFixtureWithIndex(t, index, index)
}

// newFixtureWithIndex builds services over vectorIndex while keeping
// direct access to the underlying flat manager.
func newFixtureWithIndex(t *testing.T, manager *flat.Manager, vectorIndex driven.VectorIndexStore) *fixture {
	t.Helper()

	settings := domain.DefaultSettings(t.TempDir())
	settings.Dimension = testDimension
	settings.ProviderTimeout = 2 * time.Second

	directory := credentials.NewDirectory(map[domain.ProviderName]domain.ProviderConfig{
		domain.ProviderOpenAI: {APIKey: "sk-test", EmbeddingModel: "text-embedding-3-small", CompletionModel: "gpt-4o-mini"},
	})
	provider := &fakeProvider{}
	factory := &fakeFactory{provider: provider}

	f := &fixture{
		collectionStore: memory.NewCollectionStore(),
		docStore:        memory.NewDocumentStore(),
		logStore:        memory.NewQueryLogStore(),
		index:           manager,
		provider:        provider,
		factory:         factory,
		settings:        &settings,
	}
	chunkers := postprocessors.NewDefaultRegistry()

	f.collections = NewCollectionService(f.collectionStore, f.docStore, vectorIndex, chunkers, directory)
	f.ingestion = NewIngestionService(f.collectionStore, f.docStore, vectorIndex,
		normalisers.NewDefaultRegistry(), chunkers, directory, factory, &settings)
	f.query = NewQueryService(f.collectionStore, f.docStore, f.logStore, vectorIndex, directory, factory, &settings)
	f.feedback = NewFeedbackService(f.logStore)
	return f
}

// createCollection adds a word-window collection with the given chunking.
func (f *fixture) createCollection(t *testing.T, name string, size, overlap int) *domain.Collection {
	t.Helper()
	c, err := f.collections.Create(context.Background(), domain.Collection{
		Name:             name,
		Provider:         "openai",
		EmbeddingModel:   "text-embedding-ada-002",
		ChunkingStrategy: postprocessors.StrategyWords,
		ChunkSize:        size,
		ChunkOverlap:     overlap,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) indexCount(t *testing.T, collectionID string) int {
	t.Helper()
	n, err := f.index.Count(context.Background(), collectionID)
	require.NoError(t, err)
	return n
}

func (f *fixture) chunkRows(t *testing.T, collectionID string) int {
	t.Helper()
	n, err := f.docStore.CountChunks(context.Background(), collectionID)
	require.NoError(t, err)
	return n
}

var errVendor = errors.New("vendor returned 500")

// foxText chunks into three windows at size 4, overlap 1.
const foxText = "the quick brown fox jumps over the lazy dog"
