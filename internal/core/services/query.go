package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// contextSeparator joins retrieved chunks in the prompt context.
const contextSeparator = "\n---\n"

// QueryService answers questions from a collection's nearest chunks.
type QueryService struct {
	collections driven.CollectionStore
	docStore    driven.DocumentStore
	logStore    driven.QueryLogStore
	vectorIndex driven.VectorIndexStore
	providers   providerResolver
	defaultTopK int
}

// NewQueryService creates a new query service.
func NewQueryService(
	collections driven.CollectionStore,
	docStore driven.DocumentStore,
	logStore driven.QueryLogStore,
	vectorIndex driven.VectorIndexStore,
	directory driven.ProviderDirectory,
	factory driven.ProviderFactory,
	settings *domain.Settings,
) *QueryService {
	svc := &QueryService{
		collections: collections,
		docStore:    docStore,
		logStore:    logStore,
		vectorIndex: vectorIndex,
		providers:   providerResolver{directory: directory, factory: factory},
		defaultTopK: domain.DefaultTopK,
	}
	if settings != nil {
		svc.providers.timeout = settings.ProviderTimeout
		if settings.TopK > 0 {
			svc.defaultTopK = settings.TopK
		}
	}
	return svc
}

// Query embeds text, retrieves the topK nearest chunks, asks the provider
// to answer from them and logs the exchange.
func (s *QueryService) Query(ctx context.Context, collectionID, text string, topK int) (*domain.QueryResult, error) {
	logger.Section("Query")
	start := time.Now()

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query text is required", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	collection, err := s.collections.Get(ctx, collectionID)
	if err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}

	// 1. Resolve the provider
	provider, err := s.providers.resolve(collection)
	if err != nil {
		if !domain.IsConfiguration(err) {
			err = fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		return nil, err
	}
	defer provider.Close()

	// 2. Embed the query
	vectors, err := s.providers.embed(ctx, provider, []string{text}, s.vectorIndex.Dimension())
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// 3. Nearest neighbours
	hits, err := s.vectorIndex.Search(ctx, collection.ID, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("Index returned %d hits for collection %s", len(hits), collection.Name)

	// 4. Resolve hits to chunk rows in rank order
	retrieved, err := s.retrieve(ctx, hits)
	if err != nil {
		return nil, err
	}
	texts := make([]string, len(retrieved))
	for i := range retrieved {
		texts[i] = retrieved[i].Content
	}
	contextText := strings.Join(texts, contextSeparator)

	// 5. Answer
	completion, err := s.providers.complete(ctx, provider, BuildPrompt(contextText, text))
	if err != nil {
		return nil, fmt.Errorf("complete: %w", err)
	}
	latency := time.Since(start)

	// 6. Log
	entry := &domain.QueryLog{
		CollectionID:     collection.ID,
		Query:            text,
		Context:          contextText,
		Answer:           completion.Text,
		Model:            completion.Model,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
		TotalTokens:      completion.Usage.TotalTokens,
		LatencyMS:        latency.Milliseconds(),
	}
	if err := s.logStore.Save(ctx, entry); err != nil {
		return nil, fmt.Errorf("save query log: %w", err)
	}

	logger.Info("Answered query in %dms with %d chunks", entry.LatencyMS, len(retrieved))
	return &domain.QueryResult{
		Answer:  completion.Text,
		Context: contextText,
		LogID:   entry.ID,
		Model:   completion.Model,
		Usage:   completion.Usage,
		Chunks:  retrieved,
		Latency: latency,
	}, nil
}

// retrieve fetches the chunk rows behind hits, keeping hit order.
// Hits whose chunk no longer exists are dropped.
func (s *QueryService) retrieve(ctx context.Context, hits []driven.VectorHit) ([]domain.RetrievedChunk, error) {
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ChunkID
	}
	chunks, err := s.docStore.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}

	byID := make(map[string]domain.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	retrieved := make([]domain.RetrievedChunk, 0, len(hits))
	for _, hit := range hits {
		c, ok := byID[hit.ChunkID]
		if !ok {
			logger.Debug("Skipping stale index slot for chunk %s", hit.ChunkID)
			continue
		}
		retrieved = append(retrieved, domain.RetrievedChunk{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Distance:   hit.Distance,
		})
	}
	return retrieved, nil
}

// BuildPrompt formats the grounded question sent to the completion model.
func BuildPrompt(contextText, query string) string {
	if contextText == "" {
		contextText = "No context provided."
	}
	return "Use the following context exclusively to answer the question. " +
		"If the context does not contain the answer, say so.\n\n" +
		"Context:\n" + contextText + "\n\n" +
		"Question: " + query + "\n\n" +
		"Answer:"
}
