package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// QueryInput is the input schema for the query_collection tool.
type QueryInput struct {
	Collection string `json:"collection" jsonschema:"name or id of the collection to query"`
	Question   string `json:"question" jsonschema:"the question to answer from the collection"`
	TopK       int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve as context (default 3)"`
}

// QueryOutput is the output schema for the query_collection tool.
type QueryOutput struct {
	Answer  string        `json:"answer"`
	LogID   string        `json:"log_id"`
	Model   string        `json:"model"`
	Sources []ChunkOutput `json:"sources"`
}

// ChunkOutput is one retrieved chunk.
type ChunkOutput struct {
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Distance   float32 `json:"distance"`
}

// IngestInput is the input schema for the ingest_text tool.
type IngestInput struct {
	Collection string `json:"collection" jsonschema:"name or id of the collection"`
	Text       string `json:"text" jsonschema:"the text to add"`
	Filename   string `json:"filename,omitempty" jsonschema:"optional file name; its extension selects the text extractor"`
}

// IngestOutput is the output schema for the ingest_text tool.
type IngestOutput struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
}

// FeedbackInput is the input schema for the submit_feedback tool.
type FeedbackInput struct {
	LogID   string `json:"log_id" jsonschema:"the log_id returned by query_collection"`
	Rating  int    `json:"rating" jsonschema:"-1 for a bad answer, 0 neutral, 1 for a good answer"`
	Comment string `json:"comment,omitempty" jsonschema:"optional comment"`
}

// FeedbackOutput is the output schema for the submit_feedback tool.
type FeedbackOutput struct {
	LogID  string `json:"log_id"`
	Rating int    `json:"rating"`
}

// ListCollectionsInput is the input schema for the list_collections tool.
type ListCollectionsInput struct{}

// ListCollectionsOutput is the output schema for the list_collections tool.
type ListCollectionsOutput struct {
	Collections []CollectionOutput `json:"collections"`
	Count       int                `json:"count"`
}

// CollectionOutput describes one collection.
type CollectionOutput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Provider    string `json:"provider"`
}

// registerTools registers all tool handlers with the MCP server.
// Ingestion and feedback tools are only offered when their ports are set.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query_collection",
		Description: "Answer a question using the documents in a knowledge base collection",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_collections",
		Description: "List the available knowledge base collections",
	}, s.handleListCollections)

	if s.ports.Ingestion != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_text",
			Description: "Add text to a knowledge base collection",
		}, s.handleIngest)
	}

	if s.ports.Feedback != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "submit_feedback",
			Description: "Rate an answer returned by query_collection",
		}, s.handleFeedback)
	}
}

// handleQuery handles the query_collection tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	collection, err := s.ports.Collections.Resolve(ctx, input.Collection)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	result, err := s.ports.Query.Query(ctx, collection.ID, input.Question, input.TopK)
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Answer:  result.Answer,
		LogID:   result.LogID,
		Model:   result.Model,
		Sources: make([]ChunkOutput, len(result.Chunks)),
	}
	for i, c := range result.Chunks {
		output.Sources[i] = ChunkOutput{
			DocumentID: c.DocumentID,
			Content:    c.Content,
			Distance:   c.Distance,
		}
	}

	return nil, output, nil
}

// handleIngest handles the ingest_text tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, IngestOutput{}, errors.New("text is required")
	}

	collection, err := s.ports.Collections.Resolve(ctx, input.Collection)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	filename := input.Filename
	if filename == "" {
		filename = "mcp.txt"
	}

	result, err := s.ports.Ingestion.Ingest(ctx, collection.ID, []byte(input.Text), filename)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		DocumentID: result.DocumentID,
		Chunks:     result.ChunkCount,
		Status:     string(result.Status),
		Reason:     result.Reason,
	}, nil
}

// handleFeedback handles the submit_feedback tool invocation.
func (s *Server) handleFeedback(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FeedbackInput,
) (*mcp.CallToolResult, FeedbackOutput, error) {
	if err := s.ports.Feedback.SubmitFeedback(ctx, input.LogID, input.Rating, input.Comment); err != nil {
		return nil, FeedbackOutput{}, err
	}
	return nil, FeedbackOutput{LogID: input.LogID, Rating: input.Rating}, nil
}

// handleListCollections handles the list_collections tool invocation.
func (s *Server) handleListCollections(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListCollectionsInput,
) (*mcp.CallToolResult, ListCollectionsOutput, error) {
	collections, err := s.ports.Collections.List(ctx)
	if err != nil {
		return nil, ListCollectionsOutput{}, err
	}

	output := ListCollectionsOutput{
		Collections: make([]CollectionOutput, len(collections)),
		Count:       len(collections),
	}
	for i := range collections {
		output.Collections[i] = toCollectionOutput(&collections[i])
	}
	return nil, output, nil
}

func toCollectionOutput(c *domain.Collection) CollectionOutput {
	return CollectionOutput{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Provider:    c.Provider,
	}
}
