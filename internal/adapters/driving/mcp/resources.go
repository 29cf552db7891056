package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// URIScheme is the custom URI scheme for kbase resources.
	uriScheme = "kbase://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing collections.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "collections",
		Name:        "collections",
		Description: "List of all knowledge base collections",
		MIMEType:    "application/json",
	}, s.handleCollectionsResource)

	// Template for collection documents.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "collections/{collection}/documents",
		Name:        "collection-documents",
		Description: "Documents ingested into a collection",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a single query log.
	if s.ports.Feedback != nil {
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "logs/{logId}",
			Name:        "query-log",
			Description: "A logged question, its context, answer and feedback",
			MIMEType:    "application/json",
		}, s.handleLogResource)
	}
}

// handleCollectionsResource returns a list of all collections.
func (s *Server) handleCollectionsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	collections, err := s.ports.Collections.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	infos := make([]CollectionOutput, len(collections))
	for i := range collections {
		infos[i] = toCollectionOutput(&collections[i])
	}
	return jsonResult(req.Params.URI, infos)
}

// handleDocumentsResource returns the documents of one collection.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract collection from URI: kbase://collections/{collection}/documents
	key := extractCollection(req.Params.URI)
	if key == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	collection, err := s.ports.Collections.Resolve(ctx, key)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	docs, err := s.ports.Collections.ListDocuments(ctx, collection.ID)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	// Build simplified document list.
	type docInfo struct {
		ID       string    `json:"id"`
		Filename string    `json:"filename"`
		Status   string    `json:"status"`
		Reason   string    `json:"reason,omitempty"`
		Created  time.Time `json:"created_at"`
	}

	infos := make([]docInfo, len(docs))
	for i := range docs {
		infos[i] = docInfo{
			ID:       docs[i].ID,
			Filename: docs[i].Filename,
			Status:   string(docs[i].Status),
			Reason:   docs[i].Reason,
			Created:  docs[i].CreatedAt,
		}
	}
	return jsonResult(req.Params.URI, infos)
}

// handleLogResource returns a single query log.
func (s *Server) handleLogResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	logID := extractLogID(req.Params.URI)
	if logID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	entry, err := s.ports.Feedback.GetLog(ctx, logID)
	if err != nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	info := struct {
		ID       string `json:"id"`
		Query    string `json:"query"`
		Context  string `json:"context"`
		Answer   string `json:"answer"`
		Model    string `json:"model"`
		Latency  int64  `json:"latency_ms"`
		Rating   *int   `json:"feedback_rating,omitempty"`
		Feedback string `json:"feedback_comment,omitempty"`
	}{
		ID:       entry.ID,
		Query:    entry.Query,
		Context:  entry.Context,
		Answer:   entry.Answer,
		Model:    entry.Model,
		Latency:  entry.LatencyMS,
		Rating:   entry.FeedbackRating,
		Feedback: entry.FeedbackComment,
	}
	return jsonResult(req.Params.URI, info)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractCollection extracts the collection from a URI like kbase://collections/{collection}/documents.
func extractCollection(uri string) string {
	const prefix = uriScheme + "collections/"
	const suffix = "/documents"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}

// extractLogID extracts the log ID from a URI like kbase://logs/{logId}.
func extractLogID(uri string) string {
	const prefix = uriScheme + "logs/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	return strings.TrimPrefix(uri, prefix)
}
