// Package mcp provides an MCP (Model Context Protocol) server adapter for kbase.
// It lets AI assistants query collections, add text and rate answers.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")

// ErrMissingCollectionService is returned when the collection service is not provided.
var ErrMissingCollectionService = errors.New("mcp: collection service is required")
