// Package domain defines the core business entities for kbase.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Collection: A named, independently configured knowledge base
//   - Document: An ingested file and its lifecycle status
//   - Chunk: A word-window of a document, the unit of retrieval
//   - Embedding: The audit copy of a chunk's vector
//   - QueryLog: One answered question with usage and feedback
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
