package domain

import "time"

// DocumentStatus is the lifecycle state of an ingested document.
type DocumentStatus string

// Document lifecycle states. Ingestion moves a document from processing
// to exactly one of the terminal states ready or failed.
const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentReady      DocumentStatus = "ready"
	DocumentFailed     DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentPending, DocumentProcessing, DocumentReady, DocumentFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions happen from this status.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentReady || s == DocumentFailed
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document is one ingested file within a collection.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// CollectionID links to the owning Collection.
	CollectionID string

	// Filename is the uploaded file name, used to pick an extractor.
	Filename string

	// Content is the extracted text before chunking.
	Content string

	// Status is the lifecycle state.
	Status DocumentStatus

	// Reason explains a failed status.
	Reason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a contiguous word-window of a document's text.
// Chunks are immutable once created.
type Chunk struct {
	// ID is the unique identifier, also the vector index join key.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the zero-based position within the document.
	Index int

	// Content is the chunk text.
	Content string

	CreatedAt time.Time
}

// Embedding is the relational audit copy of a chunk's vector.
// The searchable copy lives in the collection's vector index.
type Embedding struct {
	ID        int64
	ChunkID   string
	Provider  string
	Model     string
	Version   string
	Vector    []float32
	CreatedAt time.Time
}

// ChunkInput is a chunk and its vector waiting to be persisted.
type ChunkInput struct {
	Index    int
	Content  string
	Provider string
	Model    string
	Version  string
	Vector   []float32
}

// IngestResult is returned by the ingestion entry point.
type IngestResult struct {
	DocumentID string
	Filename   string
	ChunkCount int
	Status     DocumentStatus
	Reason     string
}
