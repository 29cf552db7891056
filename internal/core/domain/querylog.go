package domain

import (
	"fmt"
	"time"
)

// DefaultTopK is the number of chunks retrieved when the caller does not say.
const DefaultTopK = 3

// QueryLog records one completed retrieval call.
type QueryLog struct {
	ID               string
	CollectionID     string
	Query            string
	Context          string
	Answer           string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	LatencyMS        int64

	// FeedbackRating is nil until feedback is submitted.
	FeedbackRating  *int
	FeedbackComment string

	CreatedAt time.Time
}

// ValidateRating checks a feedback rating is -1, 0 or 1.
func ValidateRating(rating int) error {
	if rating < -1 || rating > 1 {
		return fmt.Errorf("%w: rating must be -1, 0 or 1, got %d", ErrInvalidInput, rating)
	}
	return nil
}

// RetrievedChunk is one chunk used as context, in distance order.
type RetrievedChunk struct {
	ChunkID    string
	DocumentID string
	Content    string
	Distance   float32
}

// QueryResult is returned by the query entry point.
type QueryResult struct {
	Answer  string
	Context string
	LogID   string
	Model   string
	Usage   TokenUsage
	Chunks  []RetrievedChunk
	Latency time.Duration
}
