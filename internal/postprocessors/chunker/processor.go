// Package chunker provides the word-window chunker.
package chunker

import (
	"strings"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits text on whitespace into windows of a fixed number of
// words, advancing by size - overlap words per window.
type Processor struct{}

// New creates a new word-window chunker.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Split returns the windows of text. The last window may be shorter than size.
func (p *Processor) Split(text string, size, overlap int) ([]string, error) {
	if err := domain.ValidateChunking(size, overlap); err != nil {
		return nil, err
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	step := size - overlap
	chunks := make([]string, 0, len(words)/step+1)

	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}

		chunk := strings.Join(words[start:end], " ")
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}
