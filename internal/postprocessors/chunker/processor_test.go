package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestSplit_LiteralWindows(t *testing.T) {
	chunks, err := New().Split("the quick brown fox jumps over the lazy dog", 4, 1)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"the quick brown fox",
		"fox jumps over the",
		"the lazy dog",
	}, chunks)
}

func TestSplit_EmptyText(t *testing.T) {
	tests := []string{"", "   ", "\n\t \n"}

	for _, text := range tests {
		chunks, err := New().Split(text, 4, 1)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestSplit_RejectsNonAdvancingConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 4, 4},
		{"overlap exceeds size", 4, 5},
		{"zero size", 0, 0},
		{"negative overlap", 4, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := New().Split("some words here", tt.size, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Nil(t, chunks)
		})
	}
}

func TestSplit_RejectsConfigEvenForEmptyText(t *testing.T) {
	_, err := New().Split("", 3, 3)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSplit_NoOverlap(t *testing.T) {
	chunks, err := New().Split("a b c d e f g", 3, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"a b c", "d e f", "g"}, chunks)
}

func TestSplit_TextShorterThanWindow(t *testing.T) {
	chunks, err := New().Split("just two", 10, 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"just two"}, chunks)
}

func TestSplit_NormalisesWhitespace(t *testing.T) {
	chunks, err := New().Split("  alpha\n\nbeta\tgamma   delta ", 2, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha beta", "gamma delta"}, chunks)
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 50)
	p := New()

	first, err := p.Split(text, 17, 5)
	require.NoError(t, err)
	second, err := p.Split(text, 17, 5)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSplit_CoverageReconstructsTokens(t *testing.T) {
	text := "one two three four five six seven eight nine ten eleven twelve thirteen"
	original := strings.Fields(text)

	configs := []struct{ size, overlap int }{
		{4, 1}, {5, 2}, {3, 0}, {13, 12}, {20, 3}, {2, 1},
	}

	for _, cfg := range configs {
		chunks, err := New().Split(text, cfg.size, cfg.overlap)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		var rebuilt []string
		for i, chunk := range chunks {
			words := strings.Fields(chunk)
			if i > 0 {
				skip := min(cfg.overlap, len(words))
				words = words[skip:]
			}
			rebuilt = append(rebuilt, words...)
		}

		assert.Equal(t, original, rebuilt, "size=%d overlap=%d", cfg.size, cfg.overlap)
		assert.NotEmpty(t, strings.TrimSpace(chunks[len(chunks)-1]))
	}
}
