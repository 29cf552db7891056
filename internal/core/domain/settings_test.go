package domain

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings("/data")

	assert.Equal(t, "/data", s.DataDir)
	assert.Equal(t, filepath.Join("/data", "vector_stores"), s.VectorDir)
	assert.Equal(t, 1536, s.Dimension)
	assert.Equal(t, 3, s.TopK)
	assert.Equal(t, DefaultProviderTimeout, s.ProviderTimeout)
	assert.NotNil(t, s.Providers)
	require.NoError(t, s.Validate())
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"missing data dir", func(s *Settings) { s.DataDir = "" }},
		{"zero dimension", func(s *Settings) { s.Dimension = 0 }},
		{"zero top k", func(s *Settings) { s.TopK = 0 }},
		{"zero timeout", func(s *Settings) { s.ProviderTimeout = 0 }},
		{"negative rate", func(s *Settings) { s.RateLimit = -1 }},
		{"rate without burst", func(s *Settings) { s.RateLimit = 2; s.RateBurst = 0 }},
		{"unknown provider", func(s *Settings) {
			s.Providers["mistral"] = ProviderConfig{Name: "mistral"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings("/data")
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
		})
	}
}
