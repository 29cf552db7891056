package domain

import (
	"fmt"
	"path/filepath"
	"time"
)

// Settings defaults.
const (
	DefaultDimension       = 1536
	DefaultProviderTimeout = 60 * time.Second
	DefaultRateBurst       = 1
)

// Settings is the deployment-wide configuration.
// It is built once at process start and passed by reference into services
// and adapters; nothing mutates it afterwards.
type Settings struct {
	// DataDir holds the SQLite database.
	DataDir string

	// VectorDir holds the per-collection index files.
	// Defaults to DataDir/vector_stores.
	VectorDir string

	// Dimension is the embedding size every provider must return.
	Dimension int

	// TopK is the default number of chunks retrieved per query.
	TopK int

	// ProviderTimeout bounds every embed and complete call.
	ProviderTimeout time.Duration

	// RateLimit is the request rate per provider in requests/second.
	// Zero disables limiting.
	RateLimit float64

	// RateBurst is the token bucket size when RateLimit is set.
	RateBurst int

	// Providers maps provider names to their connection settings.
	Providers map[ProviderName]ProviderConfig
}

// DefaultSettings returns settings rooted at dataDir.
func DefaultSettings(dataDir string) Settings {
	return Settings{
		DataDir:         dataDir,
		VectorDir:       filepath.Join(dataDir, "vector_stores"),
		Dimension:       DefaultDimension,
		TopK:            DefaultTopK,
		ProviderTimeout: DefaultProviderTimeout,
		RateBurst:       DefaultRateBurst,
		Providers:       make(map[ProviderName]ProviderConfig),
	}
}

// Validate checks the settings are usable.
func (s *Settings) Validate() error {
	if s.DataDir == "" {
		return fmt.Errorf("%w: data directory is required", ErrConfiguration)
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: vector dimension must be positive, got %d", ErrConfiguration, s.Dimension)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", ErrConfiguration, s.TopK)
	}
	if s.ProviderTimeout <= 0 {
		return fmt.Errorf("%w: provider timeout must be positive", ErrConfiguration)
	}
	if s.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrConfiguration)
	}
	if s.RateLimit > 0 && s.RateBurst < 1 {
		return fmt.Errorf("%w: rate burst must be at least 1", ErrConfiguration)
	}
	for name := range s.Providers {
		if !name.IsValid() {
			return fmt.Errorf("%w: unknown provider %q", ErrConfiguration, name)
		}
	}
	return nil
}
