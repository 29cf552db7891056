package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/logger"
)

// Config keys.
const (
	KeyDataDir         = "data_dir"
	KeyVectorPath      = "vector.path"
	KeyVectorDimension = "vector.dimension"
	KeyTopK            = "retrieval.top_k"
	KeyProviderTimeout = "provider.timeout"
	KeyRateLimit       = "provider.rate_limit"
	KeyRateBurst       = "provider.burst"
)

// providerEnv names the environment variables for one provider.
// The trigger variable marks the provider as configured.
type providerEnv struct {
	trigger         string
	apiKey          string
	endpoint        string
	embeddingModel  string
	completionModel string
}

var providerEnvs = map[domain.ProviderName]providerEnv{
	domain.ProviderOpenAI: {
		trigger:         "OPENAI_API_KEY",
		apiKey:          "OPENAI_API_KEY",
		endpoint:        "OPENAI_BASE_URL",
		embeddingModel:  "OPENAI_EMBEDDING_MODEL",
		completionModel: "OPENAI_COMPLETION_MODEL",
	},
	domain.ProviderAzure: {
		trigger:         "AZURE_OPENAI_API_KEY",
		apiKey:          "AZURE_OPENAI_API_KEY",
		endpoint:        "AZURE_OPENAI_ENDPOINT",
		embeddingModel:  "AZURE_OPENAI_EMBEDDING_MODEL",
		completionModel: "AZURE_OPENAI_COMPLETION_MODEL",
	},
	domain.ProviderCohere: {
		trigger:         "COHERE_API_KEY",
		apiKey:          "COHERE_API_KEY",
		embeddingModel:  "COHERE_EMBEDDING_MODEL",
		completionModel: "COHERE_COMPLETION_MODEL",
	},
	domain.ProviderAnthropic: {
		trigger:         "ANTHROPIC_API_KEY",
		apiKey:          "ANTHROPIC_API_KEY",
		completionModel: "ANTHROPIC_COMPLETION_MODEL",
	},
	domain.ProviderOllama: {
		trigger:         "OLLAMA_HOST",
		endpoint:        "OLLAMA_HOST",
		completionModel: "OLLAMA_MODEL",
	},
}

// LoadEnvFiles loads the given .env files into the process environment.
// Missing files are skipped and existing variables are never overridden.
func LoadEnvFiles(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("%w: load %s: %w", domain.ErrConfiguration, path, err)
		}
		logger.Debug("Loaded environment from %s", path)
	}
	return nil
}

// LoadSettings builds the deployment settings from the config store and
// the process environment. Environment variables win over file values.
func LoadSettings(store driven.ConfigStore) (*domain.Settings, error) {
	dataDir := firstNonEmpty(os.Getenv("KBASE_DATA_DIR"), store.GetString(KeyDataDir))
	if dataDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		dataDir = filepath.Join(dir, "data")
	}
	dataDir = expandHome(dataDir)

	settings := domain.DefaultSettings(dataDir)

	if v := firstNonEmpty(os.Getenv("VECTOR_STORE_PATH"), store.GetString(KeyVectorPath)); v != "" {
		settings.VectorDir = expandHome(v)
	}

	if v := store.GetInt(KeyVectorDimension); v != 0 {
		settings.Dimension = v
	}
	if v := os.Getenv("EMBEDDING_DIM"); v != "" {
		dim, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%w: EMBEDDING_DIM must be an integer, got %q", domain.ErrConfiguration, v)
		}
		settings.Dimension = dim
	}

	if v := store.GetInt(KeyTopK); v != 0 {
		settings.TopK = v
	}

	if raw := store.GetString(KeyProviderTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", domain.ErrConfiguration, KeyProviderTimeout, err)
		}
		settings.ProviderTimeout = d
	}
	settings.RateLimit = store.GetFloat(KeyRateLimit)
	if v := store.GetInt(KeyRateBurst); v != 0 {
		settings.RateBurst = v
	}

	for _, name := range domain.AllProviders() {
		if cfg, ok := loadProvider(store, name); ok {
			settings.Providers[name] = cfg
		}
	}
	for _, key := range store.Keys() {
		rest, ok := strings.CutPrefix(key, "providers.")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(rest, ".")
		if !domain.ProviderName(name).IsValid() {
			return nil, fmt.Errorf("%w: unknown provider %q in config", domain.ErrConfiguration, name)
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// loadProvider merges the [providers.<name>] table with the environment.
// A provider is configured when its table exists or its trigger variable is set.
func loadProvider(store driven.ConfigStore, name domain.ProviderName) (domain.ProviderConfig, bool) {
	prefix := "providers." + string(name) + "."
	env := providerEnvs[name]

	inFile := false
	for _, key := range store.Keys() {
		if strings.HasPrefix(key, prefix) {
			inFile = true
			break
		}
	}
	if !inFile && os.Getenv(env.trigger) == "" {
		return domain.ProviderConfig{}, false
	}

	return domain.ProviderConfig{
		Name:            name,
		APIKey:          firstNonEmpty(getenv(env.apiKey), store.GetString(prefix+"api_key")),
		Endpoint:        firstNonEmpty(getenv(env.endpoint), store.GetString(prefix+"endpoint")),
		EmbeddingModel:  firstNonEmpty(getenv(env.embeddingModel), store.GetString(prefix+"embedding_model")),
		CompletionModel: firstNonEmpty(getenv(env.completionModel), store.GetString(prefix+"completion_model")),
	}, true
}

func getenv(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
