package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// clearEnv blanks every variable LoadSettings reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"KBASE_DATA_DIR", "VECTOR_STORE_PATH", "EMBEDDING_DIM"} {
		t.Setenv(key, "")
	}
	for _, env := range providerEnvs {
		for _, key := range []string{env.trigger, env.apiKey, env.endpoint, env.embeddingModel, env.completionModel} {
			if key != "" {
				t.Setenv(key, "")
			}
		}
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	settings, err := LoadSettings(setupTestConfigStore(t))
	require.NoError(t, err)

	dataDir := filepath.Join(home, ".kbase", "data")
	assert.Equal(t, dataDir, settings.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "vector_stores"), settings.VectorDir)
	assert.Equal(t, domain.DefaultDimension, settings.Dimension)
	assert.Equal(t, domain.DefaultTopK, settings.TopK)
	assert.Equal(t, domain.DefaultProviderTimeout, settings.ProviderTimeout)
	assert.Zero(t, settings.RateLimit)
	assert.Empty(t, settings.Providers)
}

func TestLoadSettings_FromFile(t *testing.T) {
	clearEnv(t)
	store, err := NewConfigStore(writeConfig(t, `
data_dir = "/srv/kbase"

[vector]
dimension = 1024
path = "/srv/vectors"

[retrieval]
top_k = 5

[provider]
timeout = "15s"
rate_limit = 2
burst = 4

[providers.cohere]
api_key = "co-key"
embedding_model = "embed-multilingual-v3.0"

[providers.ollama]
endpoint = "http://gpu:11434"
completion_model = "mistral"
`))
	require.NoError(t, err)

	settings, err := LoadSettings(store)
	require.NoError(t, err)

	assert.Equal(t, "/srv/kbase", settings.DataDir)
	assert.Equal(t, "/srv/vectors", settings.VectorDir)
	assert.Equal(t, 1024, settings.Dimension)
	assert.Equal(t, 5, settings.TopK)
	assert.Equal(t, 15*time.Second, settings.ProviderTimeout)
	assert.Equal(t, 2.0, settings.RateLimit)
	assert.Equal(t, 4, settings.RateBurst)

	require.Len(t, settings.Providers, 2)
	assert.Equal(t, domain.ProviderConfig{
		Name:           domain.ProviderCohere,
		APIKey:         "co-key",
		EmbeddingModel: "embed-multilingual-v3.0",
	}, settings.Providers[domain.ProviderCohere])
	assert.Equal(t, domain.ProviderConfig{
		Name:            domain.ProviderOllama,
		Endpoint:        "http://gpu:11434",
		CompletionModel: "mistral",
	}, settings.Providers[domain.ProviderOllama])
}

func TestLoadSettings_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	store, err := NewConfigStore(writeConfig(t, `
data_dir = "/from/file"

[vector]
dimension = 1024

[providers.openai]
api_key = "file-key"
completion_model = "gpt-4o"
`))
	require.NoError(t, err)

	t.Setenv("KBASE_DATA_DIR", "/from/env")
	t.Setenv("EMBEDDING_DIM", "384")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("AZURE_OPENAI_API_KEY", "az-key")
	t.Setenv("AZURE_OPENAI_ENDPOINT", "https://res.openai.azure.com")
	t.Setenv("AZURE_OPENAI_EMBEDDING_MODEL", "embed-prod")

	settings, err := LoadSettings(store)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", settings.DataDir)
	assert.Equal(t, 384, settings.Dimension)

	openai := settings.Providers[domain.ProviderOpenAI]
	assert.Equal(t, "env-key", openai.APIKey)
	assert.Equal(t, "gpt-4o", openai.CompletionModel)

	azure := settings.Providers[domain.ProviderAzure]
	assert.Equal(t, "az-key", azure.APIKey)
	assert.Equal(t, "https://res.openai.azure.com", azure.Endpoint)
	assert.Equal(t, "embed-prod", azure.EmbeddingModel)
	assert.True(t, azure.IsConfigured())
}

func TestLoadSettings_TriggerVariable(t *testing.T) {
	clearEnv(t)
	t.Setenv("KBASE_DATA_DIR", t.TempDir())

	// A model variable alone does not configure a provider.
	t.Setenv("ANTHROPIC_COMPLETION_MODEL", "claude-3-haiku-20240307")

	settings, err := LoadSettings(setupTestConfigStore(t))
	require.NoError(t, err)
	assert.NotContains(t, settings.Providers, domain.ProviderAnthropic)

	t.Setenv("ANTHROPIC_API_KEY", "ant-key")
	settings, err = LoadSettings(setupTestConfigStore(t))
	require.NoError(t, err)
	assert.Equal(t, "claude-3-haiku-20240307", settings.Providers[domain.ProviderAnthropic].CompletionModel)
}

func TestLoadSettings_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		env    map[string]string
	}{
		{name: "bad dimension env", env: map[string]string{"EMBEDDING_DIM": "wide"}},
		{name: "zero dimension", config: "[vector]\ndimension = -1\n"},
		{name: "bad timeout", config: "[provider]\ntimeout = \"soon\"\n"},
		{name: "negative rate", config: "[provider]\nrate_limit = -1.0\n"},
		{name: "unknown provider table", config: "[providers.mistral]\napi_key = \"k\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("KBASE_DATA_DIR", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			store, err := NewConfigStore(writeConfig(t, tt.config))
			require.NoError(t, err)

			_, err = LoadSettings(store)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("COHERE_API_KEY=from-dotenv\nOPENAI_API_KEY=ignored\n"), 0600))

	// Already-set variables are not overridden.
	t.Setenv("OPENAI_API_KEY", "from-shell")
	t.Cleanup(func() { _ = os.Unsetenv("COHERE_API_KEY") })
	require.NoError(t, os.Unsetenv("COHERE_API_KEY"))

	require.NoError(t, LoadEnvFiles(filepath.Join(dir, "missing.env"), envPath))

	assert.Equal(t, "from-dotenv", os.Getenv("COHERE_API_KEY"))
	assert.Equal(t, "from-shell", os.Getenv("OPENAI_API_KEY"))
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, "kb"), expandHome("~/kb"))
	assert.Equal(t, home, expandHome("~"))
	assert.Equal(t, "/abs/path", expandHome("/abs/path"))
	assert.Equal(t, "~user/x", expandHome("~user/x"))
}
