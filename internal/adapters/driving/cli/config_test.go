package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

// useTempConfig points the config commands at a fresh file.
func useTempConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	store, err := file.NewConfigStore(path)
	require.NoError(t, err)
	configStore = store
	t.Cleanup(func() {
		configStore = nil
		resetFlags(rootCmd)
	})
	return path
}

func TestConfigShow_Empty(t *testing.T) {
	path := useTempConfig(t)

	out := mustRun(t, "config", "show")
	assert.Contains(t, out, "# "+path)
	assert.Contains(t, out, "(empty)")
}

func TestConfigSetShowUnset(t *testing.T) {
	path := useTempConfig(t)

	mustRun(t, "config", "set", "retrieval.top_k", "7")
	mustRun(t, "config", "set", "providers.openai.api_key", "sk-1234567890abcd")
	mustRun(t, "config", "set", "provider.timeout", "45s")

	out := mustRun(t, "config", "show")
	assert.Contains(t, out, "retrieval.top_k = 7")
	assert.Contains(t, out, "providers.openai.api_key = sk-1...abcd")
	assert.NotContains(t, out, "sk-1234567890abcd")
	assert.Contains(t, out, "provider.timeout = 45s")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[retrieval]")
	assert.Contains(t, string(data), "top_k = 7")

	out = mustRun(t, "config", "unset", "retrieval.top_k")
	assert.Contains(t, out, "Unset retrieval.top_k")

	reopened, err := file.NewConfigStore(path)
	require.NoError(t, err)
	_, ok := reopened.Get("retrieval.top_k")
	assert.False(t, ok)
	assert.Equal(t, 45, int(reopened.GetDuration("provider.timeout").Seconds()))
}

func TestConfigUnset_Missing(t *testing.T) {
	useTempConfig(t)

	_, err := run(t, "config", "unset", "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestConfigSet_InvalidKey(t *testing.T) {
	useTempConfig(t)

	_, err := run(t, "config", "set", "retrieval.", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = run(t, "config", "set", "  ", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key is required")
}

func TestConfig_WithoutStore(t *testing.T) {
	configStore = nil

	_, err := run(t, "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config store not configured")
}

func TestParseConfigValue(t *testing.T) {
	tests := []struct {
		raw  string
		want any
	}{
		{"42", int64(42)},
		{"-3", int64(-3)},
		{"0.5", 0.5},
		{"true", true},
		{"false", false},
		{"TRUE", "TRUE"},
		{"1s", "1s"},
		{"text-embedding-3-small", "text-embedding-3-small"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, parseConfigValue(tt.raw))
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "****", maskAPIKey("12345678"))
	assert.Equal(t, "sk-a...wxyz", maskAPIKey("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, isSecretKey("providers.openai.api_key"))
	assert.False(t, isSecretKey("providers.openai.base_url"))
}
