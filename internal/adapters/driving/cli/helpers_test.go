package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbase/internal/adapters/driven/credentials"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/kbase/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/kbase/internal/core/domain"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/services"
	"github.com/custodia-labs/kbase/internal/normalisers"
	"github.com/custodia-labs/kbase/internal/postprocessors"
)

const testDimension = 3

// stubProvider embeds by counting two keywords and answers with a fixed text.
type stubProvider struct {
	mu      sync.Mutex
	name    domain.ProviderName
	prompts []string
}

func (p *stubProvider) Name() domain.ProviderName { return p.name }

func (p *stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, testDimension)
		for _, word := range strings.Fields(strings.ToLower(text)) {
			switch strings.Trim(word, "?.,") {
			case "fox":
				v[0]++
			case "dog":
				v[1]++
			}
		}
		v[2] = 1
		vectors[i] = v
	}
	return vectors, nil
}

func (p *stubProvider) Complete(_ context.Context, prompt string, _ domain.CompleteOptions) (*domain.Completion, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	return &domain.Completion{
		Text:  "The dog is lazy.",
		Model: "stub-model",
		Usage: domain.TokenUsage{PromptTokens: 30, CompletionTokens: 5, TotalTokens: 35},
	}, nil
}

func (p *stubProvider) Close() error { return nil }

type stubFactory struct {
	provider *stubProvider
}

func (f *stubFactory) Create(cfg domain.ProviderConfig) (driven.Provider, error) {
	f.provider.name = cfg.Name
	return f.provider, nil
}

// setupTestServices wires real services over in-memory stores and a stub
// provider, and restores the package state when the test ends.
func setupTestServices(t *testing.T) {
	t.Helper()

	settings := domain.DefaultSettings(t.TempDir())
	settings.Dimension = testDimension
	settings.ProviderTimeout = 2 * time.Second

	index, err := flat.NewManager(t.TempDir(), testDimension)
	require.NoError(t, err)

	directory := credentials.NewDirectory(map[domain.ProviderName]domain.ProviderConfig{
		domain.ProviderOpenAI: {APIKey: "sk-test", EmbeddingModel: "text-embedding-3-small", CompletionModel: "gpt-4o-mini"},
	})
	factory := &stubFactory{provider: &stubProvider{}}

	collectionStore := memory.NewCollectionStore()
	docStore := memory.NewDocumentStore()
	logStore := memory.NewQueryLogStore()
	chunkers := postprocessors.NewDefaultRegistry()
	norms := normalisers.NewDefaultRegistry()

	SetServices(&Services{
		Collections: services.NewCollectionService(collectionStore, docStore, index, chunkers, directory),
		Ingestion: services.NewIngestionService(collectionStore, docStore, index,
			norms, chunkers, directory, factory, &settings),
		Query:      services.NewQueryService(collectionStore, docStore, logStore, index, directory, factory, &settings),
		Feedback:   services.NewFeedbackService(logStore),
		Extensions: norms.SupportedExtensions(),
		TopK:       settings.TopK,
	})

	t.Cleanup(func() {
		SetServices(nil)
		configStore = nil
		resetFlags(rootCmd)
	})
}

// resetFlags restores every flag to its default so tests do not leak state.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the root command with args and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithInput(t, nil, args...)
}

func runWithInput(t *testing.T, in *strings.Reader, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	if in != nil {
		rootCmd.SetIn(in)
	}
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// mustRun executes a command that is expected to succeed.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}
