// Package cli provides the kbase command line interface.
// It implements a driving adapter following hexagonal architecture principles.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/ports/driving"
	"github.com/custodia-labs/kbase/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// annotationBootstrap marks how much wiring a command needs before it runs.
const annotationBootstrap = "kbase/bootstrap"

const (
	bootstrapNone   = "none"
	bootstrapConfig = "config"
)

// Options carries the global flags to the bootstrapper.
type Options struct {
	ConfigPath string
	DataDir    string
	Verbose    bool
}

// Services holds everything a command can reach.
type Services struct {
	Collections driving.CollectionService
	Ingestion   driving.IngestionService
	Query       driving.QueryService
	Feedback    driving.FeedbackService

	// Extensions lists the file extensions the normaliser registry handles.
	Extensions []string

	// TopK is the configured default retrieval depth.
	TopK int
}

// Bootstrapper wires the application for a command invocation. The
// returned cleanup func is run once the command finishes.
type Bootstrapper func(ctx context.Context, opts Options) (*Services, func(), error)

// ConfigOpener opens the config store without wiring anything else.
type ConfigOpener func(path string) (driven.ConfigStore, error)

// Services used by commands. Set by SetServices or the bootstrapper.
var (
	collectionService driving.CollectionService
	ingestionService  driving.IngestionService
	queryService      driving.QueryService
	feedbackService   driving.FeedbackService
	configStore       driven.ConfigStore

	supportedExtensions []string
	defaultTopK         int
)

var (
	bootstrapper Bootstrapper
	configOpener ConfigOpener
	cleanup      func()

	flagConfig  string
	flagDataDir string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kbase",
	Short: "Retrieval-augmented answers over your own documents",
	Long: `kbase ingests documents into named collections, indexes their chunks
as embeddings and answers questions from the nearest chunks using an AI
provider. Every answer is logged and can be rated.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: bootstrap,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.kbase/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (overrides config)")
}

// SetBootstrapper registers the function that wires services before a command runs.
func SetBootstrapper(b Bootstrapper) {
	bootstrapper = b
}

// SetConfigOpener registers the function used by the config commands.
func SetConfigOpener(o ConfigOpener) {
	configOpener = o
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// SetServices installs services directly, bypassing the bootstrapper.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	collectionService = s.Collections
	ingestionService = s.Ingestion
	queryService = s.Query
	feedbackService = s.Feedback
	supportedExtensions = s.Extensions
	defaultTopK = s.TopK
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer runCleanup()
	return rootCmd.ExecuteContext(ctx)
}

func bootstrap(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(flagVerbose)

	switch bootstrapLevel(cmd) {
	case bootstrapNone:
		return nil
	case bootstrapConfig:
		return openConfig()
	}

	if bootstrapper == nil {
		return nil
	}

	services, done, err := bootstrapper(cmd.Context(), Options{
		ConfigPath: flagConfig,
		DataDir:    flagDataDir,
		Verbose:    flagVerbose,
	})
	if err != nil {
		return err
	}
	SetServices(services)
	cleanup = done
	return nil
}

// bootstrapLevel reads the annotation from the command or its nearest parent.
func bootstrapLevel(cmd *cobra.Command) string {
	for c := cmd; c != nil; c = c.Parent() {
		if level, ok := c.Annotations[annotationBootstrap]; ok {
			return level
		}
	}
	return ""
}

func openConfig() error {
	if configStore != nil || configOpener == nil {
		return nil
	}
	store, err := configOpener(flagConfig)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	configStore = store
	return nil
}

func runCleanup() {
	if cleanup != nil {
		cleanup()
		cleanup = nil
	}
}

// topK returns the flag value, or the configured default when unset.
func topK(flag int) int {
	if flag > 0 {
		return flag
	}
	return defaultTopK
}

// Service accessors return a uniform error when wiring is missing.

func collections() (driving.CollectionService, error) {
	if collectionService == nil {
		return nil, errors.New("collection service not configured")
	}
	return collectionService, nil
}

func ingestion() (driving.IngestionService, error) {
	if ingestionService == nil {
		return nil, errors.New("ingestion service not configured")
	}
	return ingestionService, nil
}

func querier() (driving.QueryService, error) {
	if queryService == nil {
		return nil, errors.New("query service not configured")
	}
	return queryService, nil
}

func feedback() (driving.FeedbackService, error) {
	if feedbackService == nil {
		return nil, errors.New("feedback service not configured")
	}
	return feedbackService, nil
}
