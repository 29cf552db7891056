// Command kbase answers questions from document collections.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/kbase/internal/adapters/driven/config/file"
	"github.com/custodia-labs/kbase/internal/adapters/driven/credentials"
	"github.com/custodia-labs/kbase/internal/adapters/driven/provider"
	"github.com/custodia-labs/kbase/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/kbase/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/kbase/internal/adapters/driving/cli"
	"github.com/custodia-labs/kbase/internal/core/ports/driven"
	"github.com/custodia-labs/kbase/internal/core/services"
	"github.com/custodia-labs/kbase/internal/logger"
	"github.com/custodia-labs/kbase/internal/normalisers"
	"github.com/custodia-labs/kbase/internal/postprocessors"
)

// version is set at build time via -ldflags "-X main.version=...".
var version string

func main() {
	if err := file.LoadEnvFiles(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	cli.SetVersion(version)
	cli.SetConfigOpener(func(path string) (driven.ConfigStore, error) {
		return file.NewConfigStore(path)
	})
	cli.SetBootstrapper(bootstrap)

	if err := cli.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap wires storage, the vector index, providers and services.
func bootstrap(_ context.Context, opts cli.Options) (*cli.Services, func(), error) {
	config, err := file.NewConfigStore(opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening config: %w", err)
	}

	settings, err := file.LoadSettings(config)
	if err != nil {
		return nil, nil, err
	}
	if opts.DataDir != "" {
		settings.DataDir = opts.DataDir
		settings.VectorDir = filepath.Join(opts.DataDir, "vector_stores")
		if err := settings.Validate(); err != nil {
			return nil, nil, err
		}
	}
	logger.Debug("Data directory: %s", settings.DataDir)

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}

	index, err := flat.NewManager(settings.VectorDir, settings.Dimension)
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("opening vector index: %w", err)
	}

	norms := normalisers.NewDefaultRegistry()
	chunkers := postprocessors.NewDefaultRegistry()
	directory := credentials.NewDirectoryFromSettings(settings)
	factory := provider.NewFactoryFromSettings(settings)

	collectionStore := store.CollectionStore()
	docStore := store.DocumentStore()
	logStore := store.QueryLogStore()

	svc := &cli.Services{
		Collections: services.NewCollectionService(collectionStore, docStore, index, chunkers, directory),
		Ingestion: services.NewIngestionService(collectionStore, docStore, index,
			norms, chunkers, directory, factory, settings),
		Query:      services.NewQueryService(collectionStore, docStore, logStore, index, directory, factory, settings),
		Feedback:   services.NewFeedbackService(logStore),
		Extensions: norms.SupportedExtensions(),
		TopK:       settings.TopK,
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("Closing store: %v", err)
		}
	}
	return svc, cleanup, nil
}
