package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

var (
	createDescription    string
	createProvider       string
	createEmbeddingModel string
	createStrategy       string
	createChunkSize      int
	createChunkOverlap   int
)

var collectionCmd = &cobra.Command{
	Use:     "collection",
	Aliases: []string{"collections", "col"},
	Short:   "Manage collections",
	Long: `A collection is a named set of documents sharing one AI provider,
one embedding model and one chunking configuration. Collections are
addressed by name or ID.`,
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionCreate,
}

var collectionListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List collections",
	Args:    cobra.NoArgs,
	RunE:    runCollectionList,
}

var collectionShowCmd = &cobra.Command{
	Use:   "show <collection>",
	Short: "Show a collection's settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionShow,
}

var collectionDeleteCmd = &cobra.Command{
	Use:     "delete <collection>",
	Aliases: []string{"rm"},
	Short:   "Delete a collection with its documents and index",
	Args:    cobra.ExactArgs(1),
	RunE:    runCollectionDelete,
}

var collectionClearCmd = &cobra.Command{
	Use:   "clear <collection>",
	Short: "Remove every document and reset the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionClear,
}

var collectionStatsCmd = &cobra.Command{
	Use:   "stats <collection>",
	Short: "Show document, chunk and index counts",
	Long: `Show document counts by status, the number of stored chunk rows and
the number of vectors in the index. A mismatch between rows and vectors
means an earlier ingestion failed part way; run 'kbase collection rebuild'
to repair it.`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionStats,
}

var collectionRebuildCmd = &cobra.Command{
	Use:   "rebuild <collection>",
	Short: "Rebuild the index from stored embeddings",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionRebuild,
}

func init() {
	f := collectionCreateCmd.Flags()
	f.StringVarP(&createDescription, "description", "d", "", "free-text description")
	f.StringVarP(&createProvider, "provider", "p", "", "AI provider (default openai)")
	f.StringVar(&createEmbeddingModel, "embedding-model", "", "embedding model override")
	f.StringVar(&createStrategy, "strategy", "", "chunking strategy: words or recursive (default recursive)")
	f.IntVar(&createChunkSize, "chunk-size", 0, "chunk size in words (default 1000)")
	f.IntVar(&createChunkOverlap, "chunk-overlap", 0, "words shared by consecutive chunks (default 200)")

	collectionCmd.AddCommand(
		collectionCreateCmd,
		collectionListCmd,
		collectionShowCmd,
		collectionDeleteCmd,
		collectionClearCmd,
		collectionStatsCmd,
		collectionRebuildCmd,
	)
	rootCmd.AddCommand(collectionCmd)
}

func runCollectionCreate(cmd *cobra.Command, args []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	c, err := svc.Create(cmd.Context(), domain.Collection{
		Name:             args[0],
		Description:      createDescription,
		Provider:         createProvider,
		EmbeddingModel:   createEmbeddingModel,
		ChunkingStrategy: createStrategy,
		ChunkSize:        createChunkSize,
		ChunkOverlap:     createChunkOverlap,
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	cmd.Printf("Created collection %s (%s)\n", c.Name, c.ID)
	return nil
}

func runCollectionList(cmd *cobra.Command, _ []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	list, err := svc.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	if len(list) == 0 {
		cmd.Println("No collections. Create one with 'kbase collection create <name>'.")
		return nil
	}

	for i := range list {
		c := &list[i]
		cmd.Printf("  %s  %s  [%s]\n", c.ID, c.Name, c.Provider)
		if c.Description != "" {
			cmd.Printf("      %s\n", c.Description)
		}
	}
	return nil
}

func runCollectionShow(cmd *cobra.Command, args []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	c, err := svc.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Name:            %s\n", c.Name)
	cmd.Printf("ID:              %s\n", c.ID)
	if c.Description != "" {
		cmd.Printf("Description:     %s\n", c.Description)
	}
	cmd.Printf("Provider:        %s\n", c.Provider)
	cmd.Printf("Embedding model: %s\n", c.EmbeddingModel)
	cmd.Printf("Chunking:        %s, %d words, %d overlap\n", c.ChunkingStrategy, c.ChunkSize, c.ChunkOverlap)
	cmd.Printf("Created:         %s\n", c.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func runCollectionDelete(cmd *cobra.Command, args []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	c, err := svc.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := svc.Delete(cmd.Context(), c.ID); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	cmd.Printf("Deleted collection %s\n", c.Name)
	return nil
}

func runCollectionClear(cmd *cobra.Command, args []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	c, err := svc.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := svc.ClearDocuments(cmd.Context(), c.ID); err != nil {
		return fmt.Errorf("clear collection: %w", err)
	}

	cmd.Printf("Cleared collection %s\n", c.Name)
	return nil
}

func runCollectionStats(cmd *cobra.Command, args []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	c, err := svc.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	stats, err := svc.Stats(cmd.Context(), c.ID)
	if err != nil {
		return fmt.Errorf("collection stats: %w", err)
	}

	cmd.Printf("Collection: %s\n", c.Name)
	cmd.Println("Documents:")
	statuses := make([]string, 0, len(stats.Documents))
	for status := range stats.Documents {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	if len(statuses) == 0 {
		cmd.Println("  none")
	}
	for _, status := range statuses {
		cmd.Printf("  %-10s %d\n", status, stats.Documents[domain.DocumentStatus(status)])
	}
	cmd.Printf("Chunk rows: %d\n", stats.ChunkRows)
	cmd.Printf("Indexed:    %d\n", stats.IndexCount)
	if !stats.Consistent() {
		cmd.Printf("Warning: index and chunk rows differ; run 'kbase collection rebuild %s'\n", c.Name)
	}
	return nil
}

func runCollectionRebuild(cmd *cobra.Command, args []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	c, err := svc.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	n, err := svc.Rebuild(cmd.Context(), c.ID)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	cmd.Printf("Rebuilt index for %s: %d vectors\n", c.Name, n)
	return nil
}
