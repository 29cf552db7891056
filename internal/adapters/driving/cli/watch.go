package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driving/watcher"
	"github.com/custodia-labs/kbase/internal/core/domain"
)

var (
	watchScan     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <collection> <dir>",
	Short: "Ingest files as they appear in a directory",
	Long: `Watch a directory and ingest every new or modified file with a
supported extension into the collection. Hidden files and editor temp
files are ignored. A modified file replaces the document previously
ingested from a file of the same name once the new version is ready.
Removing a file does not remove its document.

Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(2),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchScan, "scan", false, "ingest files already in the directory first")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cols, err := collections()
	if err != nil {
		return err
	}
	svc, err := ingestion()
	if err != nil {
		return err
	}

	c, err := cols.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w, err := watcher.New(svc, c.ID, args[1], supportedExtensions)
	if err != nil {
		return err
	}
	w.WithDebounce(watchDebounce).ReplacePrevious(cols).OnResult(func(path string, result *domain.IngestResult, err error) {
		if err != nil {
			cmd.Printf("  fail  %s  %v\n", path, err)
			return
		}
		cmd.Printf("  ok    %s  %d chunks\n", path, result.ChunkCount)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchScan {
		if err := w.Scan(ctx); err != nil {
			return fmt.Errorf("initial scan: %w", err)
		}
	}

	cmd.Printf("Watching %s for %s (Ctrl+C to stop)\n", args[1], c.Name)
	return w.Run(ctx)
}
