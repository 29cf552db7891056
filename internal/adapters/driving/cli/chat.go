package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/adapters/driving/tui"
)

var chatTopK int

var chatCmd = &cobra.Command{
	Use:   "chat <collection>",
	Short: "Ask questions interactively",
	Long: `Open an interactive chat over one collection. Each answer shows the
chunks it was drawn from and can be rated.

Controls:
  Enter      - Ask
  Ctrl+U     - Rate the last answer good
  Ctrl+N     - Rate the last answer neutral
  Ctrl+D     - Rate the last answer bad
  Ctrl+S     - Show or hide sources
  PgUp/PgDn  - Scroll
  F1         - Help
  Ctrl+C     - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&chatTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	cols, err := collections()
	if err != nil {
		return err
	}
	c, err := cols.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	app, err := tui.NewApp(tui.NewPorts(queryService, feedbackService, c))
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	app.WithContext(cmd.Context()).WithTopK(topK(chatTopK))
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
