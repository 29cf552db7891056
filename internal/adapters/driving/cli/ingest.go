package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// stdinArg is the file argument that reads from standard input.
const stdinArg = "-"

var ingestName string

var ingestCmd = &cobra.Command{
	Use:   "ingest <collection> <file|->...",
	Short: "Ingest files into a collection",
	Long: `Extract text from each file, split it into chunks, embed the chunks and
add them to the collection's index. Files are processed one at a time; a
failing file does not stop the rest.

The extractor is chosen by file extension: .txt, .md, .html, .pdf and .docx.
Use - to read from standard input, naming it with --name.

Examples:
  kbase ingest handbook leave-policy.pdf onboarding.md
  cat notes.md | kbase ingest handbook - --name notes.md`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestName, "name", "stdin.txt", "file name for standard input; its extension selects the extractor")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
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

	var paths []string
	var results []domain.IngestResult
	var errs []error

	for _, arg := range args[1:] {
		if arg != stdinArg {
			paths = append(paths, arg)
			continue
		}
		data, err := readStdin(cmd)
		if err != nil {
			return err
		}
		result, err := svc.Ingest(cmd.Context(), c.ID, data, ingestName)
		if result == nil {
			result = &domain.IngestResult{Filename: ingestName, Status: domain.DocumentFailed}
			if err != nil {
				result.Reason = err.Error()
			}
		}
		results = append(results, *result)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if len(paths) > 0 {
		many, err := svc.IngestMany(cmd.Context(), c.ID, paths)
		results = append(results, many...)
		if err != nil {
			errs = append(errs, err)
		}
	}

	failed := 0
	for i := range results {
		r := &results[i]
		if r.Status == domain.DocumentReady {
			cmd.Printf("  ok    %s  %d chunks  %s\n", r.Filename, r.ChunkCount, r.DocumentID)
			continue
		}
		failed++
		cmd.Printf("  fail  %s  %s\n", r.Filename, r.Reason)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", failed, len(results), errors.Join(errs...))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// readStdin reads all of standard input, refusing an interactive terminal.
func readStdin(cmd *cobra.Command) ([]byte, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil, fmt.Errorf("%w: refusing to read a document from a terminal; pipe a file or pass a path", domain.ErrInvalidInput)
	}

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return data, nil
}
