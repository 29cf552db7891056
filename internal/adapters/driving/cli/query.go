package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

var (
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query <collection> <question>",
	Short: "Answer a question from a collection",
	Long: `Embed the question, retrieve the nearest chunks from the collection and
ask the collection's provider to answer from them. The exchange is logged;
rate it with 'kbase feedback <log-id> --rating N'.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of chunks to retrieve (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the result as JSON")
	rootCmd.AddCommand(queryCmd)
}

// queryOutput is the JSON shape of a query result.
type queryOutput struct {
	Answer           string        `json:"answer"`
	LogID            string        `json:"log_id"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	TotalTokens      int           `json:"total_tokens"`
	LatencyMS        int64         `json:"latency_ms"`
	Sources          []querySource `json:"sources"`
}

type querySource struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Distance   float32 `json:"distance"`
	Content    string  `json:"content"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	cols, err := collections()
	if err != nil {
		return err
	}
	svc, err := querier()
	if err != nil {
		return err
	}

	c, err := cols.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	question := strings.Join(args[1:], " ")
	result, err := svc.Query(cmd.Context(), c.ID, question, topK(queryTopK))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputQueryJSON(cmd, result)
	}
	outputQueryText(cmd, result)
	return nil
}

func outputQueryJSON(cmd *cobra.Command, result *domain.QueryResult) error {
	out := queryOutput{
		Answer:           result.Answer,
		LogID:            result.LogID,
		Model:            result.Model,
		PromptTokens:     result.Usage.PromptTokens,
		CompletionTokens: result.Usage.CompletionTokens,
		TotalTokens:      result.Usage.TotalTokens,
		LatencyMS:        result.Latency.Milliseconds(),
		Sources:          make([]querySource, len(result.Chunks)),
	}
	for i, c := range result.Chunks {
		out.Sources[i] = querySource{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Distance:   c.Distance,
			Content:    c.Content,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryText(cmd *cobra.Command, result *domain.QueryResult) {
	cmd.Println(result.Answer)
	cmd.Println()

	if len(result.Chunks) > 0 {
		cmd.Println("Sources:")
		for i, c := range result.Chunks {
			cmd.Printf("  [%d] %.4f  %s\n", i+1, c.Distance, truncate(c.Content, 80))
		}
		cmd.Println()
	}

	cmd.Printf("Log %s · %s · %d tokens · %s\n",
		result.LogID, result.Model, result.Usage.TotalTokens, result.Latency.Round(time.Millisecond))
}

// truncate flattens whitespace and shortens s to at most n runes.
func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
