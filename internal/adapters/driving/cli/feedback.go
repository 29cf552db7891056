package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	feedbackRating  int
	feedbackComment string
	logsLimit       int
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <log-id>",
	Short: "Rate an answer",
	Long: `Record a rating of -1 (bad), 0 (neutral) or 1 (good) and an optional
comment on a logged answer. Submitting again overwrites the previous rating.`,
	Args: cobra.ExactArgs(1),
	RunE: runFeedback,
}

var logsCmd = &cobra.Command{
	Use:   "logs <collection>",
	Short: "List logged questions and answers, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runLogs,
}

func init() {
	feedbackCmd.Flags().IntVarP(&feedbackRating, "rating", "r", 0, "rating: -1, 0 or 1")
	feedbackCmd.Flags().StringVarP(&feedbackComment, "comment", "c", "", "optional comment")
	_ = feedbackCmd.MarkFlagRequired("rating")

	logsCmd.Flags().IntVarP(&logsLimit, "limit", "n", 20, "maximum number of logs")

	rootCmd.AddCommand(feedbackCmd, logsCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	svc, err := feedback()
	if err != nil {
		return err
	}

	if err := svc.SubmitFeedback(cmd.Context(), args[0], feedbackRating, feedbackComment); err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}

	cmd.Printf("Recorded rating %+d on %s\n", feedbackRating, args[0])
	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	cols, err := collections()
	if err != nil {
		return err
	}
	svc, err := feedback()
	if err != nil {
		return err
	}

	c, err := cols.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	logs, err := svc.ListLogs(cmd.Context(), c.ID, logsLimit)
	if err != nil {
		return fmt.Errorf("list logs: %w", err)
	}

	if len(logs) == 0 {
		cmd.Printf("No logged queries for %s.\n", c.Name)
		return nil
	}

	for i := range logs {
		l := &logs[i]
		rating := " "
		if l.FeedbackRating != nil {
			rating = fmt.Sprintf("%+d", *l.FeedbackRating)
		}
		cmd.Printf("  %s  %s  %2s  %s\n", l.ID, l.CreatedAt.Format("2006-01-02 15:04"), rating, truncate(l.Query, 60))
		cmd.Printf("      %s\n", truncate(l.Answer, 76))
	}
	return nil
}
