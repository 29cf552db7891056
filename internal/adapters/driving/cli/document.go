package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents <collection>",
	Short: "List a collection's documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocuments,
}

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage individual documents",
}

var documentDeleteCmd = &cobra.Command{
	Use:     "delete <document-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a document and its chunks",
	Long: `Delete a document and its chunk rows. Its vectors stay in the index
and are skipped at query time until 'kbase collection rebuild' drops them.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentDelete,
}

func init() {
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentsCmd, documentCmd)
}

func runDocuments(cmd *cobra.Command, args []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	c, err := svc.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	docs, err := svc.ListDocuments(cmd.Context(), c.ID)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Printf("No documents in %s.\n", c.Name)
		return nil
	}

	for i := range docs {
		d := &docs[i]
		cmd.Printf("  %s  %-10s %s\n", d.ID, d.Status, d.Filename)
		if d.Reason != "" {
			cmd.Printf("      %s\n", d.Reason)
		}
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	if err := svc.DeleteDocument(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	cmd.Printf("Deleted document %s\n", args[0])
	return nil
}
