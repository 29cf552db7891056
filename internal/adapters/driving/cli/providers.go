package cli

import (
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List configured AI providers",
	Long: `List the AI providers configured through the environment or the
[providers.<name>] tables of the config file. A collection can only use a
configured provider.`,
	Args: cobra.NoArgs,
	RunE: runProviders,
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func runProviders(cmd *cobra.Command, _ []string) error {
	svc, err := collections()
	if err != nil {
		return err
	}

	names := svc.Providers()
	if len(names) == 0 {
		cmd.Println("No providers configured. Set OPENAI_API_KEY or add a [providers.<name>] table.")
		return nil
	}
	for _, name := range names {
		cmd.Printf("  %s\n", name)
	}
	return nil
}
