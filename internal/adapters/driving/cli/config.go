package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and edit the config file",
	Long: `View and edit ~/.kbase/config.toml using dot-notation keys such as
vector.dimension, retrieval.top_k or providers.openai.api_key.

Environment variables override file values at startup.`,
	Annotations: map[string]string{annotationBootstrap: bootstrapConfig},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show every configured key",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a key",
	Long: `Set a key. Integers, decimals and true/false are stored as such;
anything else is stored as a string.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a key",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configUnsetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	cmd.Printf("# %s\n", configStore.Path())
	keys := configStore.Keys()
	if len(keys) == 0 {
		cmd.Println("(empty)")
		return nil
	}
	for _, key := range keys {
		value, _ := configStore.Get(key)
		text := fmt.Sprint(value)
		if isSecretKey(key) {
			text = maskAPIKey(text)
		}
		cmd.Printf("%s = %s\n", key, text)
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := strings.TrimSpace(args[0])
	if key == "" {
		return errors.New("key is required")
	}
	if err := configStore.Set(key, parseConfigValue(args[1])); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	if err := configStore.Unset(args[0]); err != nil {
		return fmt.Errorf("unset %s: %w", args[0], err)
	}

	cmd.Printf("Unset %s\n", args[0])
	return nil
}

// parseConfigValue converts a command line value to the narrowest TOML type.
func parseConfigValue(raw string) any {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	return raw
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key")
}

// maskAPIKey masks an API key for display, showing only first and last 4 chars.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
