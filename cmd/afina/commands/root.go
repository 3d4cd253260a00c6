// Package commands implements the afina CLI with cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with every subcommand registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "afina",
		Short: "Afina - Telegram assistant that remembers the chat",
		Long: `Afina is a single-owner Telegram assistant. It keeps a rolling memory of
each chat as summaries, answers when addressed and retells recent history.

Examples:
  afina serve --config ./config.yaml
  afina seed --chat-id -1002197468235 --file ./result.json --author Фёдор --author Соня
  afina rechat --from -4012345678 --to -1004012345678`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newSeedCmd(),
		newRechatCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file (default ./config.yaml)")
	return rootCmd
}
