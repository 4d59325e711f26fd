package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scopeworks/discovery/cmd/discovery/commands"
	"github.com/scopeworks/discovery/logger"
)

var rootCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Discovery knowledge store",
	Long: `Discovery - project knowledge aggregate store.

Tracks projects with their discovery artifacts: gaps, conflicts, ambiguities,
open questions, documents, deliverables, and an append-only activity timeline.

Available commands:
  serve  - Start the HTTP API server
  db     - Manage database operations
  keys   - Manage API keys

Examples:
  discovery serve                  # Start the API server
  discovery db migrate             # Apply pending schema migrations
  discovery db stats               # Show store statistics
  discovery keys create agent-1    # Register a new API key`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to TOML config file")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.KeysCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
