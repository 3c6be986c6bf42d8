// Package cmd wires the DataJar CLI: the interactive chat TUI, a
// one-shot ask command, and data repository push/pull helpers.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "datajar",
	Short: "DataJar - chat with your marketing data",
	Long: `DataJar is a chat front-end over tabular marketing data.

Load CSV files or fetch hosted tables, then ask questions in plain
language. Analytical questions run against the active dataset; everything
else gets a conversational reply grounded in the dataset profile.

Running datajar without arguments starts the interactive chat.`,
	RunE: runChat,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
