package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datajar/datajar/internal/app"
	"github.com/datajar/datajar/internal/config"
	"github.com/datajar/datajar/internal/conversation"
)

var (
	askLoadFiles []string
	askSample    bool
	askDebug     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and print the reply",
	Long: `Ask runs one conversation turn without the TUI. Combine with --load
or --sample to ask analytical questions about a dataset:

  datajar ask --sample "which campaign has the best ROAS?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringArrayVar(&askLoadFiles, "load", nil, "CSV file to load before asking (repeatable)")
	askCmd.Flags().BoolVar(&askSample, "sample", false, "load the bundled Facebook page sample before asking")
	askCmd.Flags().BoolVar(&askDebug, "debug", false, "print intent and instruction after the reply")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("close error", "error", closeErr)
		}
	}()

	if err := preloadDatasets(a, askLoadFiles, askSample); err != nil {
		return err
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty")
	}

	// Fragments print as they arrive; the trailing newline lands after
	// the last one.
	result := a.Orchestrator.Respond(ctx, a.Session, question,
		func(_ context.Context, fragment string) error {
			fmt.Print(fragment)
			return nil
		})
	fmt.Println()

	if result.ChartPath != "" {
		fmt.Printf("Chart saved to %s\n", result.ChartPath)
	}
	if askDebug {
		fmt.Fprintf(os.Stderr, "intent=%s state=%s\n", result.Debug.Intent, result.State)
		if result.Debug.Instruction != "" {
			fmt.Fprintf(os.Stderr, "instruction=%s\n", result.Debug.Instruction)
		}
	}

	if result.State == conversation.StateAnsweredWithError {
		return fmt.Errorf("turn completed with errors")
	}
	return nil
}
