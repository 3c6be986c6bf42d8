package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/datajar/datajar/internal/app"
	"github.com/datajar/datajar/internal/config"
	"github.com/datajar/datajar/internal/dataset"
	"github.com/datajar/datajar/internal/tui"
)

var (
	chatLoadFiles []string
	chatSample    bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive chat TUI",
	RunE:  runChat,
}

func init() {
	for _, c := range []*cobra.Command{chatCmd, rootCmd} {
		c.Flags().StringArrayVar(&chatLoadFiles, "load", nil, "CSV file to load on startup (repeatable)")
		c.Flags().BoolVar(&chatSample, "sample", false, "load the bundled Facebook page sample on startup")
	}
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.Logger.Warn("close error", "error", closeErr)
		}
	}()

	if err := preloadDatasets(a, chatLoadFiles, chatSample); err != nil {
		return err
	}

	model, err := tui.New(ctx, a)
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}

// preloadDatasets loads CSV files and the optional sample before the
// first turn. The first dataset added becomes active.
func preloadDatasets(a *app.App, files []string, sample bool) error {
	for _, f := range files {
		if _, err := a.LoadCSV(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}

	if sample {
		tbl, err := dataset.LoadSample()
		if err != nil {
			return fmt.Errorf("loading sample: %w", err)
		}
		if err := a.Session.Datasets.Add(dataset.SampleName, tbl); err != nil {
			return fmt.Errorf("loading sample: %w", err)
		}
	}

	return nil
}
