package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/datajar/datajar/internal/config"
	"github.com/datajar/datajar/internal/gitops"
	"github.com/datajar/datajar/internal/log"
)

var (
	pushBranch  string
	pushMessage string
	pushForce   bool
	pushDir     string
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Commit and push the data repository",
	Long: `Push stages all changes in the data repository, commits them, and
pushes the branch to origin. A clean working tree is not an error; the
push still runs so local commits reach the remote.`,
	RunE: runPush,
}

func init() {
	pushCmd.Flags().StringVar(&pushBranch, "branch", "main", "branch to push")
	pushCmd.Flags().StringVarP(&pushMessage, "message", "m", "", "commit message (prompted when omitted)")
	pushCmd.Flags().BoolVar(&pushForce, "force", false, "force push")
	pushCmd.Flags().StringVar(&pushDir, "dir", ".", "data repository directory")
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, _ []string) error {
	message := pushMessage
	if message == "" {
		var err error
		if message, err = promptCommitMessage(); err != nil {
			return err
		}
	}

	g := gitops.New(pushDir, newCommandLogger())
	return g.Push(cmd.Context(), pushBranch, message, pushForce)
}

// promptCommitMessage reads a commit message from stdin, falling back to
// a default when the user enters nothing.
func promptCommitMessage() (string, error) {
	fmt.Print("Commit message [Update data]: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "Update data", nil
	}
	if line = strings.TrimSpace(line); line != "" {
		return line, nil
	}
	return "Update data", nil
}

// newCommandLogger builds a logger for the non-TUI commands from the
// environment, falling back to defaults when config loading fails (the
// git helpers need no provider credentials).
func newCommandLogger() log.Logger {
	cfg, err := config.Load()
	if err != nil {
		return log.New(log.Config{})
	}
	return log.New(log.Config{Level: cfg.SlogLevel(), JSON: cfg.LogJSON})
}
