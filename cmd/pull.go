package cmd

import (
	"github.com/spf13/cobra"

	"github.com/datajar/datajar/internal/gitops"
)

var (
	pullBranch string
	pullDir    string
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull the data repository from origin",
	RunE:  runPull,
}

func init() {
	pullCmd.Flags().StringVar(&pullBranch, "branch", "main", "branch to pull")
	pullCmd.Flags().StringVar(&pullDir, "dir", ".", "data repository directory")
	rootCmd.AddCommand(pullCmd)
}

func runPull(cmd *cobra.Command, _ []string) error {
	g := gitops.New(pullDir, newCommandLogger())
	return g.Pull(cmd.Context(), pullBranch)
}
