package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/datajar/datajar/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and configuration",
	RunE:  runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(_ *cobra.Command, _ []string) error {
	fmt.Printf("DataJar %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)

	cfg, err := config.Load()
	if err != nil {
		fmt.Println()
		fmt.Printf("Configuration: invalid (%v)\n", err)
		return nil
	}

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Provider: %s\n", cfg.Provider)
	fmt.Printf("  Model: %s\n", cfg.ModelName)
	fmt.Printf("  Classifier: %s\n", cfg.ClassifierModel)
	fmt.Printf("  Temperature: %.2f\n", cfg.Temperature)
	fmt.Printf("  Chart directory: %s\n", cfg.ChartDir)

	// Show key presence without revealing content
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && len(key) > 8 {
		fmt.Printf("  OPENAI_API_KEY: %s...%s (configured)\n", key[:4], key[len(key)-4:])
	} else if key != "" {
		fmt.Println("  OPENAI_API_KEY: configured")
	} else {
		fmt.Println("  OPENAI_API_KEY: not set")
	}

	return nil
}
