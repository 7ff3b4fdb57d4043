package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mystuffai/mystuff/internal/config"
)

// Version information (injected at build time via ldflags)
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// NewVersionCmd creates the version command (factory pattern)
func NewVersionCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cfg)
		},
	}
}

func runVersion(cfg *config.Config) error {
	fmt.Printf("mystuff %s\n", AppVersion)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Println()

	fmt.Println("Configuration:")
	fmt.Printf("  Backend: %s\n", cfg.BaseURL)
	fmt.Printf("  Request timeout: %ds\n", cfg.TimeoutSeconds)
	if cfg.HistoryWindow > 0 {
		fmt.Printf("  History window: %d messages\n", cfg.HistoryWindow)
	} else {
		fmt.Println("  History window: full transcript")
	}
	fmt.Printf("  Data directory: %s\n", cfg.DataDir)

	return nil
}
