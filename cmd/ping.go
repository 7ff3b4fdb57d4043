package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mystuffai/mystuff/internal/app"
	"github.com/mystuffai/mystuff/internal/config"
	"github.com/mystuffai/mystuff/internal/log"
)

// NewPingCmd creates the ping command. Hits the backend health endpoint;
// works without a login, so it doubles as a connectivity check before
// registering.
func NewPingCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backend is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			health, err := a.Client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("backend at %s is not reachable: %w", cfg.BaseURL, err)
			}

			if health.Version != "" {
				fmt.Printf("Backend at %s is %s (version %s).\n", cfg.BaseURL, health.Status, health.Version)
			} else {
				fmt.Printf("Backend at %s is %s.\n", cfg.BaseURL, health.Status)
			}
			return nil
		},
	}
}
