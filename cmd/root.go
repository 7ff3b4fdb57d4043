// Package cmd provides the CLI commands for mystuff.
//
// Commands:
//   - chat (default): interactive chat TUI over the user's documents
//   - login / register / logout / whoami: session management
//   - conversations: list, rename and delete past conversations
//   - files: list, inspect, upload and delete documents
//   - ping: backend connectivity check
//
// The chat command installs signal handling and shuts down via context
// cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mystuffai/mystuff/internal/config"
	"github.com/mystuffai/mystuff/internal/log"
)

// NewRootCmd builds the command tree (factory pattern; commands carry
// no package-level state so tests can build isolated trees).
func NewRootCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	root := &cobra.Command{
		Use:   "mystuff",
		Short: "Chat with your documents from the terminal",
		Long: `mystuff is a terminal client for the My Stuff document-chat service.
Upload documents, then ask questions about them; answers cite the
documents they came from.

Running mystuff with no arguments starts the interactive chat.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), cfg, logger)
		},
	}

	root.AddCommand(
		NewChatCmd(cfg, logger),
		NewLoginCmd(cfg, logger),
		NewRegisterCmd(cfg, logger),
		NewLogoutCmd(cfg, logger),
		NewWhoamiCmd(cfg, logger),
		NewConversationsCmd(cfg, logger),
		NewFilesCmd(cfg, logger),
		NewPingCmd(cfg, logger),
		NewVersionCmd(cfg),
	)

	return root
}

// Execute is the main entry point for the CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	logger := log.NewWithWriter(os.Stderr, log.Config{Level: level})

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	return NewRootCmd(cfg, logger).Execute()
}
