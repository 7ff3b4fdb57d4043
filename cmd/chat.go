package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"

	"github.com/mystuffai/mystuff/internal/app"
	"github.com/mystuffai/mystuff/internal/auth"
	"github.com/mystuffai/mystuff/internal/config"
	"github.com/mystuffai/mystuff/internal/log"
	"github.com/mystuffai/mystuff/internal/tui"
)

// NewChatCmd creates the chat command (also the root default).
func NewChatCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start the interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), cfg, logger)
		},
	}
}

// runChat initializes the application and starts the Bubble Tea TUI.
func runChat(parent context.Context, cfg *config.Config, logger log.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if a.Auth.State() != auth.StateAuthenticated {
		return fmt.Errorf("not logged in: run 'mystuff login' first")
	}

	// Reopen the conversation from the previous run, if any
	uiState, err := a.UIState.Load()
	if err != nil {
		logger.Warn("ui state unreadable, starting fresh", "error", err)
	}

	model, err := tui.New(ctx, tui.Config{
		Session:             a.Chat,
		Conversations:       a.Conversations,
		UIState:             a.UIState,
		Logger:              logger,
		InitialConversation: uiState.LastConversationID,
		SidebarWidth:        uiState.SidebarWidth,
	})
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	program := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}
