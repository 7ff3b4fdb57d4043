package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mystuffai/mystuff/internal/app"
	"github.com/mystuffai/mystuff/internal/config"
	"github.com/mystuffai/mystuff/internal/log"
)

// NewConversationsCmd creates the conversations command group.
func NewConversationsCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage saved conversations",
	}

	cmd.AddCommand(
		newConversationsListCmd(cfg, logger),
		newConversationsRenameCmd(cfg, logger),
		newConversationsDeleteCmd(cfg, logger),
	)
	return cmd
}

func newConversationsListCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List conversations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(a); err != nil {
				return err
			}
			if err := a.Conversations.Fetch(cmd.Context()); err != nil {
				return fmt.Errorf("listing conversations: %w", err)
			}

			list := a.Conversations.List()
			if len(list) == 0 {
				fmt.Println("No conversations yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tUPDATED")
			for _, conv := range list {
				title := conv.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", conv.ID, title, conv.UpdatedAt.Local().Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newConversationsRenameCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(a); err != nil {
				return err
			}
			if err := a.Conversations.Rename(cmd.Context(), args[0], args[1]); err != nil {
				return fmt.Errorf("renaming conversation: %w", err)
			}
			fmt.Println("Renamed.")
			return nil
		},
	}
}

func newConversationsDeleteCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireLogin(a); err != nil {
				return err
			}
			if err := a.Conversations.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting conversation: %w", err)
			}
			fmt.Println("Deleted.")
			return nil
		},
	}
}

// requireLogin guards commands that need an active session.
func requireLogin(a *app.App) error {
	if !a.Auth.IsAuthenticated() {
		return fmt.Errorf("not logged in: run 'mystuff login' first")
	}
	return nil
}
