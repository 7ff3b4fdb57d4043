package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mystuffai/mystuff/internal/app"
	"github.com/mystuffai/mystuff/internal/auth"
	"github.com/mystuffai/mystuff/internal/config"
	"github.com/mystuffai/mystuff/internal/log"
)

// NewLoginCmd creates the login command.
func NewLoginCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "login [email]",
		Short: "Log in to the My Stuff backend",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			email, password, err := readCredentials(args)
			if err != nil {
				return err
			}

			if err := a.Auth.Login(cmd.Context(), email, password); err != nil {
				if errors.Is(err, auth.ErrInvalidCredentials) {
					return fmt.Errorf("login failed: %w", err)
				}
				return err
			}

			fmt.Printf("Logged in as %s\n", email)
			return nil
		},
	}
}

// NewRegisterCmd creates the register command.
func NewRegisterCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "register [email]",
		Short: "Create an account and log in",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			email, password, err := readCredentials(args)
			if err != nil {
				return err
			}

			if err := a.Auth.Register(cmd.Context(), email, password); err != nil {
				return fmt.Errorf("registration failed: %w", err)
			}

			fmt.Printf("Account created, logged in as %s\n", email)
			return nil
		},
	}
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session and clear local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Auth.Logout(); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

// NewWhoamiCmd creates the whoami command.
func NewWhoamiCmd(cfg *config.Config, logger log.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.Auth.IsAuthenticated() {
				fmt.Println("Not logged in.")
				return nil
			}

			fmt.Printf("Logged in as %s\n", a.Auth.Email())

			if id, err := auth.ParseIdentity(a.Tokens.Access()); err == nil {
				if id.Expired() {
					fmt.Println("Access token expired; it will be refreshed on the next request.")
				} else {
					fmt.Printf("Access token valid until %s\n", id.ExpiresAt.Local().Format(time.RFC1123))
				}
			}
			return nil
		},
	}
}

// readCredentials takes the email from args or a prompt, and the
// password from the terminal without echo.
func readCredentials(args []string) (email, password string, err error) {
	reader := bufio.NewReader(os.Stdin)

	if len(args) > 0 {
		email = strings.TrimSpace(args[0])
	} else {
		fmt.Print("Email: ")
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			return "", "", fmt.Errorf("reading email: %w", readErr)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return "", "", errors.New("email is required")
	}

	fmt.Print("Password: ")
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, readErr := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if readErr != nil {
			return "", "", fmt.Errorf("reading password: %w", readErr)
		}
		password = string(raw)
	} else {
		// Piped input (tests, scripts)
		line, readErr := reader.ReadString('\n')
		if readErr != nil {
			return "", "", fmt.Errorf("reading password: %w", readErr)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return "", "", errors.New("password is required")
	}

	return email, password, nil
}
