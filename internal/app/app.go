// Package app wires the application together: configuration, logging,
// the durable token store, the API client and the domain stores, plus
// the logout cascade that ties them to the auth manager.
package app

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/mystuffai/mystuff/internal/auth"
	"github.com/mystuffai/mystuff/internal/chat"
	"github.com/mystuffai/mystuff/internal/client"
	"github.com/mystuffai/mystuff/internal/config"
	"github.com/mystuffai/mystuff/internal/conversation"
	"github.com/mystuffai/mystuff/internal/files"
	"github.com/mystuffai/mystuff/internal/log"
	"github.com/mystuffai/mystuff/internal/token"
	"github.com/mystuffai/mystuff/internal/ui/state"
)

// App is the application container. Fields are wired once in New and
// read-only afterwards.
type App struct {
	Config *config.Config
	Logger log.Logger

	Tokens        *token.Store
	Client        *client.Client
	Auth          *auth.Manager
	Conversations *conversation.Store
	Chat          *chat.Session
	Files         *files.Store
	UIState       *state.Store
}

// New builds the full dependency graph from cfg. The returned App owns
// no background goroutines; Close is currently a no-op kept for
// symmetry with the command layer's defer.
func New(cfg *config.Config, logger log.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tokens, err := token.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("app: opening token store: %w", err)
	}

	uiState, err := state.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("app: opening ui state store: %w", err)
	}

	// The client's forced-logout hook needs the auth manager, which in
	// turn needs the client. Bridge the cycle with a late-bound func.
	var manager *auth.Manager

	// rate_limit 0 means unthrottled
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 2*cfg.RateLimit)
	}

	apiClient, err := client.New(client.Config{
		BaseURL:     cfg.BaseURL,
		Tokens:      tokens,
		Logger:      logger,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		RateLimiter: limiter,
		OnAuthExpired: func() {
			if manager != nil {
				manager.HandleAuthExpired()
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("app: building api client: %w", err)
	}

	manager, err = auth.NewManager(apiClient, tokens, logger)
	if err != nil {
		return nil, fmt.Errorf("app: building auth manager: %w", err)
	}

	conversations, err := conversation.NewStore(apiClient, logger)
	if err != nil {
		return nil, fmt.Errorf("app: building conversation store: %w", err)
	}

	chatSession, err := chat.NewSession(chat.Config{
		API:           apiClient,
		Logger:        logger,
		HistoryWindow: cfg.HistoryWindow,
		DataDir:       cfg.DataDir,
	})
	if err != nil {
		return nil, fmt.Errorf("app: building chat session: %w", err)
	}

	fileStore := files.NewStore(apiClient, logger)

	// Logout must leave nothing of the previous user behind.
	manager.RegisterResetter(conversations)
	manager.RegisterResetter(chatSession)
	manager.RegisterResetter(fileStore)
	manager.RegisterResetter(uiState)

	return &App{
		Config:        cfg,
		Logger:        logger,
		Tokens:        tokens,
		Client:        apiClient,
		Auth:          manager,
		Conversations: conversations,
		Chat:          chatSession,
		Files:         fileStore,
		UIState:       uiState,
	}, nil
}

// Close releases application resources.
func (a *App) Close() error {
	a.Logger.Debug("application shut down")
	return nil
}
