// Package auth orchestrates the client session lifecycle.
//
// The manager owns a small state machine:
//
//	anonymous → authenticating → authenticated   (login/register success)
//	authenticating → anonymous                   (failure)
//	authenticated → anonymous                    (logout, failed refresh)
//
// Logout cascade-resets every registered store (conversations, chat
// transcript, files cache) so no data from the previous user survives into
// a new session. Cross-store coordination is explicit registration, not
// implicit global side effects.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/mystuffai/mystuff/internal/client"
	"github.com/mystuffai/mystuff/internal/log"
	"github.com/mystuffai/mystuff/internal/token"
)

// MinPasswordLength is the client-side precondition checked before the
// register call reaches the backend.
const MinPasswordLength = 8

// Sentinel errors, check with errors.Is().
var (
	// ErrValidation indicates a client-side precondition failure; the
	// request never reached the backend.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials indicates the backend rejected the email or
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotAuthenticated indicates the operation needs an active session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// State is the session state machine position.
type State int

// Session states.
const (
	StateAnonymous State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// API is the backend surface the manager needs. *client.Client satisfies it.
type API interface {
	Login(ctx context.Context, email, password string) (*client.TokenResponse, error)
	Register(ctx context.Context, email, password string) (*client.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*client.TokenResponse, error)
}

// Resetter is a store that must be cleared when the session ends.
type Resetter interface {
	Reset()
}

// Manager drives login, register, logout and refresh, and flips the
// session state. Safe for concurrent use.
type Manager struct {
	mu        sync.Mutex
	state     State
	email     string
	api       API
	tokens    *token.Store
	logger    log.Logger
	resetters []Resetter
}

// NewManager creates a session manager. If the token store already holds a
// persisted session (from a previous process), the manager starts
// authenticated.
func NewManager(api API, tokens *token.Store, logger log.Logger) (*Manager, error) {
	if api == nil {
		return nil, fmt.Errorf("auth: api client is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("auth: token store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("auth: logger is required")
	}

	m := &Manager{
		api:    api,
		tokens: tokens,
		logger: logger,
	}

	if access := tokens.Access(); access != "" {
		m.state = StateAuthenticated
		if id, err := ParseIdentity(access); err == nil {
			m.email = id.Email
		}
	}
	return m, nil
}

// RegisterResetter adds a store to the logout cascade.
func (m *Manager) RegisterResetter(r Resetter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetters = append(m.resetters, r)
}

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsAuthenticated reports whether a session is active.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == StateAuthenticated
}

// Email returns the logged-in user's email, empty when anonymous.
func (m *Manager) Email() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.email
}

// Login authenticates with the backend and stores the token pair.
// A backend 401 surfaces as ErrInvalidCredentials with the backend's
// detail preserved in the chain.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.setState(StateAuthenticating)

	resp, err := m.api.Login(ctx, email, password)
	if err != nil {
		m.setState(StateAnonymous)
		if client.IsAuthError(err) {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, client.ErrorDetail(err))
		}
		return err
	}

	return m.establishSession(email, resp)
}

// Register creates an account and starts its session. The password length
// precondition is checked locally before any network call.
func (m *Manager) Register(ctx context.Context, email, password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}

	m.setState(StateAuthenticating)

	resp, err := m.api.Register(ctx, email, password)
	if err != nil {
		m.setState(StateAnonymous)
		return err
	}

	return m.establishSession(email, resp)
}

// Logout ends the session: tokens cleared, state anonymous, every
// registered store reset. Safe to call when already anonymous.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.state = StateAnonymous
	m.email = ""
	resetters := make([]Resetter, len(m.resetters))
	copy(resetters, m.resetters)
	m.mu.Unlock()

	err := m.tokens.Clear()

	for _, r := range resetters {
		r.Reset()
	}

	if err != nil {
		return fmt.Errorf("auth: clearing tokens on logout: %w", err)
	}
	m.logger.Debug("session ended")
	return nil
}

// HandleAuthExpired is the forced-logout hook for the transport layer.
// The client has already cleared the tokens at that point; this resets
// the in-memory session and cascades to the stores.
func (m *Manager) HandleAuthExpired() {
	m.logger.Info("session expired, logging out")
	if err := m.Logout(); err != nil {
		m.logger.Warn("logout after session expiry", "error", err)
	}
}

// Refresh explicitly mints a new token pair from the stored refresh token.
// Any failure cascades to logout.
func (m *Manager) Refresh(ctx context.Context) error {
	refresh := m.tokens.Refresh()
	if refresh == "" {
		if err := m.Logout(); err != nil {
			m.logger.Warn("logout after missing refresh token", "error", err)
		}
		return ErrNotAuthenticated
	}

	resp, err := m.api.RefreshToken(ctx, refresh)
	if err != nil {
		if logoutErr := m.Logout(); logoutErr != nil {
			m.logger.Warn("logout after refresh failure", "error", logoutErr)
		}
		return fmt.Errorf("auth: refreshing session: %w", err)
	}

	if err := m.tokens.Set(resp.AccessToken, resp.RefreshToken); err != nil {
		if logoutErr := m.Logout(); logoutErr != nil {
			m.logger.Warn("logout after token persist failure", "error", logoutErr)
		}
		return fmt.Errorf("auth: persisting refreshed tokens: %w", err)
	}

	m.setState(StateAuthenticated)
	return nil
}

// establishSession persists tokens and transitions to authenticated.
func (m *Manager) establishSession(email string, resp *client.TokenResponse) error {
	if err := m.tokens.Set(resp.AccessToken, resp.RefreshToken); err != nil {
		m.setState(StateAnonymous)
		return fmt.Errorf("auth: persisting tokens: %w", err)
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.email = email
	m.mu.Unlock()

	m.logger.Debug("session established", "email", email)
	return nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	if s == StateAnonymous {
		m.email = ""
	}
	m.mu.Unlock()
}
