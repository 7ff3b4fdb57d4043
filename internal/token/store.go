// Package token provides durable storage for the API credential pair.
//
// The access and refresh tokens are persisted to <dataDir>/tokens.json so a
// new process resumes the session without re-login. Writes are atomic (temp
// file + rename) and guarded by file locking via [github.com/gofrs/flock],
// since several mystuff invocations may run at once.
//
// The store performs no validation; it is pure storage. Token lifecycle
// decisions belong to the auth manager and the transport retry path, which
// are the only writers.
package token

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

const (
	tokensFile = "tokens.json"
	lockFile   = "tokens.lock"
)

// tokenFile is the on-disk representation of the credential pair.
type tokenFile struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store holds the access/refresh token pair, backed by a JSON file.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	path    string
	lock    *flock.Flock
	access  string
	refresh string
}

// NewStore creates a token store rooted at dataDir and loads any persisted
// tokens. A missing tokens file is not an error; the store starts empty.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("token: data directory is required")
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("token: creating data directory: %w", err)
	}

	s := &Store{
		path: filepath.Join(dataDir, tokensFile),
		lock: flock.New(filepath.Join(dataDir, lockFile)),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Access returns the current access token, empty if not logged in.
func (s *Store) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// Refresh returns the current refresh token, empty if not logged in.
func (s *Store) Refresh() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Set stores a new token pair and persists it.
func (s *Store) Set(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = access
	s.refresh = refresh
	return s.persist(tokenFile{AccessToken: access, RefreshToken: refresh})
}

// Clear discards both tokens and removes the tokens file.
// Idempotent: clearing an empty store is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = ""
	s.refresh = ""

	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("token: acquiring file lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("token: removing tokens file: %w", err)
	}
	return nil
}

// load reads persisted tokens from disk, if present.
func (s *Store) load() error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("token: acquiring file lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no persisted session
		}
		return fmt.Errorf("token: reading tokens file: %w", err)
	}

	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return fmt.Errorf("token: parsing tokens file: %w", err)
	}

	s.access = tf.AccessToken
	s.refresh = tf.RefreshToken
	return nil
}

// persist writes the token pair atomically (temp file + rename, 0600).
// Caller must hold s.mu.
func (s *Store) persist(tf tokenFile) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("token: acquiring file lock: %w", err)
	}
	defer func() { _ = s.lock.Unlock() }()

	data, err := json.Marshal(tf)
	if err != nil {
		return fmt.Errorf("token: encoding tokens: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("token: writing tokens file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("token: replacing tokens file: %w", err)
	}
	return nil
}
