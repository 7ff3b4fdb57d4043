// Package state persists small pieces of UI state between runs: the last
// open conversation and layout preferences. Loss of this file is never
// fatal; the TUI falls back to defaults.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const stateFileName = "state.json"

// DefaultSidebarWidth is used when no persisted preference exists.
const DefaultSidebarWidth = 32

// State is what survives between runs.
type State struct {
	LastConversationID string `json:"last_conversation_id,omitempty"`
	SidebarWidth       int    `json:"sidebar_width,omitempty"`
}

// Store reads and writes the state file under a data directory.
type Store struct {
	path string
}

// NewStore builds a store over dataDir, creating the directory if needed.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("state: creating data directory: %w", err)
	}
	return &Store{path: filepath.Join(dataDir, stateFileName)}, nil
}

// Load returns the persisted state. A missing file returns defaults; a
// malformed file is an error so corruption does not silently pass as
// defaults.
func (s *Store) Load() (State, error) {
	st := State{SidebarWidth: DefaultSidebarWidth}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return st, fmt.Errorf("state: reading %s: %w", s.path, err)
	}

	if err := json.Unmarshal(data, &st); err != nil {
		return State{SidebarWidth: DefaultSidebarWidth}, fmt.Errorf("state: parsing %s: %w", s.path, err)
	}
	if st.SidebarWidth <= 0 {
		st.SidebarWidth = DefaultSidebarWidth
	}
	return st, nil
}

// Save writes the state atomically.
func (s *Store) Save(st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("state: encoding state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("state: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("state: replacing %s: %w", s.path, err)
	}
	return nil
}

// Clear removes the state file. Idempotent; part of the logout cascade
// so the next user does not inherit a conversation pointer.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("state: removing %s: %w", s.path, err)
	}
	return nil
}

// Reset implements the logout-cascade hook. Removal failures are not
// actionable at logout time and are swallowed.
func (s *Store) Reset() {
	_ = s.Clear()
}
