// Package conversation maintains the client-side view of the user's
// conversation list.
//
// The server owns the list and its ordering; this store is a read cache
// plus a nullable "currently selected" pointer that exists only on the
// client. Mutations are optimistic where the original UI was (create
// prepends and selects before any refetch) and conservative elsewhere: a
// failed mutation leaves the prior in-memory state untouched except for a
// recorded error. Callers that need consistency after a failure must
// resync explicitly with Fetch.
package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/mystuffai/mystuff/internal/client"
	"github.com/mystuffai/mystuff/internal/log"
)

// API is the backend surface the store needs. *client.Client satisfies it.
type API interface {
	Conversations(ctx context.Context) (*client.ConversationListResponse, error)
	CreateConversation(ctx context.Context, title *string) (*client.Conversation, error)
	UpdateConversation(ctx context.Context, id, title string) (*client.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
}

// Store holds the conversation list and selection. Safe for concurrent use.
type Store struct {
	mu            sync.Mutex
	api           API
	logger        log.Logger
	conversations []client.Conversation
	current       string // empty = no selection
	lastErr       error
}

// NewStore creates an empty conversation store.
func NewStore(api API, logger log.Logger) (*Store, error) {
	if api == nil {
		return nil, fmt.Errorf("conversation: api client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("conversation: logger is required")
	}
	return &Store{api: api, logger: logger}, nil
}

// Fetch replaces the in-memory list with server results. Server order is
// authoritative; no client-side sorting.
func (s *Store) Fetch(ctx context.Context) error {
	resp, err := s.api.Conversations(ctx)
	if err != nil {
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	s.conversations = resp.Conversations
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Create makes a new conversation, prepends it and selects it.
// title may be nil for an untitled conversation.
func (s *Store) Create(ctx context.Context, title *string) (*client.Conversation, error) {
	conv, err := s.api.CreateConversation(ctx, title)
	if err != nil {
		s.recordErr(err)
		return nil, err
	}

	s.mu.Lock()
	s.conversations = append([]client.Conversation{*conv}, s.conversations...)
	s.current = conv.ID
	s.lastErr = nil
	s.mu.Unlock()

	s.logger.Debug("conversation created", "id", conv.ID)
	return conv, nil
}

// Rename updates the matching entry's title in place, preserving order.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	updated, err := s.api.UpdateConversation(ctx, id, title)
	if err != nil {
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			s.conversations[i].Title = updated.Title
			break
		}
	}
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Delete removes the conversation. If it was selected, selection becomes
// empty. On failure the list and selection are unchanged.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteConversation(ctx, id); err != nil {
		s.recordErr(err)
		return err
	}

	s.mu.Lock()
	kept := s.conversations[:0]
	for _, conv := range s.conversations {
		if conv.ID != id {
			kept = append(kept, conv)
		}
	}
	s.conversations = kept
	if s.current == id {
		s.current = ""
	}
	s.lastErr = nil
	s.mu.Unlock()
	return nil
}

// Select sets the current conversation pointer. No server interaction.
func (s *Store) Select(id string) {
	s.mu.Lock()
	s.current = id
	s.mu.Unlock()
}

// ClearSelection empties the current conversation pointer.
func (s *Store) ClearSelection() {
	s.Select("")
}

// Selected returns the current conversation id, ok=false when none.
func (s *Store) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != ""
}

// Get returns the listed conversation with the given id.
func (s *Store) Get(id string) (client.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.conversations {
		if conv.ID == id {
			return conv, true
		}
	}
	return client.Conversation{}, false
}

// List returns a copy of the conversation list in server order.
func (s *Store) List() []client.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]client.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Err returns the error recorded by the last failed operation, nil after
// a successful one.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Reset clears the list, selection and error. Part of the logout cascade.
func (s *Store) Reset() {
	s.mu.Lock()
	s.conversations = nil
	s.current = ""
	s.lastErr = nil
	s.mu.Unlock()
}

func (s *Store) recordErr(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}
