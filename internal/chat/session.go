// Package chat holds the active conversation transcript and drives the
// query/response exchange.
//
// The session is a state container in front of the backend's query
// endpoint: it appends the user's message optimistically, sends the prior
// transcript as history, and appends the assistant's reply. When the
// backend attaches the exchange to a new conversation, the session adopts
// that conversation id and notifies a registered listener so the
// conversation list can refresh.
//
// When no conversation is attached (legacy single-session mode), the
// transcript persists to <dataDir>/chat_history.json and is restored on
// startup.
package chat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mystuffai/mystuff/internal/client"
	"github.com/mystuffai/mystuff/internal/log"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one transcript entry.
//
// Sources holds the normalized sources payload: the backend has stored
// both structured JSON and JSON-encoded strings over time, and both are
// resolved into one in-memory value at ingestion (see normalizeSources).
// Downstream code only formats it, never re-inspects the encoding.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Sources   any       `json:"sources,omitempty"`
	Intent    string    `json:"intent,omitempty"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	IsError   bool      `json:"is_error,omitempty"`
}

// API is the backend surface the session needs. *client.Client satisfies it.
type API interface {
	ConversationMessages(ctx context.Context, id string) ([]client.MessageRecord, error)
	Query(ctx context.Context, req client.QueryRequest) (*client.QueryResponse, error)
}

// Config holds session construction parameters.
type Config struct {
	// API is the backend client. Required.
	API API

	// Logger for normalization warnings and persistence diagnostics. Required.
	Logger log.Logger

	// HistoryWindow caps the prior messages sent with each query. Zero or
	// negative sends the entire transcript; the backend expects full chat
	// history unless the user caps it.
	HistoryWindow int

	// DataDir enables legacy transcript persistence when non-empty.
	DataDir string
}

// Session is the active transcript. Safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	api      API
	logger   log.Logger
	window   int
	messages []Message
	current  string // attached conversation id, empty = unattached
	loading  bool

	// loadSeq guards against the superseded-load race: when the user opens
	// another conversation before the previous load finishes, only the most
	// recently issued load may apply its result.
	loadSeq uint64

	// onConversationAssigned fires when the backend attaches a query to a
	// new conversation.
	onConversationAssigned func(id string)

	persist *transcriptFile // nil = persistence disabled
}

// NewSession creates a chat session. With a DataDir configured, a
// persisted legacy transcript is restored when present.
func NewSession(cfg Config) (*Session, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("chat: api client is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("chat: logger is required")
	}

	s := &Session{
		api:    cfg.API,
		logger: cfg.Logger,
		window: cfg.HistoryWindow,
	}

	if cfg.DataDir != "" {
		s.persist = newTranscriptFile(cfg.DataDir)
		if restored, err := s.persist.load(); err != nil {
			cfg.Logger.Warn("restoring legacy transcript failed", "error", err)
		} else if len(restored) > 0 {
			s.messages = restored
		}
	}

	return s, nil
}

// SetConversationListener registers the callback fired when a query gets
// attached to a new conversation. At most one listener; the conversation
// list owns the refresh.
func (s *Session) SetConversationListener(fn func(id string)) {
	s.mu.Lock()
	s.onConversationAssigned = fn
	s.mu.Unlock()
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// CurrentID returns the attached conversation id, ok=false when the
// session is unattached.
func (s *Session) CurrentID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != ""
}

// Loading reports whether a load or query is in flight.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LoadConversation replaces the transcript with the stored messages of the
// given conversation and makes it current. Each stored message's sources
// field is normalized once here. On fetch failure the session resets to an
// empty unattached state rather than keeping a half-loaded transcript.
func (s *Session) LoadConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	s.loading = true
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	records, err := s.api.ConversationMessages(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.loadSeq {
		// A later load superseded this one; drop the result either way.
		return nil
	}
	s.loading = false

	if err != nil {
		s.messages = nil
		s.current = ""
		return fmt.Errorf("chat: loading conversation %s: %w", id, err)
	}

	transcript := make([]Message, 0, len(records))
	for _, rec := range records {
		transcript = append(transcript, Message{
			Role:      rec.Role,
			Content:   rec.Content,
			Sources:   normalizeSources(rec.Sources, s.logger),
			Intent:    rec.Intent,
			CreatedAt: rec.CreatedAt,
		})
	}
	s.messages = transcript
	s.current = id
	return nil
}

// StartNew clears the transcript and detaches from any conversation
// without contacting the server.
func (s *Session) StartNew() {
	s.mu.Lock()
	s.messages = nil
	s.current = ""
	s.loading = false
	s.loadSeq++ // invalidate any in-flight load
	persist := s.persist
	s.mu.Unlock()

	if persist != nil {
		if err := persist.clear(); err != nil {
			s.logger.Warn("clearing legacy transcript failed", "error", err)
		}
	}
}

// SendQuery submits text to the backend. The user message is appended
// optimistically; all prior turns (not the just-appended one) travel as
// history. On success the assistant reply is appended; if the backend
// assigned a new conversation id, the session adopts it and notifies the
// conversation listener once. On failure a synthetic error-flagged
// assistant message is appended and the error returned for logging —
// the transcript already reflects it.
func (s *Session) SendQuery(ctx context.Context, text string) error {
	s.mu.Lock()
	history := s.historyLocked()
	convID := s.current
	s.messages = append(s.messages, Message{
		Role:      RoleUser,
		Content:   text,
		CreatedAt: time.Now(),
	})
	s.loading = true
	s.mu.Unlock()
	s.persistLegacy()

	req := client.QueryRequest{
		Query:       text,
		ChatHistory: history,
	}
	if convID != "" {
		req.ConversationID = &convID
	}

	resp, err := s.api.Query(ctx, req)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.messages = append(s.messages, Message{
			Role:      RoleAssistant,
			Content:   "Error: " + client.ErrorDetail(err),
			CreatedAt: time.Now(),
			IsError:   true,
		})
		s.mu.Unlock()
		s.persistLegacy()
		return fmt.Errorf("chat: query failed: %w", err)
	}

	s.messages = append(s.messages, Message{
		Role:      RoleAssistant,
		Content:   resp.MarkdownResponse,
		Sources:   normalizeSources(resp.Sources, s.logger),
		Intent:    resp.Intent,
		CreatedAt: time.Now(),
	})

	var assigned string
	var notify func(id string)
	if convID == "" && resp.ConversationID != "" {
		s.current = resp.ConversationID
		assigned = resp.ConversationID
		notify = s.onConversationAssigned
	}
	s.mu.Unlock()
	s.persistLegacy()

	if notify != nil {
		notify(assigned)
	}
	return nil
}

// Reset clears the transcript, attachment and persisted legacy transcript.
// Part of the logout cascade: nothing from the previous user may survive.
func (s *Session) Reset() {
	s.mu.Lock()
	s.messages = nil
	s.current = ""
	s.loading = false
	s.loadSeq++
	persist := s.persist
	s.mu.Unlock()

	if persist != nil {
		if err := persist.clear(); err != nil {
			s.logger.Warn("clearing legacy transcript failed", "error", err)
		}
	}
}

// historyLocked maps the transcript to wire history turns, applying the
// configured cap when one is set. Caller must hold s.mu.
func (s *Session) historyLocked() []client.HistoryTurn {
	msgs := s.messages
	if s.window > 0 && len(msgs) > s.window {
		msgs = msgs[len(msgs)-s.window:]
	}
	history := make([]client.HistoryTurn, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, client.HistoryTurn{Role: m.Role, Content: m.Content})
	}
	return history
}

// persistLegacy writes the transcript when the session is unattached.
// An attached conversation is server-owned; only the legacy single-session
// transcript is stored locally.
func (s *Session) persistLegacy() {
	s.mu.Lock()
	persist := s.persist
	current := s.current
	snapshot := make([]Message, len(s.messages))
	copy(snapshot, s.messages)
	s.mu.Unlock()

	if persist == nil || current != "" {
		return
	}
	if err := persist.save(snapshot); err != nil {
		s.logger.Warn("persisting legacy transcript failed", "error", err)
	}
}
