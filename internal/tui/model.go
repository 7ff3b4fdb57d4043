// Package tui provides the Bubble Tea terminal interface for chatting
// with the My Stuff backend.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/mystuffai/mystuff/internal/chat"
	"github.com/mystuffai/mystuff/internal/client"
	"github.com/mystuffai/mystuff/internal/conversation"
	"github.com/mystuffai/mystuff/internal/log"
	"github.com/mystuffai/mystuff/internal/ui/state"
)

// State represents the TUI state machine.
type State int

const (
	StateInput State = iota // Awaiting user input
	StateBusy               // Waiting on the backend
)

// Memory bounds to prevent unbounded growth.
const (
	maxEntries = 200 // Maximum display entries stored
	maxHistory = 100 // Maximum input history entries
)

// queryTimeout bounds a single backend query.
const queryTimeout = 5 * time.Minute

// Display roles.
const (
	roleUser      = "user"
	roleAssistant = "assistant"
	roleSystem    = "system"
	roleError     = "error"
)

// Layout constants for viewport height calculation.
const (
	separatorLines = 2
	helpLines      = 1
	promptLines    = 1
	minViewport    = 3
)

// entry is one rendered line group in the transcript viewport.
type entry struct {
	Role    string
	Text    string
	Sources any // Assistant citations, rendered as footnotes
}

// Model is the Bubble Tea model for the chat interface.
type Model struct {
	// Input (textarea for multi-line support, Shift+Enter for newline)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state     State
	lastCtrlC time.Time

	// Output
	spinner spinner.Model
	viewBuf strings.Builder // Reusable buffer for View()
	entries []entry

	// Scrollable message viewport
	viewport viewport.Model

	// Help bar
	help help.Model
	keys keyMap

	// In-flight query cancellation
	queryCancel context.CancelFunc

	// Last /conversations listing, indexed for /open <n>
	listing []client.Conversation

	// Conversation to open on startup, consumed by Init
	pendingLoad string

	// Dependencies
	session       *chat.Session
	conversations *conversation.Store
	uiState       *state.Store
	logger        log.Logger
	ctx           context.Context
	ctxCancel     context.CancelFunc

	// Dimensions
	width        int
	height       int
	sidebarWidth int

	// Styles
	styles Styles

	// Markdown rendering (nil = graceful degradation to plain text)
	markdown *markdownRenderer
}

// Config carries the Model's dependencies.
type Config struct {
	Session       *chat.Session
	Conversations *conversation.Store
	UIState       *state.Store
	Logger        log.Logger

	// InitialConversation, when non-empty, is loaded on startup.
	InitialConversation string

	// SidebarWidth for the conversation listing box. Zero uses the
	// persisted or default width.
	SidebarWidth int
}

// addEntry appends a display entry and enforces the maxEntries bound.
func (m *Model) addEntry(e entry) {
	m.entries = append(m.entries, e)
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
}

// New creates a Model. ctx MUST be the same context passed to
// tea.WithContext so cancellation stays consistent.
func New(ctx context.Context, cfg Config) (*Model, error) {
	if cfg.Session == nil {
		return nil, errors.New("tui.New: chat session is required")
	}
	if cfg.Conversations == nil {
		return nil, errors.New("tui.New: conversation store is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("tui.New: logger is required")
	}
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}

	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Ask about your documents..."
	ta.SetHeight(1)
	ta.SetWidth(120)
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{
		Focused: cleanStyle,
		Blurred: cleanStyle,
	})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Built-in viewport key handling is disabled; keys are routed
	// explicitly in handleKey to avoid conflicts with the textarea.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	sidebar := cfg.SidebarWidth
	if sidebar <= 0 {
		sidebar = state.DefaultSidebarWidth
	}

	m := &Model{
		session:       cfg.Session,
		conversations: cfg.Conversations,
		uiState:       cfg.UIState,
		logger:        cfg.Logger,
		ctx:           ctx,
		ctxCancel:     cancel,
		input:         ta,
		spinner:       sp,
		viewport:      vp,
		help:          help.New(),
		keys:          newKeyMap(),
		styles:        DefaultStyles(),
		history:       make([]string, 0, maxHistory),
		markdown:      newMarkdownRenderer(80),
		width:         80,
		sidebarWidth:  sidebar,
	}

	// A transcript restored from disk (legacy single-session mode)
	// shows up immediately.
	m.syncFromSession()

	if cfg.InitialConversation != "" {
		m.state = StateBusy
		m.pendingLoad = cfg.InitialConversation
	}

	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(),
	}
	if m.pendingLoad != "" {
		cmds = append(cmds, m.loadConversation(m.pendingLoad))
	}
	return tea.Batch(cmds...)
}

// syncFromSession rebuilds the display entries from the chat session
// transcript. Transient system entries (help text, listings) are not
// part of the session and are dropped by a sync.
func (m *Model) syncFromSession() {
	msgs := m.session.Messages()
	entries := make([]entry, 0, len(msgs))
	for _, msg := range msgs {
		role := msg.Role
		if msg.IsError {
			role = roleError
		}
		entries = append(entries, entry{Role: role, Text: msg.Content, Sources: msg.Sources})
	}
	m.entries = entries
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
}
