package tui

import (
	"strconv"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash command constants.
const (
	cmdHelp          = "/help"
	cmdNew           = "/new"
	cmdConversations = "/conversations"
	cmdOpen          = "/open"
	cmdClear         = "/clear"
	cmdExit          = "/exit"
	cmdQuit          = "/quit"
)

// keyMap holds key bindings for help bar display.
type keyMap struct {
	Submit     key.Binding
	NewLine    key.Binding
	History    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	EscCancel  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		NewLine:    key.NewBinding(key.WithKeys("shift+enter"), key.WithHelp("s+enter", "newline")),
		History:    key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Cancel:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		EscCancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

//nolint:gocyclo // Keyboard handler requires branching for all key combinations
func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m.handleCtrlC()
		case 'd':
			return m, m.cleanup()
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		if m.state == StateInput {
			// Enter submits, Shift+Enter passes through as a newline
			if k.Mod&tea.ModShift == 0 {
				return m.handleSubmit()
			}
		}

	case tea.KeyUp:
		if m.state == StateInput && m.input.Line() == 0 {
			return m.navigateHistory(-1)
		}

	case tea.KeyDown:
		if m.state == StateInput && m.input.Line() == m.input.LineCount()-1 {
			return m.navigateHistory(1)
		}

	case tea.KeyEscape:
		if m.state == StateBusy {
			m.clearQueryCancel()
			m.state = StateInput
			return m, nil
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	// Typing stays available even while a query is in flight
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within 1 second quits
	if now.Sub(m.lastCtrlC) < time.Second {
		return m, m.cleanup()
	}
	m.lastCtrlC = now

	switch m.state {
	case StateInput:
		m.input.Reset()
		return m, nil

	case StateBusy:
		m.clearQueryCancel()
		m.state = StateInput
		m.addEntry(entry{Role: roleSystem, Text: "(Canceled)"})
		m.rebuildViewportContent()
		return m, nil
	}

	return m, nil
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" {
		return m, nil
	}

	if strings.HasPrefix(query, "/") {
		return m.handleSlashCommand(query)
	}

	m.history = append(m.history, query)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.historyIdx = len(m.history)

	m.addEntry(entry{Role: roleUser, Text: query})
	m.input.Reset()
	m.state = StateBusy
	m.rebuildViewportContent()
	m.viewport.GotoBottom()

	return m, tea.Batch(
		m.spinner.Tick,
		m.startQuery(query),
	)
}

func (m *Model) handleSlashCommand(raw string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(raw, " ")
	arg = strings.TrimSpace(arg)
	m.input.Reset()

	switch name {
	case cmdHelp:
		m.addEntry(entry{
			Role: roleSystem,
			Text: "Commands: " + cmdHelp + ", " + cmdNew + ", " + cmdConversations + ", " +
				cmdOpen + " <n>, " + cmdClear + ", " + cmdExit +
				"\nShortcuts:\n  Enter: send message\n  Shift+Enter: new line\n  Ctrl+C: cancel/clear\n  Ctrl+D: exit\n  Up/Down: history\n  PgUp/PgDn: scroll",
		})

	case cmdNew:
		m.session.StartNew()
		m.conversations.ClearSelection()
		m.saveUIState("")
		m.syncFromSession()
		m.addEntry(entry{Role: roleSystem, Text: "Started a new conversation."})

	case cmdConversations:
		m.state = StateBusy
		m.rebuildViewportContent()
		return m, tea.Batch(m.spinner.Tick, m.fetchConversations())

	case cmdOpen:
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 || n > len(m.listing) {
			m.addEntry(entry{
				Role: roleError,
				Text: "Usage: " + cmdOpen + " <n> after " + cmdConversations + " (1-" + strconv.Itoa(len(m.listing)) + ")",
			})
			break
		}
		m.state = StateBusy
		m.rebuildViewportContent()
		return m, tea.Batch(m.spinner.Tick, m.loadConversation(m.listing[n-1].ID))

	case cmdClear:
		m.entries = nil

	case cmdExit, cmdQuit:
		return m, m.cleanup()

	default:
		m.addEntry(entry{Role: roleError, Text: "Unknown command: " + name})
	}

	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m, nil
}

func (m *Model) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(m.history) == 0 {
		return m, nil
	}

	m.historyIdx += delta

	if m.historyIdx < 0 {
		m.historyIdx = 0
	}
	if m.historyIdx > len(m.history) {
		m.historyIdx = len(m.history)
	}

	if m.historyIdx == len(m.history) {
		m.input.SetValue("")
	} else {
		m.input.SetValue(m.history[m.historyIdx])
		m.input.CursorEnd()
	}

	return m, nil
}

// cleanup cancels any in-flight query, persists UI state and quits.
func (m *Model) cleanup() tea.Cmd {
	if id, ok := m.session.CurrentID(); ok {
		m.saveUIState(id)
	}

	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}
	m.clearQueryCancel()

	return tea.Quit
}
