package tui

import (
	"context"
	"errors"
	"fmt"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
)

// Update implements tea.Model.
//
//nolint:gocognit,gocyclo // Bubble Tea Update requires type switch on all message types
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		inputHeight := m.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		m.viewport.SetWidth(msg.Width)
		m.viewport.SetHeight(vpHeight)
		m.input.SetWidth(msg.Width - 4) // Room for "> " prompt
		m.help.SetWidth(msg.Width)
		m.markdown.UpdateWidth(msg.Width)

		m.rebuildViewportContent()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == StateBusy {
			m.rebuildViewportContent()
		}
		return m, cmd

	case queryStartedMsg:
		m.queryCancel = msg.cancel
		m.state = StateBusy
		m.syncFromSession()
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, awaitQuery(msg.done)

	case queryDoneMsg:
		m.state = StateInput
		m.clearQueryCancel()

		// The session transcript already holds the reply or the error
		// entry; mirror it.
		m.syncFromSession()

		var cmd tea.Cmd
		if msg.err == nil {
			cmd = m.adoptConversation()
		} else if errors.Is(msg.err, context.Canceled) {
			m.addEntry(entry{Role: roleSystem, Text: "(Canceled)"})
		} else if errors.Is(msg.err, context.DeadlineExceeded) {
			m.addEntry(entry{Role: roleError, Text: "Query timed out. Try a narrower question."})
		}

		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, tea.Batch(cmd, m.input.Focus())

	case conversationLoadedMsg:
		m.state = StateInput
		if msg.err != nil {
			// The session reset itself to an empty unattached state;
			// mirror that before surfacing the error.
			m.syncFromSession()
			m.addEntry(entry{Role: roleError, Text: "Could not open conversation: " + msg.err.Error()})
		} else {
			m.syncFromSession()
			m.conversations.Select(msg.id)
			m.saveUIState(msg.id)
		}
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, m.input.Focus()

	case conversationsFetchedMsg:
		m.state = StateInput
		if msg.err != nil {
			m.addEntry(entry{Role: roleError, Text: "Could not list conversations: " + msg.err.Error()})
		} else {
			m.listing = msg.list
			m.addEntry(entry{Role: roleSystem, Text: m.renderListing()})
		}
		m.rebuildViewportContent()
		m.viewport.GotoBottom()
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// adoptConversation reacts to the backend assigning a conversation id
// during a query: select it, persist it, refresh the list so the new
// conversation shows up with its generated title.
func (m *Model) adoptConversation() tea.Cmd {
	id, ok := m.session.CurrentID()
	if !ok {
		return nil
	}
	if selected, _ := m.conversations.Selected(); selected == id {
		return nil
	}
	m.conversations.Select(id)
	m.saveUIState(id)
	return m.fetchConversations()
}

// saveUIState persists the last open conversation. Failure to persist
// is logged, never surfaced.
func (m *Model) saveUIState(conversationID string) {
	if m.uiState == nil {
		return
	}
	st, err := m.uiState.Load()
	if err != nil {
		m.logger.Warn("loading ui state failed", "error", err)
		st.SidebarWidth = m.sidebarWidth
	}
	st.LastConversationID = conversationID
	st.SidebarWidth = m.sidebarWidth
	if err := m.uiState.Save(st); err != nil {
		m.logger.Warn("saving ui state failed", "error", err)
	}
}

// renderListing formats the fetched conversation list with 1-based
// indices usable by /open <n>.
func (m *Model) renderListing() string {
	if len(m.listing) == 0 {
		return "No conversations yet. Ask a question to start one."
	}
	out := "Conversations:\n"
	selected, _ := m.conversations.Selected()
	for i, conv := range m.listing {
		marker := "  "
		if conv.ID == selected {
			marker = "* "
		}
		title := conv.Title
		if title == "" {
			title = "(untitled)"
		}
		out += fmt.Sprintf("%s%2d. %s\n", marker, i+1, title)
	}
	out += "Open one with /open <n>."
	return out
}

func (m *Model) clearQueryCancel() {
	if m.queryCancel != nil {
		m.queryCancel()
		m.queryCancel = nil
	}
}
