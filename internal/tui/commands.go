package tui

import (
	"context"

	tea "charm.land/bubbletea/v2"

	"github.com/mystuffai/mystuff/internal/client"
)

// Bubble Tea message types for backend operations. Every command
// returns exactly one of these; there is no streaming, the backend
// answers a query with a single document.

type queryStartedMsg struct {
	cancel context.CancelFunc
	done   <-chan error
}

type queryDoneMsg struct {
	err error
}

type conversationLoadedMsg struct {
	id  string
	err error
}

type conversationsFetchedMsg struct {
	list []client.Conversation
	err  error
}

// startQuery dispatches text to the chat session off the UI loop.
// The session owns the transcript: it appends the optimistic user
// message, the assistant reply, or a synthetic error entry itself, so
// the completion message only carries the error for logging.
func (m *Model) startQuery(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(m.ctx, queryTimeout)
		done := make(chan error, 1)

		go func() {
			defer cancel()
			done <- m.session.SendQuery(ctx, text)
		}()

		return queryStartedMsg{cancel: cancel, done: done}
	}
}

// awaitQuery waits for the in-flight query to finish.
func awaitQuery(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		if done == nil {
			return nil
		}
		return queryDoneMsg{err: <-done}
	}
}

// loadConversation opens a conversation's message history.
func (m *Model) loadConversation(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.session.LoadConversation(m.ctx, id)
		return conversationLoadedMsg{id: id, err: err}
	}
}

// fetchConversations refreshes the conversation list from the server.
func (m *Model) fetchConversations() tea.Cmd {
	return func() tea.Msg {
		if err := m.conversations.Fetch(m.ctx); err != nil {
			return conversationsFetchedMsg{err: err}
		}
		return conversationsFetchedMsg{list: m.conversations.List()}
	}
}
