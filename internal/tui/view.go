package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// View implements tea.Model.
// Uses AltScreen with a viewport for scrollable transcript history.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	_, _ = m.viewBuf.WriteString(m.viewport.View())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	// Input stays visible and typeable even while a query is in flight
	_, _ = m.viewBuf.WriteString(m.styles.Prompt.Render("> "))
	_, _ = m.viewBuf.WriteString(m.input.View())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	_, _ = m.viewBuf.WriteString(m.renderStatusBar())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the viewport content from the
// display entries and current state.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder

	_, _ = b.WriteString(m.styles.RenderBanner())
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(m.styles.RenderWelcomeTips())
	_, _ = b.WriteString("\n")

	for _, e := range m.entries {
		switch e.Role {
		case roleUser:
			_, _ = b.WriteString(m.styles.User.Render("You> "))
			_, _ = b.WriteString(e.Text)
		case roleAssistant:
			_, _ = b.WriteString(m.styles.Assistant.Render("MyStuff> "))
			_, _ = b.WriteString(m.markdown.Render(e.Text))
			if footnotes := formatSources(e.Sources); footnotes != "" {
				_, _ = b.WriteString("\n")
				_, _ = b.WriteString(m.styles.Sources.Render(footnotes))
			}
		case roleSystem:
			_, _ = b.WriteString(m.styles.System.Render(e.Text))
		case roleError:
			_, _ = b.WriteString(m.styles.Error.Render(e.Text))
		}
		_, _ = b.WriteString("\n\n")
	}

	if m.state == StateBusy {
		_, _ = b.WriteString(m.spinner.View())
		_, _ = b.WriteString(" Thinking...\n\n")
	}

	m.viewport.SetContent(b.String())
}

// formatSources renders assistant citations as footnote lines. Sources
// arrive already normalized: structured data, or nil when the backend
// sent nothing usable.
func formatSources(sources any) string {
	items, ok := sources.([]any)
	if !ok || len(items) == 0 {
		return ""
	}

	var b strings.Builder
	_, _ = b.WriteString("Sources:")
	for i, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name, _ := entry["filename"].(string)
		if name == "" {
			name, _ = entry["source"].(string)
		}
		if name == "" {
			continue
		}
		_, _ = b.WriteString(fmt.Sprintf("\n  [%d] %s", i+1, name))
		if page, ok := entry["page"].(float64); ok {
			_, _ = b.WriteString(fmt.Sprintf(" (p.%d)", int(page)))
		}
	}
	out := b.String()
	if out == "Sources:" {
		return ""
	}
	return out
}

// renderSeparator returns a horizontal line separator.
func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (m *Model) renderStatusBar() string {
	var bindings []key.Binding
	switch m.state {
	case StateInput:
		bindings = []key.Binding{
			m.keys.Submit, m.keys.NewLine, m.keys.History,
			m.keys.Cancel, m.keys.Quit, m.keys.ScrollUp,
		}
	case StateBusy:
		bindings = []key.Binding{
			m.keys.EscCancel, m.keys.Cancel,
			m.keys.ScrollUp, m.keys.ScrollDown,
		}
	}
	return m.help.ShortHelpView(bindings)
}
