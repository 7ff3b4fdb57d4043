package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Accent color for the banner.
const accentBlue = "#3B82F6"

// Banner ASCII art.
var bannerArt = []string{
	"  ███╗   ███╗██╗   ██╗  ███████╗████████╗██╗   ██╗███████╗███████╗",
	"  ████╗ ████║╚██╗ ██╔╝  ██╔════╝╚══██╔══╝██║   ██║██╔════╝██╔════╝",
	"  ██╔████╔██║ ╚████╔╝   ███████╗   ██║   ██║   ██║█████╗  █████╗  ",
	"  ██║╚██╔╝██║  ╚██╔╝    ╚════██║   ██║   ██║   ██║██╔══╝  ██╔══╝  ",
	"  ██║ ╚═╝ ██║   ██║     ███████║   ██║   ╚██████╔╝██║     ██║     ",
	"  ╚═╝     ╚═╝   ╚═╝     ╚══════╝   ╚═╝    ╚═════╝ ╚═╝     ╚═╝     ",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner    lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	System    lipgloss.Style
	Sources   lipgloss.Style // Citation footnotes under assistant replies
	Tips      lipgloss.Style
	Error     lipgloss.Style
	Prompt    lipgloss.Style
	Separator lipgloss.Style
	StatusBar lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentBlue)),
		User:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Sources:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		Tips:      lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}

// RenderBanner returns the ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range bannerArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips contains getting started tips displayed under the banner.
var welcomeTips = []string{
	"Chat with your uploaded documents:",
	"  • Ask questions naturally - answers cite their sources",
	"  • Use /conversations to browse past chats, /new to start fresh",
	"  • Use /help to see all commands",
	"  • Press Ctrl+C to cancel, Ctrl+D to exit",
}

// RenderWelcomeTips returns styled welcome tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
