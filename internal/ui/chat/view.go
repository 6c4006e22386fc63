// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/aichat-tui/internal/util"
)

// View renders the chat panel.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}
	if m.overlay != overlayNone {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderOverlay())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderTranscript(),
		m.theme.Separator.Render(strings.Repeat("─", m.width)),
		m.input.View(),
		m.status.View(),
	)
}

func (m Model) renderHeader() string {
	title := "aichat"
	if name := m.ctrl.SelectedModel(); name != "" {
		title += " · " + name
	}
	inner := m.width - m.theme.Header.GetHorizontalFrameSize()
	return m.theme.Header.Width(m.width).Render(util.TruncateWidth(title, max(inner, 1)))
}

func (m Model) renderTranscript() string {
	if m.ctrl.Document().Len() == 0 {
		hint := m.theme.Muted.Render("Ask a question below, or run `aichat explain` from your editor.")
		return lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center, hint)
	}
	return m.viewport.View()
}

func (m Model) renderOverlay() string {
	t := m.theme
	switch m.overlay {
	case overlayMenu:
		return m.menu.View()
	case overlaySettings:
		return m.settings.view()
	case overlayHelp:
		return t.Dialog.Render(m.view.helpText)
	case overlayConfirmClear:
		return t.Dialog.Render(
			t.DialogTitle.Render("Clear Conversation") + "\n" +
				"Clear the transcript and the conversation history?\n\n" +
				t.Muted.Render("y yes  n no"))
	case overlayConfigMissing:
		return t.Dialog.Render(
			t.DialogTitle.Render("Configuration Missing") + "\n" +
				util.FirstLine(m.view.missingText) + "\n\n" +
				t.Muted.Render("Enter open settings  Esc close"))
	}
	return ""
}

const helpMarkdown = `# aichat

Chat with any OpenAI-compatible endpoint. Replies stream into the
transcript and are formatted when they finish: **bold**, *italic* and
fenced code blocks with syntax highlighting.

Select a message with Alt+Up / Alt+Down and open the menu with Ctrl+O to
copy a code block or the message itself. The menu can also export the
conversation as Markdown to the current directory.
`

// renderHelp renders the help text once per size change; glamour is too
// slow to run on every frame.
func (m Model) renderHelp() string {
	width := max(min(m.width-8, 80), 20)

	style := "dark"
	switch {
	case m.theme.ColorProfile == termenv.Ascii:
		style = "notty"
	case !m.theme.IsDark:
		style = "light"
	}

	text := helpMarkdown
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		if out, rerr := r.Render(helpMarkdown); rerr == nil {
			text = strings.Trim(out, "\n")
		}
	}

	m.help.ShowAll = true
	return text + "\n\n" + m.help.View(m.keys) + "\n\n" + m.theme.Muted.Render("Esc close")
}
