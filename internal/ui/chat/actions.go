// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/aichat-tui/internal/export"
	"github.com/jeranaias/aichat-tui/internal/ui/components"
)

// =============================================================================
// CONTEXT MENU ACTIONS
// =============================================================================

// buildMenu fills the context menu. Items are evaluated when the menu
// opens, so they always see the current transcript.
func (m Model) buildMenu() {
	hasMessage := func() bool {
		_, ok := m.target()
		return ok
	}
	hasCode := func() bool {
		msg, ok := m.target()
		return ok && len(m.ctrl.Document().CodeBlocks(msg.ID)) > 0
	}

	m.menu.AppendItem(components.MenuItem{
		Label:   "Copy Code Block",
		Enabled: hasCode,
		Action:  m.copyCodeBlock,
	})
	m.menu.AppendItem(components.MenuItem{
		Label:   "Copy Message (Markdown)",
		Enabled: hasMessage,
		Action:  m.copyMarkdown,
	})
	m.menu.AppendItem(components.MenuItem{
		Label:   "Copy Message (Text)",
		Enabled: hasMessage,
		Action:  m.copyPlainText,
	})
	m.menu.AppendItem(components.MenuItem{
		Label:   "Export Conversation",
		Enabled: func() bool { return m.ctrl.Document().Len() > 0 },
		Action:  m.exportConversation,
	})
	m.menu.AppendItem(components.MenuItem{
		Label:  "Refresh Models",
		Action: message(refreshModelsMsg{}),
	})
	m.menu.AppendItem(components.MenuItem{
		Label:  "Settings...",
		Action: message(openOverlayMsg{overlay: overlaySettings}),
	})
	m.menu.AppendItem(components.MenuItem{
		Label:   "Clear Conversation",
		Enabled: func() bool { return m.ctrl.Document().Len() > 0 },
		Action:  message(openOverlayMsg{overlay: overlayConfirmClear}),
	})
	m.menu.AppendItem(components.MenuItem{
		Label:  "Help",
		Action: message(openOverlayMsg{overlay: overlayHelp}),
	})
}

func message(msg tea.Msg) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg { return msg }
	}
}

// copyCodeBlock copies the outlined block of the selected message, or the
// last block of the newest message.
func (m Model) copyCodeBlock() tea.Cmd {
	msg, ok := m.target()
	if !ok {
		return nil
	}
	blocks := m.ctrl.Document().CodeBlocks(msg.ID)
	if len(blocks) == 0 {
		return nil
	}
	idx := len(blocks) - 1
	if m.view.selected >= 0 {
		idx = m.view.block % len(blocks)
	}
	return m.copyText("code block", blocks[idx])
}

// copyMarkdown copies the message source as received.
func (m Model) copyMarkdown() tea.Cmd {
	msg, ok := m.target()
	if !ok {
		return nil
	}
	return m.copyText("message", msg.Raw)
}

// copyPlainText copies the message as displayed, markup removed.
func (m Model) copyPlainText() tea.Cmd {
	msg, ok := m.target()
	if !ok {
		return nil
	}
	return m.copyText("message text", m.ctrl.Document().Content(msg.ID))
}

func (m Model) copyText(what, text string) tea.Cmd {
	write := m.copy
	return func() tea.Msg {
		return copiedMsg{what: what, err: write(text)}
	}
}

// exportConversation snapshots the transcript and writes it as Markdown in
// the background.
func (m Model) exportConversation() tea.Cmd {
	conv := export.FromDocument(m.ctrl.Document(), m.ctrl.SelectedModel())
	opts := export.DefaultOptions()
	opts.OutputDir = m.exportDir
	return func() tea.Msg {
		path, err := export.ExportMarkdown(conv, opts)
		return exportedMsg{path: path, err: err}
	}
}
