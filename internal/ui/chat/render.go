// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/jeranaias/aichat-tui/internal/markup"
	"github.com/jeranaias/aichat-tui/internal/transcript"
	"github.com/jeranaias/aichat-tui/internal/ui/components"
	"github.com/jeranaias/aichat-tui/internal/ui/styles"
)

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// selection is the message and code block the copy actions act on.
type selection struct {
	message int
	block   int
}

const selectedMarker = "▌ "

// renderTranscript styles every message of doc for a viewport of width
// columns. It also returns the first line of each message.
func renderTranscript(doc *transcript.Document, theme *styles.Theme, width int, sel selection) (string, []int) {
	msgs := doc.Messages()
	offsets := make([]int, len(msgs))

	var b strings.Builder
	line := 0
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
			line += 2
		}
		offsets[i] = line

		block := -1
		if i == sel.message {
			block = sel.block
		}
		rendered := renderMessage(doc, theme, msg, i == sel.message, block)
		if width > 0 {
			rendered = wrap.String(wordwrap.String(rendered, width), width)
		}
		b.WriteString(rendered)
		line += strings.Count(rendered, "\n")
	}
	return b.String(), offsets
}

// renderMessage styles one message. The label takes the role style; the
// content is styled span by span. block is the code block to outline, or -1.
func renderMessage(doc *transcript.Document, theme *styles.Theme, msg transcript.Message, selected bool, block int) string {
	var b strings.Builder
	if selected {
		b.WriteString(theme.SelectedMarker.Render(selectedMarker))
	}
	b.WriteString(theme.RoleLabel(msg.Role).Render(doc.Slice(msg.Start, msg.ContentStart)))

	if id, ok := doc.Active(); ok && id == msg.ID && strings.TrimSpace(doc.Content(msg.ID)) == transcript.Placeholder {
		b.WriteString(theme.Placeholder.Render(transcript.Placeholder))
		return b.String()
	}

	body := theme.RoleBody(msg.Role)
	pos := msg.ContentStart
	code := 0
	for _, s := range doc.SpansFor(msg.ID) {
		// CodeBlock only adds the newline after the fence; CodeContent
		// carries the text.
		if s.Tag == markup.CodeBlock || s.Start < pos {
			continue
		}
		b.WriteString(renderLines(body, doc.Slice(pos, s.Start)))
		text := doc.Slice(s.Start, s.End)

		switch s.Tag {
		case markup.Bold:
			b.WriteString(renderLines(body.Bold(true), text))
		case markup.Italic:
			b.WriteString(renderLines(body.Italic(true), text))
		case markup.CodeContent:
			style := theme.CodeBlock
			if code == block {
				style = style.BorderForeground(styles.Purple)
			}
			b.WriteString(style.Render(components.Highlight(strings.TrimRight(text, "\n"), s.Lang, theme)))
			code++
		default:
			b.WriteString(text)
		}
		pos = s.End
	}
	b.WriteString(renderLines(body, doc.Slice(pos, msg.End)))
	return b.String()
}

// renderLines styles each line of text on its own so lipgloss does not pad
// short lines to the width of the longest one.
func renderLines(style lipgloss.Style, text string) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = style.Render(l)
		}
	}
	return strings.Join(lines, "\n")
}
