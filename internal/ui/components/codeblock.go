// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/jeranaias/aichat-tui/internal/ui/styles"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// Highlight colours code with chroma. language is the fence tag and may be
// empty, in which case the lexer is guessed from the code. The original text
// is returned when the terminal has no colors or highlighting fails.
func Highlight(code, language string, theme *styles.Theme) string {
	formatterName := "terminal256"
	styleName := "monokai"
	if theme != nil {
		formatterName = theme.ChromaFormatter()
		styleName = theme.ChromaStyle()
	}
	if formatterName == "" || code == "" {
		return code
	}

	lexer := LexerFor(code, language)

	style := chromaStyles.Get(styleName)
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get(formatterName)
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	out := buf.String()
	if !strings.HasSuffix(code, "\n") {
		out = dropEnsuredNewline(out)
	}
	return out
}

// dropEnsuredNewline removes the newline lexers append to their input when
// only escape sequences follow it.
func dropEnsuredNewline(s string) string {
	idx := strings.LastIndex(s, "\n")
	if idx < 0 {
		return s
	}
	tail := s[idx+1:]
	for len(tail) > 0 {
		if tail[0] != '\x1b' {
			return s
		}
		end := strings.IndexFunc(tail[1:], func(r rune) bool {
			return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z'
		})
		if end < 0 {
			return s
		}
		tail = tail[end+2:]
	}
	return s[:idx] + s[idx+1:]
}

// LexerFor picks the chroma lexer for a fence tag, falling back to content
// analysis and then plain text.
func LexerFor(code, language string) chroma.Lexer {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	return chroma.Coalesce(lexer)
}
