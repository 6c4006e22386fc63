// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bufEditor is a minimal Editor over a rune slice.
type bufEditor struct {
	buf   []rune
	spans []span
}

type span struct {
	tag        Tag
	start, end int
	lang       string
}

func newBufEditor(s string) *bufEditor {
	return &bufEditor{buf: []rune(s)}
}

func (e *bufEditor) Runes(start, end int) []rune {
	return append([]rune(nil), e.buf[start:end]...)
}

func (e *bufEditor) Replace(start, end int, text string) {
	r := []rune(text)
	delta := len(r) - (end - start)
	out := make([]rune, 0, len(e.buf)+delta)
	out = append(out, e.buf[:start]...)
	out = append(out, r...)
	out = append(out, e.buf[end:]...)
	e.buf = out
	for i := range e.spans {
		e.spans[i].start, e.spans[i].end = ShiftRange(e.spans[i].start, e.spans[i].end, start, end, len(r))
	}
}

func (e *bufEditor) Tag(tag Tag, start, end int, lang string) {
	e.spans = append(e.spans, span{tag, start, end, lang})
}

func (e *bufEditor) Protected(start, end int) [][2]int {
	var out [][2]int
	for _, s := range e.spans {
		if s.tag.IsCode() && s.start < end && s.end > start {
			out = append(out, [2]int{s.start, s.end})
		}
	}
	SortRanges(out)
	return out
}

func (e *bufEditor) text() string { return string(e.buf) }

func (e *bufEditor) slice(s span) string { return string(e.buf[s.start:s.end]) }

// =============================================================================
// SCAN TESTS
// =============================================================================

func TestScan_Bold(t *testing.T) {
	m, ok := Scan("say **hi** now", DefaultTable())
	require.True(t, ok)
	assert.Equal(t, Bold, m.Tag)
	assert.Equal(t, 4, m.Start)
	assert.Equal(t, 10, m.End)
	assert.Equal(t, "hi", m.Content)
}

func TestScan_ItalicVariants(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		content string
		start   int
	}{
		{"star", "an *idea* here", "idea", 3},
		{"underscore", "an _idea_ here", "idea", 3},
		{"star at start", "*x*", "x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Scan(tt.text, DefaultTable())
			require.True(t, ok)
			assert.Equal(t, Italic, m.Tag)
			assert.Equal(t, tt.content, m.Content)
			assert.Equal(t, tt.start, m.Start)
		})
	}
}

func TestScan_NoMatch(t *testing.T) {
	for _, text := range []string{"", "plain text", "a * b", "snake_case", "**unclosed"} {
		_, ok := Scan(text, DefaultTable())
		assert.False(t, ok, "text %q", text)
	}
}

func TestScan_CodeBlock(t *testing.T) {
	text := "Use:\n```go\nfmt.Println(\"*hi*\")\n```\ndone"
	m, ok := Scan(text, DefaultTable())
	require.True(t, ok)
	assert.Equal(t, CodeBlock, m.Tag)
	assert.Equal(t, "go", m.Lang)
	assert.Equal(t, "fmt.Println(\"*hi*\")", m.Content)
	assert.Equal(t, 5, m.Start)
}

func TestScan_EarliestWins(t *testing.T) {
	m, ok := Scan("_a_ **b**", DefaultTable())
	require.True(t, ok)
	assert.Equal(t, Italic, m.Tag)
	assert.Equal(t, 0, m.Start)
}

func TestScan_TieBrokenByTableOrder(t *testing.T) {
	table := Table{
		MustPattern(Italic, `\*\*(.+?)\*\*`, 1, 0),
		MustPattern(Bold, `\*\*(.+?)\*\*`, 1, 0),
	}
	m, ok := Scan("**x**", table)
	require.True(t, ok)
	assert.Equal(t, Italic, m.Tag)

	m, ok = Scan("**x**", DefaultTable())
	require.True(t, ok)
	assert.Equal(t, Bold, m.Tag, "italic cannot start on a doubled star")
}

func TestScan_RuneOffsets(t *testing.T) {
	m, ok := Scan("héllo **wörld**", DefaultTable())
	require.True(t, ok)
	assert.Equal(t, 6, m.Start)
	assert.Equal(t, 15, m.End)
}

// =============================================================================
// APPLY TESTS
// =============================================================================

func TestApply_Inline(t *testing.T) {
	ed := newBufEditor("a **b** and *c* and _d_.")
	end := Apply(ed, 0, len(ed.buf), DefaultTable())

	assert.Equal(t, "a b and c and d.", ed.text())
	assert.Equal(t, len(ed.buf), end)
	require.Len(t, ed.spans, 3)
	assert.Equal(t, Bold, ed.spans[0].tag)
	assert.Equal(t, "b", ed.slice(ed.spans[0]))
	assert.Equal(t, "c", ed.slice(ed.spans[1]))
	assert.Equal(t, "d", ed.slice(ed.spans[2]))
}

func TestApply_CodeBlockNotRescanned(t *testing.T) {
	ed := newBufEditor("See\n```py\nx = a * b * c\n```\nthen **go**")
	Apply(ed, 0, len(ed.buf), DefaultTable())

	assert.Equal(t, "See\n\nx = a * b * c\n\nthen go", ed.text())
	var tags []Tag
	for _, s := range ed.spans {
		tags = append(tags, s.tag)
		if s.tag == CodeContent {
			assert.Equal(t, "x = a * b * c", ed.slice(s))
			assert.Equal(t, "py", s.lang)
		}
		if s.tag == CodeBlock {
			assert.Equal(t, "x = a * b * c\n", ed.slice(s))
		}
	}
	assert.ElementsMatch(t, []Tag{CodeBlock, CodeContent, Bold}, tags)
}

func TestApply_Nested(t *testing.T) {
	ed := newBufEditor("***x***")
	Apply(ed, 0, len(ed.buf), DefaultTable())
	assert.Equal(t, "x", ed.text())
	require.Len(t, ed.spans, 2)
	for _, s := range ed.spans {
		assert.Equal(t, "x", ed.slice(s))
	}
}

func TestShiftRange(t *testing.T) {
	tests := []struct {
		name         string
		a, b         int
		s, e, n      int
		wantA, wantB int
	}{
		{"after", 10, 12, 2, 4, 0, 8, 10},
		{"before", 0, 2, 2, 4, 1, 0, 2},
		{"insert at start", 5, 7, 5, 5, 3, 8, 10},
		{"containing", 0, 10, 2, 4, 1, 0, 9},
		{"tail overlap", 0, 2, 0, 3, 1, 0, 1},
		{"inside", 3, 4, 2, 6, 2, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := ShiftRange(tt.a, tt.b, tt.s, tt.e, tt.n)
			assert.Equal(t, tt.wantA, a)
			assert.Equal(t, tt.wantB, b)
		})
	}
}

func TestApply_RespectsRange(t *testing.T) {
	ed := newBufEditor("**a** | **b**")
	end := Apply(ed, 0, 5, DefaultTable())
	assert.Equal(t, 1, end)
	assert.Equal(t, "a | **b**", ed.text())
}

func TestApply_Idempotent(t *testing.T) {
	inputs := []string{
		"plain",
		"**bold** *it* _it_",
		"***x***",
		"```\ncode *not* styled\n```\n_after_",
		"a * b * c",
		"mixed **a *b* c** end",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			ed := newBufEditor(in)
			end := Apply(ed, 0, len(ed.buf), DefaultTable())
			text, spans := ed.text(), append([]span(nil), ed.spans...)

			end2 := Apply(ed, 0, end, DefaultTable())
			assert.Equal(t, end, end2)
			assert.Equal(t, text, ed.text())
			assert.Equal(t, spans, ed.spans)
		})
	}
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "bold", Bold.String())
	assert.Equal(t, "code_content", CodeContent.String())
	assert.True(t, CodeBlock.IsCode())
	assert.False(t, Italic.IsCode())
}
