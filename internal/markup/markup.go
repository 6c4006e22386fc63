// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"sort"
	"time"

	"github.com/dlclark/regexp2"
)

// =============================================================================
// TAGS
// =============================================================================

// Tag identifies the semantic style of a span.
type Tag int

const (
	// Bold marks **strong** text.
	Bold Tag = iota
	// Italic marks *emphasised* or _emphasised_ text.
	Italic
	// CodeBlock marks a fenced block including its trailing newline.
	CodeBlock
	// CodeContent marks the interior of a fenced block.
	CodeContent
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case Bold:
		return "bold"
	case Italic:
		return "italic"
	case CodeBlock:
		return "code_block"
	case CodeContent:
		return "code_content"
	default:
		return "unknown"
	}
}

// IsCode reports whether text under the tag must not be rescanned.
func (t Tag) IsCode() bool {
	return t == CodeBlock || t == CodeContent
}

// =============================================================================
// PATTERNS
// =============================================================================

// MatchTimeout bounds a single regexp evaluation.
const MatchTimeout = 250 * time.Millisecond

// Pattern is one markup construct.
type Pattern struct {
	Tag Tag
	// ContentGroup is the capture group holding the visible content.
	ContentGroup int
	// LangGroup is the capture group holding a code fence language, or 0.
	LangGroup int

	re *regexp2.Regexp
}

// NewPattern compiles expr into a Pattern.
func NewPattern(tag Tag, expr string, contentGroup, langGroup int) (Pattern, error) {
	re, err := regexp2.Compile(expr, regexp2.None)
	if err != nil {
		return Pattern{}, err
	}
	re.MatchTimeout = MatchTimeout
	return Pattern{Tag: tag, ContentGroup: contentGroup, LangGroup: langGroup, re: re}, nil
}

// MustPattern is like NewPattern but panics on a bad expression.
func MustPattern(tag Tag, expr string, contentGroup, langGroup int) Pattern {
	p, err := NewPattern(tag, expr, contentGroup, langGroup)
	if err != nil {
		panic("markup: " + err.Error())
	}
	return p
}

// Table is an ordered list of patterns. Order breaks ties between matches
// that start at the same offset.
type Table []Pattern

// Default pattern expressions.
const (
	codeBlockExpr = "(?sm)^```([A-Za-z0-9_+#.-]*)[ \\t]*\\n(.*?)\\n```[ \\t]*$"
	boldExpr      = `\*\*(.+?)\*\*`
	starExpr      = `(?<!\*)\*(?![*_])(.+?)(?<!\*)\*(?![*_])`
	underExpr     = `(?<!_)_(?![_*])(.+?)(?<!_)_(?![_*])`
)

var defaultTable = Table{
	MustPattern(CodeBlock, codeBlockExpr, 2, 1),
	MustPattern(Bold, boldExpr, 1, 0),
	MustPattern(Italic, starExpr, 1, 0),
	MustPattern(Italic, underExpr, 1, 0),
}

// DefaultTable returns the built-in table: fenced code, bold, italic.
func DefaultTable() Table {
	return defaultTable
}

// =============================================================================
// SCAN
// =============================================================================

// Match is the earliest construct found by Scan. Offsets are runes relative
// to the scanned text; End is exclusive.
type Match struct {
	Tag     Tag
	Start   int
	End     int
	Content string
	Lang    string
}

// Scan returns the earliest match of any pattern in text. Equal starts are
// resolved by table order. A pattern that times out is treated as not
// matching.
func Scan(text string, table Table) (Match, bool) {
	return scanRunes([]rune(text), table)
}

func scanRunes(text []rune, table Table) (Match, bool) {
	var best Match
	found := false
	for _, p := range table {
		m, err := p.re.FindRunesMatch(text)
		if err != nil || m == nil {
			continue
		}
		if found && m.Index >= best.Start {
			continue
		}
		best = Match{
			Tag:     p.Tag,
			Start:   m.Index,
			End:     m.Index + m.Length,
			Content: groupText(m, p.ContentGroup),
			Lang:    groupText(m, p.LangGroup),
		}
		found = true
	}
	return best, found
}

func groupText(m *regexp2.Match, n int) string {
	if n <= 0 {
		return ""
	}
	g := m.GroupByNumber(n)
	if g == nil || len(g.Captures) == 0 {
		return ""
	}
	return g.String()
}

// =============================================================================
// APPLY
// =============================================================================

// Editor is the document surface Apply rewrites through.
type Editor interface {
	// Runes returns the text in [start, end).
	Runes(start, end int) []rune
	// Replace substitutes [start, end) with text, shifting later spans.
	Replace(start, end int, text string)
	// Tag records a styled span over [start, end).
	Tag(tag Tag, start, end int, lang string)
	// Protected returns code ranges intersecting [start, end), sorted.
	Protected(start, end int) [][2]int
}

// Apply rewrites every construct inside [start, end) and returns the new end
// of the range. Inline content is rescanned so nested markup resolves; code
// interiors are never rescanned. Apply runs to a fixed point, so a second
// call over the same range changes nothing.
func Apply(ed Editor, start, end int, table Table) int {
	for {
		var changed bool
		end, changed = applyPass(ed, start, end, table)
		if !changed {
			return end
		}
	}
}

func applyPass(ed Editor, start, end int, table Table) (int, bool) {
	changed := false
	pos := start
	for pos < end {
		segEnd, skipTo := end, end
		for _, r := range ed.Protected(pos, end) {
			if r[1] <= pos {
				continue
			}
			if r[0] <= pos {
				pos = r[1]
				segEnd = -1
				break
			}
			segEnd, skipTo = r[0], r[1]
			break
		}
		if segEnd < 0 {
			continue
		}

		m, ok := scanRunes(ed.Runes(pos, segEnd), table)
		if !ok {
			pos = skipTo
			continue
		}
		changed = true
		ms, me := pos+m.Start, pos+m.End
		content := []rune(m.Content)

		if m.Tag == CodeBlock {
			replacement := "\n" + m.Content + "\n"
			ed.Replace(ms, me, replacement)
			n := len([]rune(replacement))
			end += n - (me - ms)
			ed.Tag(CodeBlock, ms+1, ms+1+len(content)+1, m.Lang)
			ed.Tag(CodeContent, ms+1, ms+1+len(content), m.Lang)
			pos = ms + n
			continue
		}

		ed.Replace(ms, me, m.Content)
		end += len(content) - (me - ms)
		ed.Tag(m.Tag, ms, ms+len(content), "")
		pos = ms
	}
	return end, changed
}

// ShiftRange maps span [a, b) through the replacement of [s, e) by n runes.
// Endpoints that fall inside the replaced text clamp to the replacement.
func ShiftRange(a, b, s, e, n int) (int, int) {
	delta := n - (e - s)
	switch {
	case a >= e:
		return a + delta, b + delta
	case b <= s:
		return a, b
	}
	if a > s {
		a = s
	}
	if b >= e {
		b += delta
	} else {
		b = s + n
	}
	return a, b
}

// SortRanges orders ranges by start then end.
func SortRanges(rs [][2]int) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i][0] != rs[j][0] {
			return rs[i][0] < rs[j][0]
		}
		return rs[i][1] < rs[j][1]
	})
}
