// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markup finds lightweight markdown constructs in assistant replies
// and rewrites them into tagged plain text.
//
// Replies arrive as raw markdown. Once a reply is complete its text is
// scanned for fenced code blocks, **bold** and *italic* / _italic_ spans.
// Each match has its delimiters removed and the remaining content is tagged
// so the renderer can style it.
//
// # Key Types
//
//   - Pattern: one compiled construct (regexp + tag + capture groups)
//   - Table: ordered patterns; earlier entries win ties
//   - Match: result of Scan, in rune offsets
//   - Editor: the narrow document surface Apply rewrites through
//
// # Usage
//
//	m, ok := markup.Scan(text, markup.DefaultTable())
//	end := markup.Apply(editor, start, end, markup.DefaultTable())
//
// Offsets are rune offsets throughout. The patterns need lookbehind, so they
// are compiled with regexp2 rather than the standard library.
package markup
