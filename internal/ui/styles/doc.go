// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the aichat panel.

All colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection. The "dark" and "light" themes force one side.

# Color System (colors.go)

  - Cyan: user messages, focus
  - Purple: assistant messages, selections
  - Rose: errors
  - Amber: notices and warnings

# Theme (theme.go)

Theme bundles the lipgloss styles for transcript roles, markup spans, the
status bar, dialogs and the context menu. It also picks the chroma style and
formatter for code blocks from the terminal's color profile.

	theme := styles.NewTheme("auto")
	label := theme.RoleLabel(model.RoleUser).Render("User: ")
*/
package styles
