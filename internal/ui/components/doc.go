// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the aichat panel.

Each component takes a *styles.Theme and renders with Lip Gloss.

  - Highlight (codeblock.go) - Chroma syntax highlighting for code spans.
  - Menu (menu.go) - Context menu with dynamically enabled items.
  - StatusBar (statusbar.go) - Bottom bar with model, state and notices.

Menu follows the Bubble Tea Update/View shape:

	menu := components.NewMenu(theme)
	menu.AppendItem(components.MenuItem{Label: "Clear", Action: clearCmd})
	menu.Show()
	menu, cmd = menu.Update(msg)
*/
package components
