// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the full-screen chat panel.

The panel is a Bubble Tea model around a controller.Controller. Bubble Tea's
Update loop is the rendering goroutine: a tick every pump interval calls
Controller.Pump, which applies the events pushed by the API workers to the
transcript. The transcript is re-rendered only after it reports a change.

# Layout

	header      model name
	viewport    transcript (roles, bold, italic, highlighted code)
	input       multi-line textarea (Enter sends, Alt+Enter inserts a newline)
	status bar  state, spinner, notices, key hints

# Overlays

Only one overlay is open at a time: the context menu (Ctrl+O), the settings
dialog (F2), help (F1), the clear confirmation (Ctrl+L) and the
configuration-missing dialog.

# Message selection

Alt+Up and Alt+Down select a message. The copy actions of the context menu
act on the selected message, or on the newest one when nothing is selected.
Alt+Right cycles through the code blocks of the selected message.
*/
package chat
