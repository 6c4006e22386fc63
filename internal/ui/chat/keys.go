// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat panel.
type KeyMap struct {
	Submit     key.Binding
	Newline    key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	SelectPrev key.Binding
	SelectNext key.Binding
	NextBlock  key.Binding
	Deselect   key.Binding
	Menu       key.Binding
	Settings   key.Binding
	Clear      key.Binding
	Refresh    key.Binding
	Help       key.Binding
	Quit       key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("Alt+Enter", "newline"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
		SelectPrev: key.NewBinding(
			key.WithKeys("alt+up"),
			key.WithHelp("Alt+Up", "select previous message"),
		),
		SelectNext: key.NewBinding(
			key.WithKeys("alt+down"),
			key.WithHelp("Alt+Down", "select next message"),
		),
		NextBlock: key.NewBinding(
			key.WithKeys("alt+right"),
			key.WithHelp("Alt+Right", "next code block"),
		),
		Deselect: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "clear selection"),
		),
		Menu: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("Ctrl+O", "actions menu"),
		),
		Settings: key.NewBinding(
			key.WithKeys("f2"),
			key.WithHelp("F2", "settings"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("Ctrl+L", "clear conversation"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("Ctrl+R", "refresh models"),
		),
		Help: key.NewBinding(
			key.WithKeys("f1"),
			key.WithHelp("F1", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("Ctrl+C", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Menu, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Newline, k.PageUp, k.PageDown},
		{k.SelectPrev, k.SelectNext, k.NextBlock, k.Deselect},
		{k.Menu, k.Settings, k.Clear, k.Refresh, k.Help, k.Quit},
	}
}
