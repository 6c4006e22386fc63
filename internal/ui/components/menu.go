// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aichat-tui/internal/ui/styles"
)

// =============================================================================
// CONTEXT MENU
// =============================================================================

// MenuItem is one entry of a Menu. A nil Enabled means always enabled.
type MenuItem struct {
	Label   string
	Enabled func() bool
	Action  func() tea.Cmd
}

func (i MenuItem) enabled() bool {
	return i.Enabled == nil || i.Enabled()
}

// Menu is a vertical list of actions shown as an overlay.
type Menu struct {
	items    []MenuItem
	selected int
	visible  bool
	theme    *styles.Theme
}

// NewMenu creates an empty, hidden menu.
func NewMenu(theme *styles.Theme) *Menu {
	return &Menu{theme: theme}
}

// AppendItem adds an item at the bottom of the menu.
func (m *Menu) AppendItem(item MenuItem) {
	m.items = append(m.items, item)
}

// Items returns the menu entries.
func (m *Menu) Items() []MenuItem {
	return m.items
}

// Show opens the menu with the cursor on the first enabled item.
func (m *Menu) Show() {
	m.visible = true
	m.selected = -1
	m.move(1)
}

// Hide closes the menu.
func (m *Menu) Hide() {
	m.visible = false
}

// Visible reports whether the menu is open.
func (m *Menu) Visible() bool {
	return m.visible
}

// Selected returns the index under the cursor, or -1 when nothing is enabled.
func (m *Menu) Selected() int {
	return m.selected
}

// Update handles navigation keys while the menu is open.
func (m *Menu) Update(msg tea.Msg) (*Menu, tea.Cmd) {
	if !m.visible {
		return m, nil
	}
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "esc", "ctrl+o", "q":
		m.Hide()
	case "up", "k", "shift+tab":
		m.move(-1)
	case "down", "j", "tab":
		m.move(1)
	case "enter", " ":
		if m.selected < 0 || m.selected >= len(m.items) {
			return m, nil
		}
		item := m.items[m.selected]
		if !item.enabled() {
			return m, nil
		}
		m.Hide()
		if item.Action != nil {
			return m, item.Action()
		}
	}
	return m, nil
}

// move steps the cursor by dir, skipping disabled items and wrapping.
func (m *Menu) move(dir int) {
	n := len(m.items)
	if n == 0 {
		m.selected = -1
		return
	}
	start := m.selected
	for i := 0; i < n; i++ {
		next := ((start+dir*(i+1))%n + n) % n
		if m.items[next].enabled() {
			m.selected = next
			return
		}
	}
	m.selected = -1
}

// View renders the menu, or "" when hidden.
func (m *Menu) View() string {
	if !m.visible {
		return ""
	}

	lines := make([]string, 0, len(m.items))
	for i, item := range m.items {
		var style lipgloss.Style
		switch {
		case !item.enabled():
			style = m.theme.MenuDisabled
		case i == m.selected:
			style = m.theme.MenuSelected
		default:
			style = m.theme.MenuItem
		}
		lines = append(lines, style.Render(item.Label))
	}
	return m.theme.Dialog.Padding(0, 1).Render(strings.Join(lines, "\n"))
}
