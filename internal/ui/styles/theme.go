// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/aichat-tui/internal/model"
)

// Theme holds all the styled components for the panel.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Transcript
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	ErrorLabel     lipgloss.Style
	SystemLabel    lipgloss.Style
	Body           lipgloss.Style
	ErrorBody      lipgloss.Style
	Bold           lipgloss.Style
	Italic         lipgloss.Style
	CodeBlock      lipgloss.Style
	Placeholder    lipgloss.Style
	SelectedMarker lipgloss.Style

	// Chrome
	Header      lipgloss.Style
	StatusBar   lipgloss.Style
	StatusModel lipgloss.Style
	StatusBusy  lipgloss.Style
	Notice      lipgloss.Style
	Muted       lipgloss.Style
	Separator   lipgloss.Style

	// Dialogs and menus
	Dialog       lipgloss.Style
	DialogTitle  lipgloss.Style
	FieldLabel   lipgloss.Style
	FieldFocused lipgloss.Style
	MenuItem     lipgloss.Style
	MenuSelected lipgloss.Style
	MenuDisabled lipgloss.Style
	Error        lipgloss.Style
}

// NewTheme creates a theme. name is "auto", "dark" or "light"; "auto"
// asks the terminal for its background.
func NewTheme(name string) *Theme {
	profile := termenv.ColorProfile()

	var isDark bool
	switch name {
	case "dark":
		isDark = true
		lipgloss.SetHasDarkBackground(true)
	case "light":
		isDark = false
		lipgloss.SetHasDarkBackground(false)
	default:
		isDark = termenv.HasDarkBackground()
	}

	t := &Theme{
		IsDark:       isDark,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	// Transcript
	t.UserLabel = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.ErrorLabel = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	t.SystemLabel = lipgloss.NewStyle().Bold(true).Foreground(Amber)
	t.Body = lipgloss.NewStyle().Foreground(TextPrimary)
	t.ErrorBody = lipgloss.NewStyle().Foreground(Rose)
	t.Bold = lipgloss.NewStyle().Bold(true)
	t.Italic = lipgloss.NewStyle().Italic(true)
	t.CodeBlock = lipgloss.NewStyle().
		Background(SurfaceDim).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Overlay).
		PaddingLeft(1)
	t.Placeholder = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)
	t.SelectedMarker = lipgloss.NewStyle().Foreground(Purple).Bold(true)

	// Chrome
	t.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusModel = lipgloss.NewStyle().Foreground(Purple).Bold(true)
	t.StatusBusy = lipgloss.NewStyle().Foreground(Amber)
	t.Notice = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)
	t.Separator = lipgloss.NewStyle().Foreground(Overlay)

	// Dialogs and menus
	t.Dialog = lipgloss.NewStyle().
		Background(SurfaceBright).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(1, 2)
	t.DialogTitle = lipgloss.NewStyle().Bold(true).Foreground(Purple).MarginBottom(1)
	t.FieldLabel = lipgloss.NewStyle().Foreground(TextSecondary).Width(10)
	t.FieldFocused = lipgloss.NewStyle().Foreground(Cyan).Bold(true).Width(10)
	t.MenuItem = lipgloss.NewStyle().Foreground(TextPrimary).Padding(0, 1)
	t.MenuSelected = lipgloss.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true).
		Padding(0, 1)
	t.MenuDisabled = lipgloss.NewStyle().Foreground(TextMuted).Padding(0, 1)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)
}

// RoleLabel returns the label style for a transcript role.
func (t *Theme) RoleLabel(role model.Role) lipgloss.Style {
	switch role {
	case model.RoleUser:
		return t.UserLabel
	case model.RoleAssistant:
		return t.AssistantLabel
	case model.RoleError:
		return t.ErrorLabel
	default:
		return t.SystemLabel
	}
}

// RoleBody returns the body style for a transcript role.
func (t *Theme) RoleBody(role model.Role) lipgloss.Style {
	if role == model.RoleError {
		return t.ErrorBody
	}
	return t.Body
}

// ChromaStyle returns the chroma style name for code blocks.
func (t *Theme) ChromaStyle() string {
	if t.IsDark {
		return "monokai"
	}
	return "github"
}

// ChromaFormatter returns the chroma formatter matching the terminal's color
// profile, or "" when the terminal has no colors.
func (t *Theme) ChromaFormatter() string {
	switch t.ColorProfile {
	case termenv.TrueColor:
		return "terminal16m"
	case termenv.ANSI256:
		return "terminal256"
	case termenv.ANSI:
		return "terminal16"
	default:
		return ""
	}
}
