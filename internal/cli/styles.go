// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aichat-tui/internal/ui/styles"
)

// init configures the lipgloss color profile from stdout. It respects
// NO_COLOR, FORCE_COLOR and TTY detection.
func init() {
	lipgloss.SetColorProfile(ColorProfile(os.Stdout))
}

// =============================================================================
// SHARED STYLES FOR LINE-MODE OUTPUT
// =============================================================================

var (
	// TitleStyle is used for the welcome banner.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// PromptStyle renders the REPL prompt.
	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple)

	// ModelStyle highlights model names.
	ModelStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	// DimStyle is used for hints and secondary text.
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

	// ErrorStyle is used for error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	// WarningStyle is used for notices.
	WarningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)
)
