// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/aichat-tui/internal/ui/styles"
	"github.com/jeranaias/aichat-tui/internal/util"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents what the panel is doing.
type Status int

const (
	StatusReady Status = iota
	StatusSending
	StatusStreaming
	StatusLoadingModels
	StatusNotConfigured
)

// String returns the display string for the status
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusSending:
		return "Sending..."
	case StatusStreaming:
		return "Streaming..."
	case StatusLoadingModels:
		return "Loading models..."
	case StatusNotConfigured:
		return "Not configured"
	default:
		return "Unknown"
	}
}

// StatusBar is the bottom line of the panel.
type StatusBar struct {
	Model   string
	Status  Status
	Spinner string
	Notice  string
	Hint    string
	Width   int
	theme   *styles.Theme
}

// NewStatusBar creates a new StatusBar component
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Status: StatusReady,
		Hint:   "ctrl+o menu  f1 help",
		Width:  80,
		theme:  theme,
	}
}

// SetWidth updates the status bar width
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetStatus updates the current status
func (s *StatusBar) SetStatus(status Status) {
	s.Status = status
}

// SetNotice shows a transient message; "" clears it.
func (s *StatusBar) SetNotice(msg string) {
	s.Notice = util.FirstLine(msg)
}

// View renders the status bar. The notice replaces the hint and is
// truncated first when space runs out.
func (s *StatusBar) View() string {
	modelName := s.Model
	if modelName == "" {
		modelName = "no model"
	}

	left := s.theme.StatusModel.Render(modelName)

	status := s.Status.String()
	if s.Spinner != "" && (s.Status == StatusSending || s.Status == StatusStreaming || s.Status == StatusLoadingModels) {
		status = s.Spinner + " " + status
	}
	switch s.Status {
	case StatusReady:
		status = s.theme.Muted.Render(status)
	default:
		status = s.theme.StatusBusy.Render(status)
	}
	left += "  " + status

	inner := s.Width - s.theme.StatusBar.GetHorizontalFrameSize()
	room := inner - lipgloss.Width(left) - 2
	var right string
	if room > 0 {
		if s.Notice != "" {
			right = s.theme.Notice.Render(util.TruncateWidth(s.Notice, room))
		} else {
			right = s.theme.Muted.Render(util.TruncateWidth(s.Hint, room))
		}
	}

	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	return s.theme.StatusBar.MaxWidth(s.Width).Render(line)
}
