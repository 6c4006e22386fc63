// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/aichat-tui/internal/config"
)

// =============================================================================
// TEA MESSAGES
// =============================================================================

// tickMsg drives Controller.Pump.
type tickMsg time.Time

// explainRequest is the selection given on the command line.
type explainRequest struct {
	selection string
	source    string
}

// configChangedMsg carries a configuration reloaded after an edit on disk.
type configChangedMsg struct {
	cfg *config.Config
}

// copiedMsg reports the result of a clipboard write.
type copiedMsg struct {
	what string
	err  error
}

// exportedMsg reports the result of a transcript export.
type exportedMsg struct {
	path string
	err  error
}

// startMsg runs the startup actions on the rendering goroutine.
type startMsg struct{}

// openOverlayMsg opens an overlay from a menu action.
type openOverlayMsg struct {
	overlay overlay
}

// refreshModelsMsg requests a model list from a menu action.
type refreshModelsMsg struct{}

// NoticeTimeout is how long a notice stays in the status bar.
const NoticeTimeout = 5 * time.Second
