// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import "github.com/jeranaias/aichat-tui/internal/session"

// NoticeKind identifies a controller notification.
type NoticeKind int

const (
	// NoticeModelsUpdated: a model list arrived. Models and Selected are set.
	NoticeModelsUpdated NoticeKind = iota
	// NoticeModelsFailed: the model list request failed. Message is set.
	NoticeModelsFailed
	// NoticeSessionStarted: a request was sent.
	NoticeSessionStarted
	// NoticeSessionFinished: a reply was finalized or errored. State is set.
	NoticeSessionFinished
	// NoticeBusy: a send was rejected because a reply is streaming.
	NoticeBusy
	// NoticeSettingsChanged: settings were applied, reloaded or edited on disk.
	NoticeSettingsChanged
	// NoticeCleared: the conversation was cleared.
	NoticeCleared
)

// String returns the kind name.
func (k NoticeKind) String() string {
	switch k {
	case NoticeModelsUpdated:
		return "models_updated"
	case NoticeModelsFailed:
		return "models_failed"
	case NoticeSessionStarted:
		return "session_started"
	case NoticeSessionFinished:
		return "session_finished"
	case NoticeBusy:
		return "busy"
	case NoticeSettingsChanged:
		return "settings_changed"
	case NoticeCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Notice is delivered to subscribers on the rendering goroutine.
type Notice struct {
	Kind     NoticeKind
	Models   []string
	Selected string
	Message  string
	State    session.State
}
