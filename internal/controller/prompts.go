// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import "fmt"

// Source labels for Explain.
const (
	SourceEditor  = "editor"
	SourceConsole = "console"
)

// SystemPrompt is sent ahead of the history on every request.
func SystemPrompt(language string) string {
	return fmt.Sprintf("You are a helpful coding assistant. Please respond in %s. Reply in short.", language)
}

// ExplainPrompt wraps a selection in an explain request.
func ExplainPrompt(source, language, selection string) string {
	return fmt.Sprintf("Explain the following %s selection (please respond in %s):\n\n```\n%s\n```",
		source, language, selection)
}
