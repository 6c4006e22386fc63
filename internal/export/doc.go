// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes the chat transcript to Markdown or JSON files.
//
// Usage:
//
//	conv := export.FromDocument(ctrl.Document(), ctrl.SelectedModel())
//	path, err := export.ExportMarkdown(conv, export.DefaultOptions())
package export
