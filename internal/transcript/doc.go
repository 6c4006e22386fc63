// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transcript holds the rendered chat transcript.
//
// A Document is a rune buffer plus message metadata and markup spans. Every
// message is laid out as an optional blank-line separator, a role label and
// the message content. At most one message is active at a time; the active
// message always ends at the end of the buffer and is the only one that grows.
//
// # Key Types
//
//   - Document: buffer, messages, spans, active message, subscribers
//   - Message: id, role and the offsets of one rendered message
//   - Span: a markup tag over a range of message content
//   - Change: notification sent to subscribers after each mutation
//
// # Lifecycle of a streamed reply
//
//	id := doc.NewID(model.RoleAssistant)
//	doc.StartMessage(id, model.RoleAssistant, transcript.Placeholder)
//	doc.ClearPlaceholder()
//	doc.AppendToActive("Hel")
//	doc.AppendToActive("lo")
//	doc.Finalize(id) // markup applied here
//
// Offsets are rune offsets. A Document is not safe for concurrent use; it is
// owned by the rendering goroutine.
package transcript
