// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "fmt"

// Kind discriminates Event variants.
type Kind int

const (
	KindChunk Kind = iota
	KindClearPlaceholder
	KindEnd
	KindError
	KindModelsResult
	KindModelsError
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindClearPlaceholder:
		return "clear_placeholder"
	case KindEnd:
		return "end"
	case KindError:
		return "error"
	case KindModelsResult:
		return "models_result"
	case KindModelsError:
		return "models_error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one message from a worker. SessionID ties chat events to the
// request that produced them; model-list events leave it empty.
type Event struct {
	Kind      Kind
	SessionID string

	// Text is the chunk for KindChunk and the full reply for KindEnd.
	Text string
	// Message is the failure text for KindError and KindModelsError.
	Message string
	// Models is the sorted list for KindModelsResult.
	Models []string
}

// Chunk creates a streamed text fragment.
func Chunk(sessionID, text string) Event {
	return Event{Kind: KindChunk, SessionID: sessionID, Text: text}
}

// ClearPlaceholder signals that real content is about to arrive.
func ClearPlaceholder(sessionID string) Event {
	return Event{Kind: KindClearPlaceholder, SessionID: sessionID}
}

// End carries the concatenation of every chunk of a finished reply.
func End(sessionID, fullText string) Event {
	return Event{Kind: KindEnd, SessionID: sessionID, Text: fullText}
}

// Error reports a failed request.
func Error(sessionID, message string) Event {
	return Event{Kind: KindError, SessionID: sessionID, Message: message}
}

// ModelsResult reports a fetched model list.
func ModelsResult(models []string) Event {
	return Event{Kind: KindModelsResult, Models: models}
}

// ModelsError reports a failed model-list fetch.
func ModelsError(message string) Event {
	return Event{Kind: KindModelsError, Message: message}
}

// IsChat reports whether the event belongs to a chat session.
func (e Event) IsChat() bool {
	return e.Kind <= KindError
}
