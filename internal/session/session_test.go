// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/aichat-tui/internal/model"
	"github.com/jeranaias/aichat-tui/internal/stream"
	"github.com/jeranaias/aichat-tui/internal/transcript"
)

func newDocWithUser(t *testing.T) *transcript.Document {
	t.Helper()
	doc := transcript.New(nil)
	_, err := doc.AppendMessage(doc.NewID(model.RoleUser), model.RoleUser, "Hi")
	require.NoError(t, err)
	return doc
}

func apply(t *testing.T, s *Session, ev stream.Event) Result {
	t.Helper()
	res, err := s.Apply(ev)
	require.NoError(t, err)
	return res
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestSession_HelloScenario(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)
	assert.Equal(t, StateSent, s.State())
	assert.Equal(t, "User: Hi\n\nAssistant: ...", doc.Text())

	apply(t, s, stream.ClearPlaceholder(s.ID()))
	apply(t, s, stream.Chunk(s.ID(), "Hel"))
	assert.Equal(t, StateStreaming, s.State())
	apply(t, s, stream.Chunk(s.ID(), "lo"))
	res := apply(t, s, stream.End(s.ID(), "Hello"))

	assert.Equal(t, StateFinalized, res.State)
	assert.True(t, res.HasReply)
	assert.Equal(t, "Hello", res.Reply)
	assert.Equal(t, "User: Hi\n\nAssistant: Hello", doc.Text())
	assert.True(t, s.Done())
	assert.Equal(t, 2, s.Stats().Chunks)
}

func TestSession_PlaceholderNeverVisibleAfterChunk(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	// No explicit clear event: the first chunk clears it.
	apply(t, s, stream.Chunk(s.ID(), "x"))
	assert.NotContains(t, doc.Content(s.MessageID()), transcript.Placeholder)

	// A late duplicate clear is a no-op.
	apply(t, s, stream.ClearPlaceholder(s.ID()))
	assert.Equal(t, "x", doc.Content(s.MessageID()))
}

func TestSession_EmptyReplyClearsPlaceholder(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	res := apply(t, s, stream.End(s.ID(), ""))
	assert.True(t, res.HasReply)
	assert.Equal(t, "User: Hi\n\nAssistant: ", doc.Text())
}

func TestSession_MarkupAppliedAtEnd(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	apply(t, s, stream.Chunk(s.ID(), "**bo"))
	assert.Equal(t, "**bo", doc.Content(s.MessageID()), "no markup while streaming")
	apply(t, s, stream.Chunk(s.ID(), "ld**"))
	apply(t, s, stream.End(s.ID(), "**bold**"))
	assert.Equal(t, "bold", doc.Content(s.MessageID()))
}

// =============================================================================
// ERRORS
// =============================================================================

func TestSession_TimeoutBeforeFirstChunk(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	res := apply(t, s, stream.Error(s.ID(), "Request timed out."))
	assert.Equal(t, StateErrored, res.State)
	assert.False(t, res.HasReply)
	assert.Equal(t, "User: Hi\n\nError: Assistant Error: Request timed out.", doc.Text())

	_, ok := doc.Message(s.MessageID())
	assert.False(t, ok, "placeholder removed")
	_, active := doc.Active()
	assert.False(t, active)
}

func TestSession_ErrorKeepsPartialContent(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	apply(t, s, stream.Chunk(s.ID(), "partial"))
	apply(t, s, stream.Error(s.ID(), "API Error: overloaded"))

	assert.Equal(t, "partial", doc.Content(s.MessageID()))
	assert.Contains(t, doc.Text(), "Error: Assistant Error: API Error: overloaded")
	require.NoError(t, doc.Validate())
}

func TestSession_ErrorAfterClearedPlaceholderRemovesMessage(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	apply(t, s, stream.ClearPlaceholder(s.ID()))
	apply(t, s, stream.Error(s.ID(), "Request timed out."))

	assert.Equal(t, "User: Hi\n\nError: Assistant Error: Request timed out.", doc.Text())
	assert.Len(t, doc.Messages(), 2)
	_, ok := doc.Message(s.MessageID())
	assert.False(t, ok)
	require.NoError(t, doc.Validate())
}

func TestSession_ErrorKeepsEllipsisReply(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	apply(t, s, stream.Chunk(s.ID(), "..."))
	apply(t, s, stream.Error(s.ID(), "connection reset"))

	assert.Equal(t, "User: Hi\n\nAssistant: ...\n\nError: Assistant Error: connection reset", doc.Text())
	assert.Len(t, doc.Messages(), 3)
	_, active := doc.Active()
	assert.False(t, active)
}

// =============================================================================
// STALE EVENTS
// =============================================================================

func TestSession_StaleEventsIgnored(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	_, err = s.Apply(stream.Chunk("other-session", "junk"))
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, StateSent, s.State())

	apply(t, s, stream.End(s.ID(), ""))
	before := doc.Text()
	_, err = s.Apply(stream.Chunk(s.ID(), "late"))
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, before, doc.Text())
}

func TestSession_Abandon(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	doc.Clear()
	s.Abandon()
	_, err = s.Apply(stream.Chunk(s.ID(), "x"))
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, 0, doc.Len())
}

func TestSession_UnexpectedEvent(t *testing.T) {
	doc := newDocWithUser(t)
	s, err := Begin(doc, nil)
	require.NoError(t, err)

	ev := stream.ModelsResult([]string{"a"})
	ev.SessionID = s.ID()
	_, err = s.Apply(ev)
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}

func TestBegin_RejectedWhileActive(t *testing.T) {
	doc := newDocWithUser(t)
	_, err := Begin(doc, nil)
	require.NoError(t, err)
	_, err = Begin(doc, nil)
	assert.ErrorIs(t, err, transcript.ErrActiveMessage)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.True(t, StateErrored.IsTerminal())
	assert.False(t, StateSent.IsTerminal())
}
