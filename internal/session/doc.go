// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session tracks the lifecycle of one streamed reply.
//
// A Session owns the placeholder message it creates in the transcript and
// applies the worker's events to it:
//
//	Idle -> Sent -> Streaming -> Finalized
//	          \          \
//	           +----------+-> Errored
//
// Sent means the placeholder is showing and nothing has arrived yet. The
// first chunk clears the placeholder and moves to Streaming. End finalizes
// the reply and yields its text for the conversation history; Error removes
// an untouched placeholder and adds an error message instead.
//
// Every event carries the session id it was produced for. Events for another
// id, or arriving after a terminal state, are rejected with ErrStale and
// leave the transcript untouched.
//
// # Usage
//
//	s, err := session.Begin(doc, logger)
//	go worker(s.ID())
//	...
//	res, err := s.Apply(ev) // on the rendering goroutine
//	if res.HasReply {
//	    history.Append(model.NewAssistantMessage(res.Reply))
//	}
package session
