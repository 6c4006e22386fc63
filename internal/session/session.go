// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/aichat-tui/internal/model"
	"github.com/jeranaias/aichat-tui/internal/stream"
	"github.com/jeranaias/aichat-tui/internal/transcript"
)

// ErrorPrefix starts every error message shown for a failed reply.
const ErrorPrefix = "Assistant Error: "

var (
	// ErrStale is returned for events that no longer belong to this session.
	ErrStale = errors.New("stale event")

	// ErrUnexpectedEvent is returned for events a chat session does not handle.
	ErrUnexpectedEvent = errors.New("unexpected event")
)

// =============================================================================
// STATE
// =============================================================================

// State is the position of a session in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateSent
	StateStreaming
	StateFinalized
	StateErrored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSent:
		return "sent"
	case StateStreaming:
		return "streaming"
	case StateFinalized:
		return "finalized"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further events are accepted.
func (s State) IsTerminal() bool {
	return s == StateFinalized || s == StateErrored
}

// =============================================================================
// SESSION
// =============================================================================

// Session drives one assistant reply in a transcript.
type Session struct {
	id          string
	messageID   transcript.ID
	state       State
	placeholder bool

	doc    *transcript.Document
	logger *zap.Logger

	started    time.Time
	firstChunk time.Duration
	finished   time.Duration
	chunks     int
}

// Result describes what an applied event did.
type Result struct {
	State State
	// Reply is the full text to record in history when HasReply is set.
	Reply    string
	HasReply bool
	// ErrorMessage is the text shown when the session errored.
	ErrorMessage string
}

// Stats summarises a session's timing.
type Stats struct {
	Chunks     int
	FirstChunk time.Duration
	Total      time.Duration
}

// Begin starts a session by adding an active placeholder message to doc.
func Begin(doc *transcript.Document, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	msgID := doc.NewID(model.RoleAssistant)
	if _, err := doc.StartMessage(msgID, model.RoleAssistant, transcript.Placeholder); err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	s := &Session{
		id:          uuid.NewString(),
		messageID:   msgID,
		state:       StateSent,
		placeholder: true,
		doc:         doc,
		started:     time.Now(),
	}
	s.logger = logger.With(zap.String("session_id", s.id), zap.String("message_id", string(msgID)))
	s.logger.Debug("session started")
	return s, nil
}

// ID returns the globally unique session id carried by worker events.
func (s *Session) ID() string { return s.id }

// MessageID returns the transcript id of the reply.
func (s *Session) MessageID() transcript.ID { return s.messageID }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Done reports whether the session reached a terminal state.
func (s *Session) Done() bool { return s.state.IsTerminal() }

// Stats returns timing information collected so far.
func (s *Session) Stats() Stats {
	total := s.finished
	if !s.Done() {
		total = time.Since(s.started)
	}
	return Stats{Chunks: s.chunks, FirstChunk: s.firstChunk, Total: total}
}

// Apply handles one worker event.
func (s *Session) Apply(ev stream.Event) (Result, error) {
	if ev.SessionID != s.id || s.Done() {
		return Result{State: s.state}, fmt.Errorf("%s for session %q: %w", ev.Kind, ev.SessionID, ErrStale)
	}

	switch ev.Kind {
	case stream.KindClearPlaceholder:
		s.clearPlaceholder()

	case stream.KindChunk:
		if s.state == StateSent {
			s.clearPlaceholder()
			s.state = StateStreaming
			s.firstChunk = time.Since(s.started)
		}
		if err := s.doc.AppendToActive(ev.Text); err != nil {
			s.logger.Warn("chunk dropped", zap.Error(err))
			return Result{State: s.state}, nil
		}
		s.chunks++

	case stream.KindEnd:
		return s.finish(ev.Text), nil

	case stream.KindError:
		return s.fail(ev.Message), nil

	default:
		return Result{State: s.state}, fmt.Errorf("%s: %w", ev.Kind, ErrUnexpectedEvent)
	}
	return Result{State: s.state}, nil
}

// Abandon ends the session without touching the transcript. Used when the
// transcript was cleared underneath it.
func (s *Session) Abandon() {
	if s.Done() {
		return
	}
	s.state = StateErrored
	s.finished = time.Since(s.started)
	s.logger.Debug("session abandoned")
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func (s *Session) clearPlaceholder() {
	if !s.placeholder {
		return
	}
	s.placeholder = false
	s.doc.ClearPlaceholder()
}

func (s *Session) finish(fullText string) Result {
	s.clearPlaceholder()
	s.finished = time.Since(s.started)
	s.state = StateFinalized

	if active, ok := s.doc.Active(); !ok || active != s.messageID {
		s.logger.Warn("reply lost: active message missing at end", zap.Error(transcript.ErrInconsistent))
		return Result{State: s.state}
	}
	if err := s.doc.Finalize(s.messageID); err != nil {
		s.logger.Warn("finalize failed", zap.Error(err))
		return Result{State: s.state}
	}
	s.logger.Debug("session finalized",
		zap.Int("chunks", s.chunks),
		zap.Duration("first_chunk", s.firstChunk),
		zap.Duration("total", s.finished))
	return Result{State: s.state, Reply: fullText, HasReply: true}
}

func (s *Session) fail(message string) Result {
	noChunks := s.state == StateSent
	s.finished = time.Since(s.started)
	s.state = StateErrored

	if active, ok := s.doc.Active(); ok && active == s.messageID {
		if noChunks {
			if err := s.doc.RemoveMessage(s.messageID); err != nil {
				s.logger.Warn("remove placeholder failed", zap.Error(err))
			}
		} else if err := s.doc.Deactivate(s.messageID); err != nil {
			s.logger.Warn("deactivate failed", zap.Error(err))
		}
	}

	text := ErrorPrefix + message
	if _, err := s.doc.AppendMessage(s.doc.NewID(model.RoleError), model.RoleError, text); err != nil {
		s.logger.Warn("error message not shown", zap.Error(err))
	}
	s.logger.Info("session errored", zap.String("error", message))
	return Result{State: s.state, ErrorMessage: message}
}
