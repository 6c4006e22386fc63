// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the chat history sent with every request.
// Error-role messages are never stored here.
type Conversation struct {
	messages []Message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{messages: make([]Message, 0)}
}

// Append adds a message to the history. Error-role messages are dropped.
func (c *Conversation) Append(msg Message) bool {
	if msg.Role == RoleError {
		return false
	}
	c.messages = append(c.messages, msg)
	return true
}

// Snapshot returns an independent copy of the history.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// WithSystemPrompt returns a snapshot with a system message prepended.
func (c *Conversation) WithSystemPrompt(prompt string) []Message {
	out := make([]Message, 0, len(c.messages)+1)
	out = append(out, NewSystemMessage(prompt))
	return append(out, c.messages...)
}

// Len returns the number of stored messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// IsEmpty returns true if there is no history.
func (c *Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// Last returns the most recent message.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Clear removes all history.
func (c *Conversation) Clear() {
	c.messages = c.messages[:0]
}
