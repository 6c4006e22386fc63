// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "testing"

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_Label(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "User: "},
		{RoleAssistant, "Assistant: "},
		{RoleError, "Error: "},
	}
	for _, tc := range tests {
		if got := tc.role.Label(); got != tc.want {
			t.Errorf("%s.Label() = %q, want %q", tc.role, got, tc.want)
		}
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_SnapshotIsIndependent(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("one"))

	snap := conv.Snapshot()
	conv.Append(NewAssistantMessage("two"))
	snap[0].Content = "changed"

	if len(snap) != 1 {
		t.Fatalf("snapshot grew with history: len=%d", len(snap))
	}
	if m, _ := conv.Last(); m.Content != "two" {
		t.Errorf("Last() = %q, want %q", m.Content, "two")
	}
	if conv.Snapshot()[0].Content != "one" {
		t.Error("mutating a snapshot changed the history")
	}
}

func TestConversation_ErrorMessagesDropped(t *testing.T) {
	conv := NewConversation()
	if conv.Append(NewMessage(RoleError, "boom")) {
		t.Error("Append accepted an error-role message")
	}
	if !conv.IsEmpty() {
		t.Errorf("Len() = %d, want 0", conv.Len())
	}
}

func TestConversation_WithSystemPrompt(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("hi"))

	msgs := conv.WithSystemPrompt("be brief")
	if len(msgs) != 2 || msgs[0].Role != RoleSystem || msgs[1].Content != "hi" {
		t.Fatalf("WithSystemPrompt() = %+v", msgs)
	}
	if conv.Len() != 1 {
		t.Error("WithSystemPrompt modified the history")
	}
}

func TestConversation_Clear(t *testing.T) {
	conv := NewConversation()
	conv.Append(NewUserMessage("hi"))
	conv.Clear()
	if _, ok := conv.Last(); ok {
		t.Error("Last() found a message after Clear")
	}
}
