// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Role: sender of a message (user, assistant, system, error)
//   - Message: one history entry as sent to the API
//   - Conversation: ordered history with snapshot support for workers
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.Append(model.NewUserMessage("Hello"))
//	history := conv.Snapshot() // safe to hand to a worker goroutine
//
// A Conversation is owned by the rendering goroutine. Workers only ever see
// snapshots.
package model
