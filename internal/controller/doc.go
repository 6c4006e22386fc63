// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller drives the chat panel.
//
// A Controller turns user actions (send, explain, refresh models) into
// background workers that talk to the API. Workers never touch the
// transcript: they push events onto a stream.Queue, and the rendering
// goroutine calls Pump to apply them.
//
// # Threading
//
// Every exported method except Wait must be called from the rendering
// goroutine (the Bubble Tea Update loop, or the REPL loop in line mode).
//
// # Usage
//
//	ctrl := controller.New(cfg, controller.WithLogger(logger))
//	defer ctrl.Close()
//
//	if err := ctrl.SendMessage("Hello"); err != nil {
//	    // ErrEmptyMessage, ErrBusy or ErrConfigMissing
//	}
//	// on every tick:
//	ctrl.Pump()
package controller
