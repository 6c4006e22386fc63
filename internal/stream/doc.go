// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream carries worker results to the rendering goroutine.
//
// Network workers never touch the transcript. They push Events onto a Queue
// and the rendering goroutine drains it on a fixed tick.
//
// # Key Types
//
//   - Event: tagged union of chunk, placeholder-clear, end, error and
//     model-list results
//   - Queue: unbounded multi-producer, single-consumer FIFO
//
// # Usage
//
//	q := stream.NewQueue()
//	go func() { q.Push(stream.Chunk(sessionID, "Hel")) }()
//	for _, ev := range q.DrainAll() {
//	    // dispatch on ev.Kind
//	}
package stream
