// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import "sync"

// Queue is an unbounded FIFO. Push is safe from any goroutine and never
// blocks; DrainAll must only be called by the single consumer.
type Queue struct {
	mu      sync.Mutex
	pending []Event
	ready   chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends ev.
func (q *Queue) Push(ev Event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// DrainAll removes and returns every pending event in arrival order.
// It returns nil when the queue is empty.
func (q *Queue) DrainAll() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Ready receives a value after one or more pushes. Several pushes may
// collapse into a single signal.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}
