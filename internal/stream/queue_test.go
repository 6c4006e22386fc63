// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestQueue_DrainEmpty(t *testing.T) {
	q := NewQueue()
	assert.Empty(t, q.DrainAll())
	assert.Equal(t, 0, q.Len())
}

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue()
	q.Push(ClearPlaceholder("s1"))
	q.Push(Chunk("s1", "Hel"))
	q.Push(Chunk("s1", "lo"))
	q.Push(End("s1", "Hello"))

	evs := q.DrainAll()
	require.Len(t, evs, 4)
	assert.Equal(t, KindClearPlaceholder, evs[0].Kind)
	assert.Equal(t, "Hel", evs[1].Text)
	assert.Equal(t, "lo", evs[2].Text)
	assert.Equal(t, KindEnd, evs[3].Kind)
	assert.Empty(t, q.DrainAll(), "drain empties the queue")
}

func TestQueue_ReadySignalCoalesces(t *testing.T) {
	q := NewQueue()
	q.Push(ModelsResult([]string{"a"}))
	q.Push(ModelsError("x"))

	select {
	case <-q.Ready():
	default:
		t.Fatal("expected a ready signal")
	}
	select {
	case <-q.Ready():
		t.Fatal("pushes should coalesce into one signal")
	default:
	}
}

func TestQueue_ConcurrentProducersPreservePerWorkerOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	q := NewQueue()
	const workers, perWorker = 8, 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("w%d", w)
			for i := 0; i < perWorker; i++ {
				q.Push(Chunk(id, fmt.Sprint(i)))
			}
		}(w)
	}

	var got []Event
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
		}
		got = append(got, q.DrainAll()...)
	}
	got = append(got, q.DrainAll()...)

	require.Len(t, got, workers*perWorker)
	next := map[string]int{}
	for _, ev := range got {
		assert.Equal(t, fmt.Sprint(next[ev.SessionID]), ev.Text)
		next[ev.SessionID]++
	}
}

func TestEvent_IsChat(t *testing.T) {
	assert.True(t, Error("s", "x").IsChat())
	assert.False(t, ModelsResult(nil).IsChat())
	assert.Equal(t, "models_error", KindModelsError.String())
}
