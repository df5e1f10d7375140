package dispatch

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func startQueue(t *testing.T) *Queue {
	t.Helper()
	q := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return q
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queue")
	}
}

func TestQueue_RunsTasksInPostingOrder(t *testing.T) {
	q := startQueue(t)

	var got []int
	done := make(chan struct{})
	for i := 0; i < 100; i++ {
		i := i
		q.Post(func() { got = append(got, i) })
	}
	q.Post(func() { close(done) })
	waitFor(t, done)

	if len(got) != 100 {
		t.Fatalf("ran %d tasks, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran as %d; order not preserved", i, v)
		}
	}
}

func TestQueue_TasksDoNotOverlap(t *testing.T) {
	q := startQueue(t)

	var running int32
	var overlapped atomic.Bool
	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		q.Post(func() {
			if atomic.AddInt32(&running, 1) != 1 {
				overlapped.Store(true)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
		})
	}
	q.Post(func() { close(done) })
	waitFor(t, done)

	if overlapped.Load() {
		t.Fatal("tasks overlapped; queue must run one at a time")
	}
}

func TestQueue_RecoversFromPanickingTask(t *testing.T) {
	q := startQueue(t)

	done := make(chan struct{})
	q.Post(func() { panic("boom") })
	q.Post(func() { close(done) })
	waitFor(t, done)
}

func TestQueue_PostAfterStopFails(t *testing.T) {
	q := New(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Run(ctx); err == nil {
		t.Fatal("Run returned nil error after cancel")
	}
	if q.Post(func() {}) {
		t.Fatal("Post returned true on a stopped queue")
	}
	if q.Post(nil) {
		t.Fatal("Post(nil) returned true")
	}
}

func TestQueue_AfterPostsOnQueue(t *testing.T) {
	q := startQueue(t)

	done := make(chan struct{})
	start := time.Now()
	q.After(20*time.Millisecond, func() { close(done) })
	waitFor(t, done)
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("After fired after %v, want >= 20ms", elapsed)
	}
}

func TestQueue_AfterStopCancels(t *testing.T) {
	q := startQueue(t)

	var fired atomic.Bool
	timer := q.After(30*time.Millisecond, func() { fired.Store(true) })
	if !timer.Stop() {
		t.Fatal("Stop returned false for a pending timer")
	}
	time.Sleep(60 * time.Millisecond)
	if fired.Load() {
		t.Fatal("stopped timer still fired")
	}
}

func TestQueue_EveryTicksUntilStopped(t *testing.T) {
	q := startQueue(t)

	var ticks atomic.Int32
	stop := q.Every(5*time.Millisecond, func() { ticks.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for ticks.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d ticks before deadline", ticks.Load())
		}
		time.Sleep(2 * time.Millisecond)
	}
	stop()
	stop()

	time.Sleep(20 * time.Millisecond)
	after := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if ticks.Load() > after+1 {
		t.Fatalf("ticks kept arriving after stop: %d -> %d", after, ticks.Load())
	}
}
