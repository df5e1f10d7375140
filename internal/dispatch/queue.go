// Package dispatch provides the single-goroutine delivery queue that
// serializes every consumer-visible effect: RPC completions, pushed deltas,
// state-transition callbacks and periodic sampling.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Poster accepts work for ordered execution on the delivery queue.
type Poster interface {
	Post(fn func()) bool
}

// Scheduler is a Poster that can also defer work on the queue's clock.
type Scheduler interface {
	Poster
	After(d time.Duration, fn func()) *Timer
}

// Queue is an unbounded FIFO drained by one goroutine. Tasks run to
// completion in posting order; Post never blocks the caller.
type Queue struct {
	mu     sync.Mutex
	tasks  []func()
	wake   chan struct{}
	closed bool
	log    zerolog.Logger
}

var _ Scheduler = (*Queue)(nil)

// New returns an idle queue. Nothing executes until Run is called.
func New(log zerolog.Logger) *Queue {
	return &Queue{
		wake: make(chan struct{}, 1),
		log:  log.With().Str("component", "dispatch").Logger(),
	}
}

// Post appends fn to the queue. It returns false once the queue has stopped.
func (q *Queue) Post(fn func()) bool {
	if q == nil || fn == nil {
		return false
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.tasks = append(q.tasks, fn)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// Run drains the queue until ctx is cancelled. Tasks already queued when the
// context ends are dropped.
func (q *Queue) Run(ctx context.Context) error {
	defer func() {
		q.mu.Lock()
		q.closed = true
		q.tasks = nil
		q.mu.Unlock()
	}()

	for {
		for {
			fn, ok := q.next()
			if !ok {
				break
			}
			q.exec(fn)
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}
	}
}

func (q *Queue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tasks) == 0 {
		return nil, false
	}
	fn := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	return fn, true
}

func (q *Queue) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Msg("delivery task panicked")
		}
	}()
	fn()
}

// Pending reports how many tasks are waiting to run.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Timer is a cancellable deferred task.
type Timer struct {
	t *time.Timer
}

// Stop prevents the task from being posted. It reports whether the call
// stopped the timer before it fired.
func (t *Timer) Stop() bool {
	if t == nil || t.t == nil {
		return false
	}
	return t.t.Stop()
}

// After posts fn onto the queue once d has elapsed.
func (q *Queue) After(d time.Duration, fn func()) *Timer {
	return &Timer{t: time.AfterFunc(d, func() { q.Post(fn) })}
}

// Every posts fn onto the queue at a fixed period until stop is called or
// the queue shuts down. A tick is skipped while the previous one is still
// waiting to run, so a slow consumer never accumulates a backlog.
func (q *Queue) Every(d time.Duration, fn func()) (stop func()) {
	done := make(chan struct{})
	var once sync.Once
	var inflight sync.Mutex
	busy := false

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				inflight.Lock()
				if busy {
					inflight.Unlock()
					continue
				}
				busy = true
				inflight.Unlock()
				ok := q.Post(func() {
					defer func() {
						inflight.Lock()
						busy = false
						inflight.Unlock()
					}()
					fn()
				})
				if !ok {
					return
				}
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}
