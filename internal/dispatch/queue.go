// Package dispatch runs all session work on a single goroutine.
//
// Transport readers, timers and UI commands never touch session state
// directly; they Post closures here and Queue.Run executes them in order.
package dispatch

import (
	"context"
	"sync"
	"time"
)

// Poster accepts work for serialized execution.
type Poster interface {
	Post(fn func())
}

// Queue is a FIFO of closures drained by Run.
type Queue struct {
	jobs     chan func()
	done     chan struct{}
	stopOnce sync.Once
}

// NewQueue creates a queue buffering up to size pending jobs.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 256
	}
	return &Queue{
		jobs: make(chan func(), size),
		done: make(chan struct{}),
	}
}

// Post enqueues fn. It blocks while the buffer is full and drops fn once
// the queue has stopped. Jobs running on the queue must not Post back to it
// and wait, or they will deadlock on a full buffer.
func (q *Queue) Post(fn func()) {
	select {
	case <-q.done:
		return
	default:
	}
	select {
	case q.jobs <- fn:
	case <-q.done:
	}
}

// Run executes jobs until ctx is cancelled or Stop is called.
func (q *Queue) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			q.Stop()
			return ctx.Err()
		case <-q.done:
			return nil
		case fn := <-q.jobs:
			fn()
		}
	}
}

// Stop makes Run return and turns further Posts into no-ops.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.done) })
}

// Done is closed once the queue has stopped.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// Immediate runs posted work synchronously on the caller's goroutine.
// Useful where the caller already guarantees serialization, e.g. tests.
type Immediate struct{}

func (Immediate) Post(fn func()) { fn() }

// Timer is a pending scheduled call.
type Timer interface {
	// Stop prevents the call from firing. It reports false if it already fired.
	Stop() bool
}

// Scheduler arranges for fn to run after d.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// QueueScheduler fires timers on a Poster, so timer callbacks are serialized
// with everything else. A callback may still run after Stop if it was already
// posted; callers guard against that with their own generation checks.
type QueueScheduler struct {
	Poster Poster
}

func (s QueueScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	p := s.Poster
	return time.AfterFunc(d, func() { p.Post(fn) })
}
