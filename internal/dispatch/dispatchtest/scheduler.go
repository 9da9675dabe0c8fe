// Package dispatchtest provides a manually driven Scheduler for tests.
package dispatchtest

import (
	"sync"
	"time"

	"github.com/naveenspark/parley/internal/dispatch"
)

// Scheduler records every AfterFunc call and fires only when told to.
type Scheduler struct {
	mu     sync.Mutex
	timers []*Timer
}

var _ dispatch.Scheduler = (*Scheduler)(nil)

// Timer is a recorded, not yet fired call.
type Timer struct {
	Delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

// Stop implements dispatch.Timer.
func (t *Timer) Stop() bool {
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Stopped reports whether the timer was cancelled before firing.
func (t *Timer) Stopped() bool { return t.stopped }

// AfterFunc implements dispatch.Scheduler.
func (s *Scheduler) AfterFunc(d time.Duration, fn func()) dispatch.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Timer{Delay: d, fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Delays returns the delay of every timer ever scheduled, in order.
func (s *Scheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.timers))
	for i, t := range s.timers {
		out[i] = t.Delay
	}
	return out
}

// Pending returns timers that have neither fired nor been stopped.
func (s *Scheduler) Pending() []*Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Timer
	for _, t := range s.timers {
		if !t.fired && !t.stopped {
			out = append(out, t)
		}
	}
	return out
}

// Last returns the most recently scheduled timer, or nil.
func (s *Scheduler) Last() *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.timers) == 0 {
		return nil
	}
	return s.timers[len(s.timers)-1]
}

// FireNext fires the oldest pending timer on the calling goroutine.
// It reports false when nothing is pending.
func (s *Scheduler) FireNext() bool {
	pending := s.Pending()
	if len(pending) == 0 {
		return false
	}
	s.Fire(pending[0])
	return true
}

// Fire runs t's callback even if it was stopped, mimicking a timer that
// had already been posted when Stop was called.
func (s *Scheduler) Fire(t *Timer) {
	s.mu.Lock()
	t.fired = true
	fn := t.fn
	s.mu.Unlock()
	fn()
}
