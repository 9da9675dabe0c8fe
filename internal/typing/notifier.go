// Package typing turns input activity into outbound typing signals.
package typing

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/naveenspark/parley/internal/dispatch"
	"github.com/naveenspark/parley/pkg/domain"
)

// DefaultResetDelay is how long after the last keystroke the reset timer fires.
const DefaultResetDelay = 3 * time.Second

// SendFunc delivers an outbound event, normally conn.Manager.Send.
type SendFunc func(domain.Outbound) error

// Options configures a Notifier.
type Options struct {
	Send      SendFunc
	Scheduler dispatch.Scheduler
	// ResetDelay defaults to DefaultResetDelay.
	ResetDelay time.Duration
	// EmitStop makes reset-timer expiry send typing {"stopped": true}.
	// When false the expiry does nothing.
	EmitStop bool
	Logger   *slog.Logger
}

// Notifier emits one typing event per keystroke and keeps a reset timer
// that restarts on every keystroke. Not safe for concurrent use.
type Notifier struct {
	send       SendFunc
	sched      dispatch.Scheduler
	resetDelay time.Duration
	emitStop   bool
	logger     *slog.Logger

	timer dispatch.Timer
	gen   uint64
}

// New creates a Notifier.
func New(opts Options) *Notifier {
	if opts.ResetDelay <= 0 {
		opts.ResetDelay = DefaultResetDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Notifier{
		send:       opts.Send,
		sched:      opts.Scheduler,
		resetDelay: opts.ResetDelay,
		emitStop:   opts.EmitStop,
		logger:     opts.Logger,
	}
}

// Activity sends a typing event immediately and restarts the reset timer.
// The timer restarts even when the send fails.
func (n *Notifier) Activity() error {
	err := n.send(domain.Typing{})
	n.restart()
	if err != nil {
		return fmt.Errorf("typing.Activity: %w", err)
	}
	return nil
}

// Reset cancels the pending reset timer without emitting anything.
func (n *Notifier) Reset() {
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

// Pending reports whether a reset timer is running.
func (n *Notifier) Pending() bool {
	return n.timer != nil
}

func (n *Notifier) restart() {
	n.Reset()
	gen := n.gen
	n.timer = n.sched.AfterFunc(n.resetDelay, func() {
		if gen != n.gen {
			return
		}
		n.timer = nil
		n.expire()
	})
}

func (n *Notifier) expire() {
	if !n.emitStop {
		n.logger.Debug("typing reset timer expired")
		return
	}
	if err := n.send(domain.Typing{Stopped: true}); err != nil {
		n.logger.Warn("stop-typing not sent", "error", err)
	}
}
