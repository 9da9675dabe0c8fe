package conn

import (
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/naveenspark/parley/internal/dispatch"
	"github.com/naveenspark/parley/pkg/domain"
)

// Options configures a Manager.
type Options struct {
	Dialer    Dialer
	Poster    dispatch.Poster
	Scheduler dispatch.Scheduler
	Policy    Policy
	Logger    *slog.Logger
	// OnStatus is called after every status transition.
	OnStatus func(domain.Status)
	// OnFrame receives every inbound frame from the current transport.
	OnFrame func(frame []byte)
}

// Manager drives a Machine against a real Dialer and Scheduler.
//
// Every method, and every callback it makes, runs on the goroutine that
// drains Options.Poster. Transport notifications are posted there too.
type Manager struct {
	dialer   Dialer
	poster   dispatch.Poster
	sched    dispatch.Scheduler
	logger   *slog.Logger
	onStatus func(domain.Status)
	onFrame  func([]byte)

	machine  Machine
	endpoint string

	transport Transport
	// gen identifies the live transport. Notifications carrying an older
	// value come from a handle that was replaced or closed on purpose.
	gen uint64

	timer    dispatch.Timer
	timerGen uint64
}

// NewManager creates a disconnected Manager. A zero Policy means DefaultPolicy.
func NewManager(opts Options) *Manager {
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OnStatus == nil {
		opts.OnStatus = func(domain.Status) {}
	}
	if opts.OnFrame == nil {
		opts.OnFrame = func([]byte) {}
	}
	return &Manager{
		dialer:   opts.Dialer,
		poster:   opts.Poster,
		sched:    opts.Scheduler,
		logger:   opts.Logger,
		onStatus: opts.OnStatus,
		onFrame:  opts.OnFrame,
		machine:  NewMachine(opts.Policy),
	}
}

// Connect dials endpoint with user_id added to its query. Any live
// transport is replaced and the reconnect budget starts over.
func (m *Manager) Connect(endpoint string, userID int) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("conn.Connect: %w", err)
	}
	q := u.Query()
	q.Set("user_id", strconv.Itoa(userID))
	u.RawQuery = q.Encode()

	m.endpoint = u.String()
	m.apply(InputConnect)
	return nil
}

// Disconnect closes the transport and cancels any pending reconnect.
// No reconnect is scheduled until the next Connect.
func (m *Manager) Disconnect() {
	m.apply(InputDisconnect)
}

// Send encodes ev and writes it to the transport. It fails with
// ErrNotConnected unless the status is connected.
func (m *Manager) Send(ev domain.Outbound) error {
	if m.machine.Status != domain.StatusConnected || m.transport == nil {
		return fmt.Errorf("conn.Send %s: %w", ev.EventType(), ErrNotConnected)
	}
	frame, err := domain.EncodeOutbound(ev)
	if err != nil {
		return fmt.Errorf("conn.Send: %w", err)
	}
	if err := m.transport.Send(frame); err != nil {
		return fmt.Errorf("conn.Send %s: %w", ev.EventType(), err)
	}
	return nil
}

// Status returns the current connection status.
func (m *Manager) Status() domain.Status { return m.machine.Status }

// Attempts returns the number of reconnects used since the last open or Connect.
func (m *Manager) Attempts() int { return m.machine.Attempts }

func (m *Manager) apply(in Input) {
	prev := m.machine
	next, effects := m.machine.Step(in)
	m.machine = next
	if in == InputClosed && prev.Status != domain.StatusDisconnected && !next.Waiting {
		m.logger.Warn("reconnect attempts exhausted", "attempts", next.Attempts)
	}
	for _, fx := range effects {
		m.run(fx)
	}
}

func (m *Manager) run(fx Effect) {
	switch fx.Kind {
	case EffectDial:
		m.gen++
		m.logger.Info("dialing", "endpoint", m.endpoint, "attempt", m.machine.Attempts)
		m.transport = m.dialer.Dial(m.endpoint, transportEvents{m: m, gen: m.gen})

	case EffectCloseTransport:
		m.gen++
		if t := m.transport; t != nil {
			m.transport = nil
			if err := t.Close(); err != nil {
				m.logger.Debug("close transport", "error", err)
			}
		}

	case EffectScheduleReconnect:
		m.timerGen++
		gen := m.timerGen
		m.logger.Info("reconnect scheduled",
			"attempt", m.machine.Attempts,
			"max_attempts", m.machine.Policy.MaxAttempts,
			"delay", fx.Delay)
		m.timer = m.sched.AfterFunc(fx.Delay, func() {
			if gen != m.timerGen {
				return
			}
			m.timer = nil
			m.apply(InputReconnectFired)
		})

	case EffectCancelReconnect:
		m.timerGen++
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
		}

	case EffectReportStatus:
		m.logger.Info("connection status", "status", fx.Status.String())
		m.onStatus(fx.Status)
	}
}

// post runs fn on the dispatch goroutine if gen still names the live transport.
func (m *Manager) post(gen uint64, fn func()) {
	m.poster.Post(func() {
		if gen != m.gen {
			m.logger.Debug("ignoring notification from stale transport")
			return
		}
		fn()
	})
}

type transportEvents struct {
	m   *Manager
	gen uint64
}

func (e transportEvents) Opened() {
	e.m.post(e.gen, func() { e.m.apply(InputOpened) })
}

func (e transportEvents) Message(frame []byte) {
	e.m.post(e.gen, func() { e.m.onFrame(frame) })
}

func (e transportEvents) Errored(err error) {
	e.m.post(e.gen, func() {
		e.m.logger.Warn("transport error", "error", err)
		e.m.apply(InputErrored)
	})
}

func (e transportEvents) Closed() {
	e.m.post(e.gen, func() {
		e.m.gen++
		e.m.transport = nil
		e.m.apply(InputClosed)
	})
}
