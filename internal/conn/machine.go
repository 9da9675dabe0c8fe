package conn

import (
	"time"

	"github.com/naveenspark/parley/pkg/domain"
)

// Input is something that happened to the connection.
type Input int

const (
	InputConnect Input = iota + 1
	InputReconnectFired
	InputOpened
	InputErrored
	InputClosed
	InputDisconnect
)

var inputNames = map[Input]string{
	InputConnect:        "connect",
	InputReconnectFired: "reconnect_fired",
	InputOpened:         "opened",
	InputErrored:        "errored",
	InputClosed:         "closed",
	InputDisconnect:     "disconnect",
}

func (i Input) String() string {
	if s, ok := inputNames[i]; ok {
		return s
	}
	return "unknown"
}

// EffectKind names an action the Manager performs after a transition.
type EffectKind int

const (
	EffectDial EffectKind = iota + 1
	EffectCloseTransport
	EffectScheduleReconnect
	EffectCancelReconnect
	EffectReportStatus
)

// Effect is one action requested by Step. Delay is set for
// EffectScheduleReconnect, Status for EffectReportStatus.
type Effect struct {
	Kind   EffectKind
	Delay  time.Duration
	Status domain.Status
}

// Policy bounds automatic reconnection.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy yields reconnect delays of 2s, 4s, 8s, 16s and 30s.
var DefaultPolicy = Policy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	MaxDelay:    30 * time.Second,
}

// Backoff returns min(BaseDelay * 2^attempt, MaxDelay).
func (p Policy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Machine is the connection lifecycle as a plain value. Step never
// performs I/O; it returns the next state and the effects to run.
type Machine struct {
	Status   domain.Status
	Attempts int
	// Waiting is true while a reconnect timer is outstanding.
	Waiting bool
	Policy  Policy
}

// NewMachine returns a disconnected machine using p.
func NewMachine(p Policy) Machine {
	return Machine{Status: domain.StatusDisconnected, Policy: p}
}

// Step applies in and returns the resulting machine and effects, in the
// order they must run.
func (m Machine) Step(in Input) (Machine, []Effect) {
	var fx []Effect

	switch in {
	case InputConnect:
		if m.Waiting {
			m.Waiting = false
			fx = append(fx, Effect{Kind: EffectCancelReconnect})
		}
		if m.Status != domain.StatusDisconnected {
			fx = append(fx, Effect{Kind: EffectCloseTransport})
		}
		m.Attempts = 0
		fx = m.moveTo(domain.StatusConnecting, fx)
		fx = append(fx, Effect{Kind: EffectDial})

	case InputReconnectFired:
		if !m.Waiting || m.Status != domain.StatusDisconnected {
			return m, nil
		}
		m.Waiting = false
		fx = m.moveTo(domain.StatusConnecting, fx)
		fx = append(fx, Effect{Kind: EffectDial})

	case InputOpened:
		if m.Status != domain.StatusConnecting {
			return m, nil
		}
		m.Attempts = 0
		fx = m.moveTo(domain.StatusConnected, fx)

	case InputErrored:
		// Closed always follows; the error itself changes nothing.
		return m, nil

	case InputClosed:
		if m.Status == domain.StatusDisconnected {
			return m, nil
		}
		fx = m.moveTo(domain.StatusDisconnected, fx)
		if m.Attempts < m.Policy.MaxAttempts {
			m.Attempts++
			m.Waiting = true
			fx = append(fx, Effect{Kind: EffectScheduleReconnect, Delay: m.Policy.Backoff(m.Attempts)})
		}

	case InputDisconnect:
		if m.Waiting {
			m.Waiting = false
			fx = append(fx, Effect{Kind: EffectCancelReconnect})
		}
		if m.Status != domain.StatusDisconnected {
			fx = append(fx, Effect{Kind: EffectCloseTransport})
		}
		fx = m.moveTo(domain.StatusDisconnected, fx)
	}

	return m, fx
}

// moveTo sets the status and appends a report when it changed.
func (m *Machine) moveTo(s domain.Status, fx []Effect) []Effect {
	if m.Status == s {
		return fx
	}
	m.Status = s
	return append(fx, Effect{Kind: EffectReportStatus, Status: s})
}
