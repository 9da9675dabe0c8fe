package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the transport status of a session.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Session identifies one client run for one user.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    int       `json:"user_id"`
	StartedAt time.Time `json:"started_at"`
}
