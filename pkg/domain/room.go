package domain

import (
	"strconv"
	"time"
)

// Room types accepted by the server.
const (
	RoomGroup  = "group"
	RoomDirect = "direct"
)

// Room is a chat room the current user belongs to.
type Room struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	CommunityID int       `json:"community_id,omitempty"`
	Type        string    `json:"type,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Client-side only; maintained from inbound new_message events.
	LastMessagePreview string    `json:"-"`
	LastActivityAt     time.Time `json:"-"`
}

// DisplayName returns the room name, falling back to "#<id>" for unnamed rooms.
func (r Room) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return "#" + strconv.Itoa(r.ID)
}
