package domain

import "time"

// Message is a single chat message as pushed by the server.
// ID is informational only; the client never deduplicates on it.
type Message struct {
	ID        int       `json:"id,omitempty"`
	RoomID    int       `json:"room_id"`
	SenderID  int       `json:"sender_id"`
	Content   string    `json:"content"`
	ReplyToID *int      `json:"reply_to_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
