package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Wire event tags.
const (
	EventNewMessage  = "new_message"
	EventHistory     = "history"
	EventError       = "error"
	EventTyping      = "typing"
	EventJoinRoom    = "join_room"
	EventSendMessage = "send_message"
)

var (
	// ErrUnknownEvent is returned by DecodeInbound for tags outside the inbound set.
	ErrUnknownEvent = errors.New("unknown event type")
	// ErrMissingPayload is returned when an inbound event carries no payload object.
	ErrMissingPayload = errors.New("missing event payload")
)

// Envelope is the JSON frame shared by both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is the closed set of server-pushed events.
// The concrete types are NewMessage, History, ServerError and TypingUsers.
type Inbound interface {
	inboundTag() string
}

// NewMessage announces a message posted to a room.
type NewMessage struct {
	Message
}

// History replaces the message list of the room just joined, oldest first.
type History struct {
	Messages []Message `json:"messages"`
}

// ServerError is an application-level error reported by the server.
type ServerError struct {
	Message string `json:"message"`
}

// TypingUsers lists the users currently typing in the joined room.
type TypingUsers struct {
	UserIDs []int `json:"user_ids"`
}

func (NewMessage) inboundTag() string  { return EventNewMessage }
func (History) inboundTag() string     { return EventHistory }
func (ServerError) inboundTag() string { return EventError }
func (TypingUsers) inboundTag() string { return EventTyping }

// DecodeInbound parses a raw frame into one of the inbound event types.
// Unknown tags yield an error wrapping ErrUnknownEvent; nothing is partially decoded.
func DecodeInbound(frame []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case EventNewMessage:
		var ev NewMessage
		return decodePayload(env, &ev)
	case EventHistory:
		var ev History
		return decodePayload(env, &ev)
	case EventError:
		var ev ServerError
		return decodePayload(env, &ev)
	case EventTyping:
		var ev TypingUsers
		return decodePayload(env, &ev)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
}

// decodePayload unmarshals env.Payload into out and returns the dereferenced value.
func decodePayload[T Inbound](env Envelope, out *T) (Inbound, error) {
	raw := bytes.TrimSpace(env.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("decode %s: %w", env.Type, ErrMissingPayload)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return *out, nil
}

// Outbound is an event the client sends to the server.
type Outbound interface {
	EventType() string
}

// JoinRoom asks the server to subscribe this connection to a room.
type JoinRoom struct {
	RoomID int `json:"room_id"`
}

// SendMessage posts content to the currently joined room.
type SendMessage struct {
	Content   string `json:"content"`
	ReplyToID *int   `json:"reply_to_id,omitempty"`
}

// Typing signals keyboard activity. Stopped is only set by the optional
// stop-typing emission and is omitted otherwise, so the default frame is `typing {}`.
type Typing struct {
	Stopped bool `json:"stopped,omitempty"`
}

func (JoinRoom) EventType() string    { return EventJoinRoom }
func (SendMessage) EventType() string { return EventSendMessage }
func (Typing) EventType() string      { return EventTyping }

// EncodeOutbound serializes ev into an envelope frame.
func EncodeOutbound(ev Outbound) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	data, err := json.Marshal(Envelope{Type: ev.EventType(), Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventType(), err)
	}
	return data, nil
}
