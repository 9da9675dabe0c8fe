package session

import "errors"

var (
	// ErrNoActiveRoom is returned when sending before any room is selected.
	ErrNoActiveRoom = errors.New("select a room first")
	// ErrEmptyMessage is returned for blank message content.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrInvalidRoomID is returned when room input is not a positive integer.
	ErrInvalidRoomID = errors.New("invalid room id")
	// ErrEmptyRoomName is returned when creating a room without a name.
	ErrEmptyRoomName = errors.New("room name is empty")
)
