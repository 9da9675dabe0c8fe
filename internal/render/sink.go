// Package render defines the calls the session core makes into the
// presentation layer. The core never draws anything itself.
package render

import "github.com/naveenspark/parley/pkg/domain"

// MessageView is a message annotated for display.
type MessageView struct {
	domain.Message
	Own bool // sent by the session user
}

// Sink receives render instructions. Implementations are called from the
// session's dispatch goroutine and must not block on it.
type Sink interface {
	// ShowStatus reports a connection status transition. Composition must be
	// disabled while the status is not connected.
	ShowStatus(status domain.Status)
	// ShowRooms replaces the room list, in discovery order.
	ShowRooms(rooms []domain.Room)
	// UpdateRoomPreview refreshes one room's preview line.
	UpdateRoomPreview(room domain.Room)
	// ShowActiveRoom marks room as the one being viewed.
	ShowActiveRoom(room domain.Room)
	// AppendMessage adds one message to the bottom of the active room's log.
	AppendMessage(msg MessageView)
	// ReplaceMessages swaps the whole log for msgs, in the given order.
	ReplaceMessages(msgs []MessageView)
	// ShowEmptyHistory replaces the log with an empty-state marker.
	ShowEmptyHistory()
	ShowTyping(userIDs []int)
	HideTyping()
	// ShowError renders a server-sent error line.
	ShowError(message string)
	// ShowNotice renders a locally generated notice (rejected input, failed fetch).
	ShowNotice(message string)
}
