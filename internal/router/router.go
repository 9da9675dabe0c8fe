// Package router decodes inbound frames and dispatches them to the room
// store and the render sink.
package router

import (
	"errors"
	"log/slog"

	"github.com/naveenspark/parley/internal/render"
	"github.com/naveenspark/parley/internal/rooms"
	"github.com/naveenspark/parley/pkg/domain"
)

// Router handles frames one at a time, in delivery order. It must only be
// called from the session dispatch goroutine.
type Router struct {
	self   int
	rooms  *rooms.Store
	sink   render.Sink
	logger *slog.Logger
}

// New creates a router for the session user self.
func New(self int, store *rooms.Store, sink render.Sink, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{self: self, rooms: store, sink: sink, logger: logger}
}

// Handle decodes and dispatches one frame. Decode failures and unknown
// event types are logged once and dropped; they never reach the caller.
func (r *Router) Handle(frame []byte) {
	ev, err := domain.DecodeInbound(frame)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownEvent) {
			r.logger.Warn("ignoring unknown event", "error", err)
			return
		}
		r.logger.Error("dropping malformed frame", "error", err, "bytes", len(frame))
		return
	}

	switch ev := ev.(type) {
	case domain.NewMessage:
		r.handleNewMessage(ev)
	case domain.History:
		r.handleHistory(ev)
	case domain.ServerError:
		r.sink.ShowError(ev.Message)
	case domain.TypingUsers:
		r.handleTyping(ev)
	}
}

func (r *Router) handleNewMessage(ev domain.NewMessage) {
	if !r.rooms.UpdatePreview(ev.RoomID, ev.Content, ev.CreatedAt) {
		r.logger.Debug("message for unknown room", "room_id", ev.RoomID)
	}
	if active, ok := r.rooms.ActiveID(); ok && active == ev.RoomID {
		r.sink.AppendMessage(r.view(ev.Message))
	}
}

// handleHistory renders the messages exactly as received; the server sends
// them oldest first and nothing here re-sorts.
func (r *Router) handleHistory(ev domain.History) {
	if _, ok := r.rooms.ActiveID(); !ok {
		r.logger.Debug("history received with no active room", "count", len(ev.Messages))
	}
	if len(ev.Messages) == 0 {
		r.sink.ShowEmptyHistory()
		return
	}
	views := make([]render.MessageView, len(ev.Messages))
	for i, m := range ev.Messages {
		views[i] = r.view(m)
	}
	r.sink.ReplaceMessages(views)
}

func (r *Router) handleTyping(ev domain.TypingUsers) {
	others := make([]int, 0, len(ev.UserIDs))
	for _, id := range ev.UserIDs {
		if id != r.self {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		r.sink.HideTyping()
		return
	}
	r.sink.ShowTyping(others)
}

func (r *Router) view(m domain.Message) render.MessageView {
	return render.MessageView{Message: m, Own: m.SenderID == r.self}
}
