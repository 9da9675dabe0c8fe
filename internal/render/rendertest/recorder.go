// Package rendertest provides a render.Sink that records every call.
package rendertest

import (
	"sync"

	"github.com/naveenspark/parley/internal/render"
	"github.com/naveenspark/parley/pkg/domain"
)

// Call is one recorded sink invocation.
type Call struct {
	Method string
	Arg    any
}

// Recorder records sink calls in order. Safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

var _ render.Sink = (*Recorder)(nil)

func (r *Recorder) record(method string, arg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Method: method, Arg: arg})
}

// Calls returns a copy of all recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Named returns the recorded calls to method, in order.
func (r *Recorder) Named(method string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times method was called.
func (r *Recorder) Count(method string) int {
	return len(r.Named(method))
}

// Last returns the most recent call to method and whether there was one.
func (r *Recorder) Last(method string) (Call, bool) {
	calls := r.Named(method)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) ShowStatus(status domain.Status)    { r.record("ShowStatus", status) }
func (r *Recorder) ShowRooms(rooms []domain.Room)      { r.record("ShowRooms", rooms) }
func (r *Recorder) UpdateRoomPreview(room domain.Room) { r.record("UpdateRoomPreview", room) }
func (r *Recorder) ShowActiveRoom(room domain.Room)    { r.record("ShowActiveRoom", room) }
func (r *Recorder) AppendMessage(msg render.MessageView) {
	r.record("AppendMessage", msg)
}
func (r *Recorder) ReplaceMessages(msgs []render.MessageView) {
	r.record("ReplaceMessages", msgs)
}
func (r *Recorder) ShowEmptyHistory()         { r.record("ShowEmptyHistory", nil) }
func (r *Recorder) ShowTyping(userIDs []int)  { r.record("ShowTyping", userIDs) }
func (r *Recorder) HideTyping()               { r.record("HideTyping", nil) }
func (r *Recorder) ShowError(message string)  { r.record("ShowError", message) }
func (r *Recorder) ShowNotice(message string) { r.record("ShowNotice", message) }
