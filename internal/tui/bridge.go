package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/parley/internal/render"
	"github.com/naveenspark/parley/pkg/domain"
)

// Render calls arrive as these messages.
type (
	statusMsg       struct{ status domain.Status }
	roomsMsg        struct{ rooms []domain.Room }
	roomPreviewMsg  struct{ room domain.Room }
	activeRoomMsg   struct{ room domain.Room }
	appendMsg       struct{ msg render.MessageView }
	historyMsg      struct{ msgs []render.MessageView }
	emptyHistoryMsg struct{}
	typingMsg       struct{ userIDs []int }
	hideTypingMsg   struct{}
	serverErrorMsg  struct{ text string }
	noticeMsg       struct{ text string }
)

// Bridge is a render.Sink that turns render calls into tea messages.
// Calls never block the caller: they are queued and Forward delivers
// them to the program in order.
type Bridge struct {
	mu      sync.Mutex
	pending []tea.Msg
	wake    chan struct{}
}

var _ render.Sink = (*Bridge)(nil)

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{wake: make(chan struct{}, 1)}
}

// Forward passes queued messages to send until ctx is done. Pass
// (*tea.Program).Send.
func (b *Bridge) Forward(ctx context.Context, send func(tea.Msg)) {
	for {
		for _, msg := range b.drain() {
			send(msg)
		}
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}
	}
}

func (b *Bridge) push(msg tea.Msg) {
	b.mu.Lock()
	b.pending = append(b.pending, msg)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) drain() []tea.Msg {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

func (b *Bridge) ShowStatus(status domain.Status) { b.push(statusMsg{status}) }

func (b *Bridge) ShowRooms(rooms []domain.Room) {
	b.push(roomsMsg{append([]domain.Room(nil), rooms...)})
}

func (b *Bridge) UpdateRoomPreview(room domain.Room) { b.push(roomPreviewMsg{room}) }
func (b *Bridge) ShowActiveRoom(room domain.Room)    { b.push(activeRoomMsg{room}) }
func (b *Bridge) AppendMessage(msg render.MessageView) {
	b.push(appendMsg{msg})
}

func (b *Bridge) ReplaceMessages(msgs []render.MessageView) {
	b.push(historyMsg{append([]render.MessageView(nil), msgs...)})
}

func (b *Bridge) ShowEmptyHistory() { b.push(emptyHistoryMsg{}) }

func (b *Bridge) ShowTyping(userIDs []int) {
	b.push(typingMsg{append([]int(nil), userIDs...)})
}

func (b *Bridge) HideTyping()               { b.push(hideTypingMsg{}) }
func (b *Bridge) ShowError(message string)  { b.push(serverErrorMsg{message}) }
func (b *Bridge) ShowNotice(message string) { b.push(noticeMsg{message}) }
