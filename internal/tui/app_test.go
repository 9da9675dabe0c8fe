package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/naveenspark/parley/pkg/domain"
)

func newTestApp(f *fakeSession) App {
	a := NewApp(f, domain.Session{ID: uuid.New(), UserID: 7, StartedAt: time.Now()})
	a.chat.copyText = func(string) error { return nil }
	a.chat.openURL = func(string) error { return nil }
	model, _ := a.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return model.(App)
}

func update(t *testing.T, a App, msgs ...tea.Msg) App {
	t.Helper()
	for _, msg := range msgs {
		model, _ := a.Update(msg)
		a = model.(App)
	}
	return a
}

func testRooms() []domain.Room {
	return []domain.Room{
		{ID: 3, Name: "general", Type: domain.RoomGroup},
		{ID: 5, Name: "ops", Type: domain.RoomGroup},
		{ID: 8, Type: domain.RoomDirect},
	}
}

func TestAppRoomListRendered(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), roomsMsg{testRooms()})
	out := a.View()
	for _, want := range []string{"general", "ops", "#8", "Rooms"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in view, got:\n%s", want, out)
		}
	}
}

func TestAppRoomPreviewUpdated(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), roomsMsg{testRooms()})
	room := testRooms()[1]
	room.LastMessagePreview = "deploy is green"
	room.LastActivityAt = time.Now()
	a = update(t, a, roomPreviewMsg{room})

	if a.rooms[1].LastMessagePreview != "deploy is green" {
		t.Fatalf("preview not stored: %+v", a.rooms[1])
	}
	if out := a.View(); !strings.Contains(out, "deploy is green") {
		t.Errorf("expected preview in sidebar, got:\n%s", out)
	}
}

func TestAppRoomPreviewUnknownRoomIgnored(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), roomsMsg{testRooms()})
	a = update(t, a, roomPreviewMsg{domain.Room{ID: 99, LastMessagePreview: "ghost"}})
	if len(a.rooms) != 3 {
		t.Errorf("rooms = %d, want 3", len(a.rooms))
	}
	if strings.Contains(a.View(), "ghost") {
		t.Error("preview of an unknown room rendered")
	}
}

func TestAppSelectRoomWithEnter(t *testing.T) {
	f := &fakeSession{}
	a := update(t, newTestApp(f), roomsMsg{testRooms()},
		keyRunes("j"),
		tea.KeyMsg{Type: tea.KeyEnter},
	)
	if len(f.selected) != 1 || f.selected[0] != 5 {
		t.Fatalf("selected = %v, want [5]", f.selected)
	}
	if a.focus != focusChat {
		t.Error("expected focus on messages after opening a room")
	}
}

func TestAppRoomCursorClamped(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), roomsMsg{testRooms()})
	for i := 0; i < 5; i++ {
		a = update(t, a, keyRunes("j"))
	}
	if a.roomCursor != 2 {
		t.Errorf("roomCursor = %d, want 2", a.roomCursor)
	}
	for i := 0; i < 5; i++ {
		a = update(t, a, keyRunes("k"))
	}
	if a.roomCursor != 0 {
		t.Errorf("roomCursor = %d, want 0", a.roomCursor)
	}
}

func TestAppActiveRoomMarked(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), roomsMsg{testRooms()}, activeRoomMsg{testRooms()[2]})
	if !a.hasActive || a.activeID != 8 || a.roomCursor != 2 {
		t.Fatalf("active = %v/%d cursor = %d", a.hasActive, a.activeID, a.roomCursor)
	}
	if !a.chat.hasRoom || a.chat.room.ID != 8 {
		t.Error("chat pane did not receive the active room")
	}
}

func TestAppStatusInHeader(t *testing.T) {
	a := newTestApp(&fakeSession{})
	if out := a.View(); !strings.Contains(out, "disconnected") {
		t.Errorf("expected disconnected status, got:\n%s", out)
	}
	a = update(t, a, statusMsg{domain.StatusConnecting})
	if out := a.View(); !strings.Contains(out, "connecting") {
		t.Errorf("expected connecting status, got:\n%s", out)
	}
	a = update(t, a, statusMsg{domain.StatusConnected})
	if !a.chat.connected {
		t.Error("status not forwarded to chat pane")
	}
	if out := a.View(); !strings.Contains(out, "user 7") {
		t.Errorf("expected user label in header, got:\n%s", out)
	}
}

func TestAppQuit(t *testing.T) {
	a := newTestApp(&fakeSession{})
	_, cmd := a.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatal("expected quit command on 'q', got nil")
	}
}

func TestAppQWhileTypingIsText(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), statusMsg{domain.StatusConnected}, activeRoomMsg{testRooms()[0]})
	a = update(t, a, keyRunes("i"), keyRunes("q"))
	if a.chat.input != "q" {
		t.Errorf("input = %q, want q", a.chat.input)
	}
}

func TestAppSlashFromRoomsFocusesComposer(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), keyRunes("/"))
	if !a.chat.inputFocused || a.chat.input != "/" {
		t.Errorf("focused = %v input = %q", a.chat.inputFocused, a.chat.input)
	}
	if out := a.View(); !strings.Contains(out, "/join <id>") {
		t.Errorf("expected command hints, got:\n%s", out)
	}
}

func TestAppTabTogglesFocus(t *testing.T) {
	a := newTestApp(&fakeSession{})
	if a.focus != focusRooms {
		t.Fatal("expected initial focus on rooms")
	}
	a = update(t, a, tea.KeyMsg{Type: tea.KeyTab})
	if a.focus != focusChat {
		t.Error("tab should move focus to messages")
	}
	a = update(t, a, tea.KeyMsg{Type: tea.KeyTab})
	if a.focus != focusRooms {
		t.Error("tab should move focus back to rooms")
	}
}

func TestAppHelpOverlay(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), keyRunes("h"))
	if !a.helpOpen {
		t.Fatal("expected help overlay")
	}
	if out := a.View(); !strings.Contains(out, "/reconnect") {
		t.Errorf("help should list commands, got:\n%s", out)
	}
	a = update(t, a, tea.KeyMsg{Type: tea.KeyEsc})
	if a.helpOpen {
		t.Error("esc should close help")
	}
}

func TestAppViewFitsTerminal(t *testing.T) {
	a := update(t, newTestApp(&fakeSession{}), roomsMsg{testRooms()}, activeRoomMsg{testRooms()[0]})
	lines := strings.Split(a.View(), "\n")
	if len(lines) != 30 {
		t.Errorf("view has %d lines, want 30", len(lines))
	}
}
