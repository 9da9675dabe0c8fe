package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/naveenspark/parley/internal/conn"
	"github.com/naveenspark/parley/internal/dispatch/dispatchtest"
	"github.com/naveenspark/parley/internal/render"
	"github.com/naveenspark/parley/internal/render/rendertest"
	"github.com/naveenspark/parley/pkg/client"
	"github.com/naveenspark/parley/pkg/domain"
)

// lockedPoster runs jobs inline but one at a time, so work posted from the
// HTTP goroutines is serialized with the test goroutine.
type lockedPoster struct {
	mu sync.Mutex
}

func (p *lockedPoster) Post(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn()
}

type fakeTransport struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeTransport) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, string(frame))
	return nil
}

func (f *fakeTransport) Close() error { return nil }

func (f *fakeTransport) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

type fakeDialer struct {
	mu         sync.Mutex
	endpoints  []string
	events     []conn.Events
	transports []*fakeTransport
}

func (d *fakeDialer) Dial(endpoint string, ev conn.Events) conn.Transport {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := &fakeTransport{}
	d.endpoints = append(d.endpoints, endpoint)
	d.events = append(d.events, ev)
	d.transports = append(d.transports, t)
	return t
}

func (d *fakeDialer) last() (conn.Events, *fakeTransport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events[len(d.events)-1], d.transports[len(d.transports)-1]
}

type fakeAPI struct {
	mu      sync.Mutex
	rooms   []domain.Room
	err     error
	calls   int
	created []client.CreateRoomRequest
}

func (a *fakeAPI) ListRooms(context.Context) ([]domain.Room, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.rooms, a.err
}

func (a *fakeAPI) CreateRoom(_ context.Context, req client.CreateRoomRequest) (*domain.Room, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.created = append(a.created, req)
	if a.err != nil {
		return nil, a.err
	}
	return &domain.Room{ID: 50, Name: req.Name, Type: req.Type}, nil
}

type fixture struct {
	s      *Session
	dialer *fakeDialer
	api    *fakeAPI
	sched  *dispatchtest.Scheduler
	rec    *rendertest.Recorder
}

const selfID = 1

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		dialer: &fakeDialer{},
		api:    &fakeAPI{},
		sched:  &dispatchtest.Scheduler{},
		rec:    &rendertest.Recorder{},
	}
	f.s = New(Options{
		UserID:    selfID,
		WSURL:     "ws://localhost:8080/ws",
		Dialer:    f.dialer,
		API:       f.api,
		Sink:      f.rec,
		Poster:    &lockedPoster{},
		Scheduler: f.sched,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

// connected seeds two rooms and opens the connection.
func (f *fixture) connected(t *testing.T) *fakeTransport {
	t.Helper()
	f.s.poster.Post(func() {
		f.s.rooms.UpsertFromServerList([]domain.Room{{ID: 3, Name: "general"}, {ID: 4, Name: "ops"}})
	})
	f.s.Connect()
	ev, tr := f.dialer.last()
	ev.Opened()
	f.rec.Reset()
	return tr
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func countPrefix(frames []string, prefix string) int {
	n := 0
	for _, fr := range frames {
		if strings.HasPrefix(fr, prefix) {
			n++
		}
	}
	return n
}

const joinPrefix = `{"type":"join_room"`

func lastNotice(t *testing.T, rec *rendertest.Recorder) string {
	t.Helper()
	call, ok := rec.Last("ShowNotice")
	if !ok {
		t.Fatal("expected a notice")
	}
	return call.Arg.(string)
}

func TestConnectDialsWithUserID(t *testing.T) {
	f := newFixture(t)
	f.s.Connect()
	if got := f.dialer.endpoints[0]; got != "ws://localhost:8080/ws?user_id=1" {
		t.Errorf("dialed %q", got)
	}
	ev, _ := f.dialer.last()
	ev.Opened()

	var statuses []domain.Status
	for _, c := range f.rec.Named("ShowStatus") {
		statuses = append(statuses, c.Arg.(domain.Status))
	}
	if len(statuses) != 2 || statuses[0] != domain.StatusConnecting || statuses[1] != domain.StatusConnected {
		t.Errorf("statuses = %v, want [connecting connected]", statuses)
	}
}

func TestSelectSameRoomTwiceSendsOneJoin(t *testing.T) {
	f := newFixture(t)
	tr := f.connected(t)

	f.s.SelectRoom(3)
	f.s.SelectRoom(3)

	frames := tr.frames()
	if n := countPrefix(frames, joinPrefix); n != 1 {
		t.Fatalf("join_room frames = %d, want 1: %v", n, frames)
	}
	if frames[0] != `{"type":"join_room","payload":{"room_id":3}}` {
		t.Errorf("frame = %s", frames[0])
	}
	if f.rec.Count("ShowActiveRoom") != 1 {
		t.Errorf("ShowActiveRoom calls = %d, want 1", f.rec.Count("ShowActiveRoom"))
	}
}

func TestSwitchRoomsNeverLeaves(t *testing.T) {
	f := newFixture(t)
	tr := f.connected(t)
	f.s.SelectRoom(3)
	f.s.SelectRoom(4)

	want := []string{
		`{"type":"join_room","payload":{"room_id":3}}`,
		`{"type":"join_room","payload":{"room_id":4}}`,
	}
	got := tr.frames()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("frames = %v, want %v", got, want)
	}
}

func TestSelectUnknownRoomReportsNotice(t *testing.T) {
	f := newFixture(t)
	tr := f.connected(t)
	f.s.SelectRoom(99)

	if got := lastNotice(t, f.rec); got != "no such room" {
		t.Errorf("notice = %q", got)
	}
	if len(tr.frames()) != 0 {
		t.Errorf("frames = %v, want none", tr.frames())
	}
}

func TestSendWithoutActiveRoomSendsNothing(t *testing.T) {
	f := newFixture(t)
	tr := f.connected(t)

	f.s.SendMessage("hello", nil)

	if len(tr.frames()) != 0 {
		t.Errorf("frames = %v, want none", tr.frames())
	}
	if got := lastNotice(t, f.rec); got != ErrNoActiveRoom.Error() {
		t.Errorf("notice = %q", got)
	}
	if err := f.s.sendMessage("hello", nil); !errors.Is(err, ErrNoActiveRoom) {
		t.Errorf("sendMessage error = %v, want ErrNoActiveRoom", err)
	}
}

func TestSendEmptyMessageRejected(t *testing.T) {
	f := newFixture(t)
	tr := f.connected(t)
	f.s.SelectRoom(3)

	f.s.SendMessage("   \n", nil)
	if n := len(tr.frames()); n != 1 {
		t.Errorf("frames = %d, want only the join", n)
	}
	if got := lastNotice(t, f.rec); got != ErrEmptyMessage.Error() {
		t.Errorf("notice = %q", got)
	}
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	tr := f.connected(t)
	f.s.SelectRoom(3)

	replyTo := 17
	f.s.SendMessage("  hi there ", &replyTo)

	frames := tr.frames()
	want := `{"type":"send_message","payload":{"content":"hi there","reply_to_id":17}}`
	if len(frames) != 2 || frames[1] != want {
		t.Errorf("frames = %v, want join then %s", frames, want)
	}
	if f.rec.Count("ShowNotice") != 0 {
		t.Errorf("unexpected notices: %+v", f.rec.Named("ShowNotice"))
	}
}

func TestSendWhileDisconnected(t *testing.T) {
	f := newFixture(t)
	f.connected(t)
	f.s.SelectRoom(3)
	f.s.Disconnect()

	f.s.SendMessage("hello", nil)
	if got := lastNotice(t, f.rec); !strings.Contains(got, "not connected") {
		t.Errorf("notice = %q", got)
	}
}

func TestJoinInput(t *testing.T) {
	for _, in := range []string{"abc", "-1", "0", "", "3.5"} {
		f := newFixture(t)
		tr := f.connected(t)
		f.s.JoinInput(in)
		if got := lastNotice(t, f.rec); got != ErrInvalidRoomID.Error() {
			t.Errorf("JoinInput(%q) notice = %q", in, got)
		}
		if len(tr.frames()) != 0 {
			t.Errorf("JoinInput(%q) sent %v", in, tr.frames())
		}
	}

	f := newFixture(t)
	tr := f.connected(t)
	f.s.JoinInput(" #4 ")
	if got := tr.frames(); len(got) != 1 || got[0] != `{"type":"join_room","payload":{"room_id":4}}` {
		t.Errorf("frames = %v", got)
	}
}

func TestSelectWhileConnectingJoinsOnOpen(t *testing.T) {
	f := newFixture(t)
	f.s.poster.Post(func() {
		f.s.rooms.UpsertFromServerList([]domain.Room{{ID: 3, Name: "general"}})
	})
	f.s.Connect()
	f.s.SelectRoom(3)
	if f.rec.Count("ShowNotice") != 0 {
		t.Errorf("unexpected notice: %+v", f.rec.Named("ShowNotice"))
	}

	ev, tr := f.dialer.last()
	ev.Opened()
	if got := tr.frames(); len(got) != 1 || got[0] != `{"type":"join_room","payload":{"room_id":3}}` {
		t.Errorf("frames after open = %v", got)
	}
}

func TestRejoinAfterReconnect(t *testing.T) {
	f := newFixture(t)
	f.connected(t)
	f.s.SelectRoom(3)

	ev, _ := f.dialer.last()
	ev.Closed()
	if d := f.sched.Last().Delay; d != 2*time.Second {
		t.Errorf("reconnect delay = %v, want 2s", d)
	}
	f.sched.FireNext()

	ev2, tr2 := f.dialer.last()
	ev2.Opened()
	if got := tr2.frames(); len(got) != 1 || !strings.HasPrefix(got[0], joinPrefix) {
		t.Errorf("frames on new transport = %v, want rejoin", got)
	}
}

func TestInputActivity(t *testing.T) {
	f := newFixture(t)
	tr := f.connected(t)

	f.s.InputActivity()
	if len(tr.frames()) != 0 {
		t.Errorf("typing sent with no active room: %v", tr.frames())
	}

	f.s.SelectRoom(3)
	f.s.InputActivity()
	f.s.InputActivity()
	frames := tr.frames()
	if n := countPrefix(frames, `{"type":"typing","payload":{}}`); n != 2 {
		t.Errorf("typing frames = %d, want 2: %v", n, frames)
	}
}

func TestInboundFrameReachesSink(t *testing.T) {
	f := newFixture(t)
	f.connected(t)
	f.s.SelectRoom(3)

	ev, _ := f.dialer.last()
	ev.Message([]byte(`{"type":"new_message","payload":{"room_id":3,"sender_id":1,"content":"echo"}}`))

	call, ok := f.rec.Last("AppendMessage")
	if !ok {
		t.Fatal("expected AppendMessage")
	}
	if mv := call.Arg.(render.MessageView); !mv.Own || mv.Content != "echo" {
		t.Errorf("AppendMessage(%+v)", mv)
	}
}

func TestLoadRooms(t *testing.T) {
	f := newFixture(t)
	f.api.rooms = []domain.Room{{ID: 8, Name: "eight"}, {ID: 2, Name: "two"}}

	f.s.LoadRooms(context.Background())
	waitUntil(t, "ShowRooms", func() bool { return f.rec.Count("ShowRooms") > 0 })

	call, _ := f.rec.Last("ShowRooms")
	list := call.Arg.([]domain.Room)
	if len(list) != 2 || list[0].ID != 8 || list[1].ID != 2 {
		t.Errorf("ShowRooms(%+v)", list)
	}
}

func TestLoadRoomsFailureIsReportedOnce(t *testing.T) {
	f := newFixture(t)
	f.api.err = errors.New("connection refused")

	f.s.LoadRooms(context.Background())
	waitUntil(t, "notice", func() bool { return f.rec.Count("ShowNotice") > 0 })

	if got := lastNotice(t, f.rec); !strings.Contains(got, "could not load rooms") {
		t.Errorf("notice = %q", got)
	}
	time.Sleep(20 * time.Millisecond)
	f.api.mu.Lock()
	calls := f.api.calls
	f.api.mu.Unlock()
	if calls != 1 {
		t.Errorf("ListRooms calls = %d, want 1 (no retry)", calls)
	}
	if len(f.sched.Delays()) != 0 {
		t.Error("failed fetch scheduled a retry")
	}
}

func TestLoadRoomsServerUnavailable(t *testing.T) {
	f := newFixture(t)
	f.api.err = &client.HTTPError{Method: "GET", Path: "/users/rooms", StatusCode: 503, Message: "down"}

	f.s.LoadRooms(context.Background())
	waitUntil(t, "notice", func() bool { return f.rec.Count("ShowNotice") > 0 })

	if got := lastNotice(t, f.rec); got != "server unavailable; could not load rooms" {
		t.Errorf("notice = %q", got)
	}
}

func TestCreateRoomSelectsIt(t *testing.T) {
	f := newFixture(t)
	tr := f.connected(t)

	f.s.CreateRoom(context.Background(), " planning ")
	waitUntil(t, "join frame", func() bool { return len(tr.frames()) > 0 })

	call, _ := f.rec.Last("ShowActiveRoom")
	if room := call.Arg.(domain.Room); room.ID != 50 || room.Name != "planning" {
		t.Errorf("ShowActiveRoom(%+v)", room)
	}
	if got := tr.frames(); len(got) != 1 || got[0] != `{"type":"join_room","payload":{"room_id":50}}` {
		t.Errorf("frames = %v", got)
	}
	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	if len(f.api.created) != 1 || f.api.created[0].Type != domain.RoomGroup {
		t.Errorf("created = %+v", f.api.created)
	}
}

func TestCreateRoomEmptyName(t *testing.T) {
	f := newFixture(t)
	f.s.CreateRoom(context.Background(), "  ")
	if got := lastNotice(t, f.rec); got != ErrEmptyRoomName.Error() {
		t.Errorf("notice = %q", got)
	}
	if len(f.api.created) != 0 {
		t.Error("API called for empty name")
	}
}

func TestDisconnectHidesTypingAndStops(t *testing.T) {
	f := newFixture(t)
	f.connected(t)
	f.s.Disconnect()

	if f.rec.Count("HideTyping") == 0 {
		t.Error("expected HideTyping on disconnect")
	}
	call, _ := f.rec.Last("ShowStatus")
	if call.Arg.(domain.Status) != domain.StatusDisconnected {
		t.Errorf("last status = %v", call.Arg)
	}
	if len(f.sched.Pending()) != 0 {
		t.Error("timers pending after explicit disconnect")
	}
}

func TestRunStopsOnClose(t *testing.T) {
	s := New(Options{
		UserID: 1,
		WSURL:  "ws://localhost:8080/ws",
		Dialer: &fakeDialer{},
		API:    &fakeAPI{},
		Sink:   &rendertest.Recorder{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	s.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(Options{
		UserID: 1,
		Dialer: &fakeDialer{},
		API:    &fakeAPI{},
		Sink:   &rendertest.Recorder{},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Errorf("Run() = %v, want nil on cancel", err)
	}
}

func TestSessionInfo(t *testing.T) {
	f := newFixture(t)
	info := f.s.Info()
	if info.UserID != selfID || info.ID.String() == "" || info.StartedAt.IsZero() {
		t.Errorf("Info() = %+v", info)
	}
}
