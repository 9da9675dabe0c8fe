// Package session wires the connection manager, event router, room store
// and typing notifier into one client session.
//
// All session state lives on a single dispatch goroutine. The exported
// methods are safe to call from any goroutine: they post work and return.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/naveenspark/parley/internal/conn"
	"github.com/naveenspark/parley/internal/dispatch"
	"github.com/naveenspark/parley/internal/render"
	"github.com/naveenspark/parley/internal/rooms"
	"github.com/naveenspark/parley/internal/router"
	"github.com/naveenspark/parley/internal/typing"
	"github.com/naveenspark/parley/pkg/client"
	"github.com/naveenspark/parley/pkg/domain"
)

// RoomAPI is the HTTP surface the session needs. *client.Client implements it.
type RoomAPI interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	CreateRoom(ctx context.Context, req client.CreateRoomRequest) (*domain.Room, error)
}

// Options configures a Session. Poster and Scheduler default to an owned
// dispatch.Queue drained by Run.
type Options struct {
	UserID int
	WSURL  string

	Dialer conn.Dialer
	API    RoomAPI
	Sink   render.Sink

	Policy           conn.Policy
	TypingResetDelay time.Duration
	EmitStopTyping   bool

	Poster    dispatch.Poster
	Scheduler dispatch.Scheduler
	Logger    *slog.Logger
}

// Session is one connected client run.
type Session struct {
	info   domain.Session
	wsURL  string
	api    RoomAPI
	sink   render.Sink
	logger *slog.Logger

	queue  *dispatch.Queue
	poster dispatch.Poster

	conn   *conn.Manager
	rooms  *rooms.Store
	router *router.Router
	typing *typing.Notifier
}

// New builds a session and all of its components. Nothing is dialed until Connect.
func New(opts Options) *Session {
	info := domain.Session{ID: uuid.New(), UserID: opts.UserID, StartedAt: time.Now()}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", info.ID.String())

	s := &Session{
		info:   info,
		wsURL:  opts.WSURL,
		api:    opts.API,
		sink:   opts.Sink,
		logger: logger.With("component", "session"),
		poster: opts.Poster,
	}
	if s.poster == nil {
		s.queue = dispatch.NewQueue(0)
		s.poster = s.queue
	}
	sched := opts.Scheduler
	if sched == nil {
		sched = dispatch.QueueScheduler{Poster: s.poster}
	}

	s.rooms = rooms.NewStore(opts.Sink)
	s.router = router.New(opts.UserID, s.rooms, opts.Sink, logger.With("component", "router"))
	s.conn = conn.NewManager(conn.Options{
		Dialer:    opts.Dialer,
		Poster:    s.poster,
		Scheduler: sched,
		Policy:    opts.Policy,
		Logger:    logger.With("component", "conn"),
		OnStatus:  s.onStatus,
		OnFrame:   s.router.Handle,
	})
	s.typing = typing.New(typing.Options{
		Send:       s.conn.Send,
		Scheduler:  sched,
		ResetDelay: opts.TypingResetDelay,
		EmitStop:   opts.EmitStopTyping,
		Logger:     logger.With("component", "typing"),
	})
	return s
}

// Info returns the session identity.
func (s *Session) Info() domain.Session { return s.info }

// Run drains the session's dispatch queue until ctx is cancelled or Close
// completes. It returns immediately when the session was built with an
// external Poster.
func (s *Session) Run(ctx context.Context) error {
	if s.queue == nil {
		return nil
	}
	s.logger.Info("session started", "user_id", s.info.UserID)
	err := s.queue.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Connect opens the connection, replacing any existing one.
func (s *Session) Connect() {
	s.poster.Post(func() {
		if err := s.conn.Connect(s.wsURL, s.info.UserID); err != nil {
			s.reject(err)
		}
	})
}

// Disconnect closes the connection without scheduling a reconnect.
func (s *Session) Disconnect() {
	s.poster.Post(func() {
		s.typing.Reset()
		s.conn.Disconnect()
	})
}

// LoadRooms fetches the room list over HTTP and seeds the room store.
// A failed fetch is logged and reported once; it is not retried.
func (s *Session) LoadRooms(ctx context.Context) {
	go func() {
		list, err := s.api.ListRooms(ctx)
		s.poster.Post(func() {
			if err != nil {
				s.logger.Error("load rooms", "error", err, "temporary", client.IsTemporary(err))
				if client.IsTemporary(err) {
					s.sink.ShowNotice("server unavailable; could not load rooms")
					return
				}
				s.sink.ShowNotice(fmt.Sprintf("could not load rooms: %v", err))
				return
			}
			s.logger.Info("rooms loaded", "count", len(list))
			s.rooms.UpsertFromServerList(list)
		})
	}()
}

// CreateRoom creates a group room over HTTP, adds it to the store and
// selects it.
func (s *Session) CreateRoom(ctx context.Context, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.poster.Post(func() { s.reject(fmt.Errorf("session.CreateRoom: %w", ErrEmptyRoomName)) })
		return
	}
	go func() {
		room, err := s.api.CreateRoom(ctx, client.CreateRoomRequest{Name: name, Type: domain.RoomGroup})
		s.poster.Post(func() {
			if err != nil {
				s.logger.Error("create room", "name", name, "error", err)
				s.sink.ShowNotice(fmt.Sprintf("could not create room: %v", err))
				return
			}
			s.rooms.UpsertFromServerList([]domain.Room{*room})
			if err := s.selectRoom(room.ID); err != nil {
				s.reject(err)
			}
		})
	}()
}

// SelectRoom makes id the active room and joins it. Re-selecting the
// active room does nothing.
func (s *Session) SelectRoom(id int) {
	s.poster.Post(func() {
		if err := s.selectRoom(id); err != nil {
			s.reject(err)
		}
	})
}

// JoinInput selects the room whose id is typed in text.
func (s *Session) JoinInput(text string) {
	s.poster.Post(func() {
		id, err := parseRoomID(text)
		if err == nil {
			err = s.selectRoom(id)
		}
		if err != nil {
			s.reject(err)
		}
	})
}

// SendMessage posts content to the active room. replyTo may be nil.
func (s *Session) SendMessage(content string, replyTo *int) {
	s.poster.Post(func() {
		if err := s.sendMessage(content, replyTo); err != nil {
			s.reject(err)
		}
	})
}

// InputActivity reports a keystroke in the composer.
func (s *Session) InputActivity() {
	s.poster.Post(func() {
		if _, ok := s.rooms.ActiveID(); !ok || s.conn.Status() != domain.StatusConnected {
			return
		}
		if err := s.typing.Activity(); err != nil {
			s.logger.Debug("typing not sent", "error", err)
		}
	})
}

// Close disconnects and stops the dispatch queue. Posting after Close is a no-op.
func (s *Session) Close() {
	s.poster.Post(func() {
		s.typing.Reset()
		s.conn.Disconnect()
		s.logger.Info("session closed", "uptime", time.Since(s.info.StartedAt).Round(time.Second))
		if s.queue != nil {
			s.queue.Stop()
		}
	})
}

func (s *Session) selectRoom(id int) error {
	changed, err := s.rooms.Select(id)
	if err != nil {
		return fmt.Errorf("session.SelectRoom: %w", err)
	}
	if !changed {
		return nil
	}
	s.typing.Reset()
	s.sink.HideTyping()
	if s.conn.Status() != domain.StatusConnected {
		// Joined by onStatus once the connection opens.
		return nil
	}
	if err := s.conn.Send(domain.JoinRoom{RoomID: id}); err != nil {
		return fmt.Errorf("session.SelectRoom: %w", err)
	}
	return nil
}

func (s *Session) sendMessage(content string, replyTo *int) error {
	if _, ok := s.rooms.ActiveID(); !ok {
		return fmt.Errorf("session.SendMessage: %w", ErrNoActiveRoom)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return fmt.Errorf("session.SendMessage: %w", ErrEmptyMessage)
	}
	if err := s.conn.Send(domain.SendMessage{Content: content, ReplyToID: replyTo}); err != nil {
		return fmt.Errorf("session.SendMessage: %w", err)
	}
	s.typing.Reset()
	return nil
}

// onStatus forwards transitions to the sink. The server forgets joined
// rooms with the connection, so the active room is joined again on open.
func (s *Session) onStatus(status domain.Status) {
	s.sink.ShowStatus(status)
	switch status {
	case domain.StatusConnected:
		if id, ok := s.rooms.ActiveID(); ok {
			if err := s.conn.Send(domain.JoinRoom{RoomID: id}); err != nil {
				s.logger.Warn("rejoin room", "room_id", id, "error", err)
			}
		}
	case domain.StatusDisconnected:
		s.typing.Reset()
		s.sink.HideTyping()
	}
}

// reject reports a rejected command as a local notice.
func (s *Session) reject(err error) {
	s.logger.Info("command rejected", "error", err)
	s.sink.ShowNotice(noticeText(err))
}

func noticeText(err error) string {
	switch {
	case errors.Is(err, conn.ErrNotConnected):
		return "not connected; message not sent"
	case errors.Is(err, rooms.ErrNotFound):
		return "no such room"
	case errors.Is(err, ErrNoActiveRoom):
		return ErrNoActiveRoom.Error()
	case errors.Is(err, ErrEmptyMessage):
		return ErrEmptyMessage.Error()
	case errors.Is(err, ErrInvalidRoomID):
		return ErrInvalidRoomID.Error()
	case errors.Is(err, ErrEmptyRoomName):
		return ErrEmptyRoomName.Error()
	}
	return err.Error()
}

func parseRoomID(text string) (int, error) {
	text = strings.TrimPrefix(strings.TrimSpace(text), "#")
	id, err := strconv.Atoi(text)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("session.JoinInput %q: %w", text, ErrInvalidRoomID)
	}
	return id, nil
}
