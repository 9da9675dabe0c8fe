// Package rooms caches the rooms known to the session user and tracks
// which one is active. It is not safe for concurrent use; the session
// serializes access through its dispatch queue.
package rooms

import (
	"errors"
	"fmt"
	"time"

	"github.com/naveenspark/parley/internal/render"
	"github.com/naveenspark/parley/pkg/domain"
)

// ErrNotFound is returned when a room id is not in the store.
var ErrNotFound = errors.New("room not found")

// Store is keyed by room id and remembers discovery order.
type Store struct {
	sink   render.Sink
	rooms  map[int]*domain.Room
	order  []int
	active int
	// zero is never a valid active id; the server assigns ids from 1
	hasActive bool
}

// NewStore creates an empty store that renders into sink.
func NewStore(sink render.Sink) *Store {
	return &Store{
		sink:  sink,
		rooms: make(map[int]*domain.Room),
	}
}

// UpsertFromServerList merges a fetched room list into the cache and
// re-renders the list. Existing rooms keep their preview and activity time.
// Running it twice with the same input leaves the same state.
func (s *Store) UpsertFromServerList(list []domain.Room) {
	for _, r := range list {
		if existing, ok := s.rooms[r.ID]; ok {
			existing.Name = r.Name
			existing.Type = r.Type
			existing.CreatedAt = r.CreatedAt
			if existing.LastActivityAt.IsZero() {
				existing.LastActivityAt = r.CreatedAt
			}
			continue
		}
		room := r
		if room.LastActivityAt.IsZero() {
			room.LastActivityAt = room.CreatedAt
		}
		s.rooms[room.ID] = &room
		s.order = append(s.order, room.ID)
	}
	s.sink.ShowRooms(s.List())
}

// UpdatePreview records the latest message for a room and renders it.
// Unknown rooms are ignored and nothing is rendered; it reports whether
// the room was known.
func (s *Store) UpdatePreview(roomID int, content string, at time.Time) bool {
	room, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	room.LastMessagePreview = content
	room.LastActivityAt = at
	s.sink.UpdateRoomPreview(*room)
	return true
}

// Select makes roomID the active room. It reports changed=false when the
// room was already active, in which case nothing is rendered.
func (s *Store) Select(roomID int) (changed bool, err error) {
	room, ok := s.rooms[roomID]
	if !ok {
		return false, fmt.Errorf("rooms.Select %d: %w", roomID, ErrNotFound)
	}
	if s.hasActive && s.active == roomID {
		return false, nil
	}
	s.active = roomID
	s.hasActive = true
	s.sink.ShowActiveRoom(*room)
	return true, nil
}

// Active returns the active room, if any.
func (s *Store) Active() (domain.Room, bool) {
	if !s.hasActive {
		return domain.Room{}, false
	}
	return *s.rooms[s.active], true
}

// ActiveID returns the active room id, if any.
func (s *Store) ActiveID() (int, bool) {
	return s.active, s.hasActive
}

// Get returns a copy of the room with the given id.
func (s *Store) Get(roomID int) (domain.Room, bool) {
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, false
	}
	return *room, true
}

// List returns copies of all rooms in discovery order.
func (s *Store) List() []domain.Room {
	out := make([]domain.Room, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.rooms[id])
	}
	return out
}

// Len returns the number of cached rooms.
func (s *Store) Len() int {
	return len(s.rooms)
}
