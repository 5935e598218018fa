package ws

import (
	"sort"
	"strings"
	"sync"
)

const (
	userRoomPrefix = "user:"
	bookRoomPrefix = "book:"

	// AdminRoom receives dashboard events.
	AdminRoom = "admin"
)

// RoomKind is the namespace of a room id.
type RoomKind string

const (
	RoomKindUser  RoomKind = "user"
	RoomKindBook  RoomKind = "book"
	RoomKindAdmin RoomKind = "admin"
)

func UserRoom(userID string) string { return userRoomPrefix + userID }
func BookRoom(bookID string) string { return bookRoomPrefix + bookID }

// ParseRoom splits a room id into kind and target id. ok is false for
// unknown namespaces and empty targets.
func ParseRoom(room string) (kind RoomKind, id string, ok bool) {
	switch {
	case room == AdminRoom:
		return RoomKindAdmin, "", true
	case strings.HasPrefix(room, userRoomPrefix):
		id = strings.TrimPrefix(room, userRoomPrefix)
		return RoomKindUser, id, id != ""
	case strings.HasPrefix(room, bookRoomPrefix):
		id = strings.TrimPrefix(room, bookRoomPrefix)
		return RoomKindBook, id, id != ""
	}
	return "", "", false
}

// RoomRegistry is the many-to-many connection <-> room index. Both
// directions are kept so a disconnect can drop every membership without
// scanning all rooms.
type RoomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{} // room -> connIDs
	conns map[string]map[string]struct{} // connID -> rooms
	total int
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms: make(map[string]map[string]struct{}),
		conns: make(map[string]map[string]struct{}),
	}
}

// Join is idempotent; it reports whether the membership is new.
func (r *RoomRegistry) Join(connID, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID][room]; ok {
		return false
	}

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[string]struct{})
	}
	r.rooms[room][connID] = struct{}{}

	if r.conns[connID] == nil {
		r.conns[connID] = make(map[string]struct{})
	}
	r.conns[connID][room] = struct{}{}

	r.total++
	return true
}

// Leave is idempotent; it reports whether a membership was removed.
func (r *RoomRegistry) Leave(connID, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID][room]; !ok {
		return false
	}
	r.remove(connID, room)
	return true
}

// RemoveConnection drops every membership of connID and returns the rooms
// it was in. A second call for the same connection returns nil.
func (r *RoomRegistry) RemoveConnection(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined := r.conns[connID]
	if len(joined) == 0 {
		delete(r.conns, connID)
		return nil
	}

	removed := make([]string, 0, len(joined))
	for room := range joined {
		removed = append(removed, room)
	}
	for _, room := range removed {
		r.remove(connID, room)
	}

	sort.Strings(removed)
	return removed
}

// remove expects r.mu held and the membership present.
func (r *RoomRegistry) remove(connID, room string) {
	delete(r.rooms[room], connID)
	if len(r.rooms[room]) == 0 {
		delete(r.rooms, room)
	}
	delete(r.conns[connID], room)
	if len(r.conns[connID]) == 0 {
		delete(r.conns, connID)
	}
	r.total--
}

// Members returns a snapshot of the connections in room.
func (r *RoomRegistry) Members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]string, 0, len(r.rooms[room]))
	for connID := range r.rooms[room] {
		members = append(members, connID)
	}
	return members
}

// RoomsOf returns the sorted rooms connID is currently in.
func (r *RoomRegistry) RoomsOf(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]string, 0, len(r.conns[connID]))
	for room := range r.conns[connID] {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// Memberships is the total number of (connection, room) pairs.
func (r *RoomRegistry) Memberships() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}
