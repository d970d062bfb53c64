// Package presence tracks which identities currently have live websocket
// connections. The registry is the single source of truth for presence in
// the process; nothing else caches connection membership.
package presence

import "sync"

// Conn is one open realtime session. Push must never block: it reports
// whether the payload was accepted, and a refusal means the connection is
// dead or backed up and the payload is dropped for it.
type Conn interface {
	ID() string
	Push(data []byte) bool
}

// Registry maps a user id to the set of its open connections (its "room").
// Rooms are emptied on leave but never removed, so a leave racing a join on
// the same identity can never drop the fresh entry.
type Registry struct {
	mu    sync.RWMutex
	rooms map[int]map[Conn]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[int]map[Conn]struct{}),
	}
}

// Join adds conn to userID's room. Joining an already-joined connection is a
// no-op, and there is no cap on connections per identity (multi-device).
func (r *Registry) Join(userID int, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[userID]
	if !ok {
		room = make(map[Conn]struct{})
		r.rooms[userID] = room
	}
	room[conn] = struct{}{}
}

// Leave removes conn from userID's room. A connection that already left is
// a no-op, which absorbs duplicate disconnect signals.
func (r *Registry) Leave(userID int, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[userID]; ok {
		delete(room, conn)
	}
}

// ConnectionsFor returns a snapshot of the room at call time. The set may
// change the moment this returns; no lock is held across fan-out.
func (r *Registry) ConnectionsFor(userID int) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[userID]
	if len(room) == 0 {
		return nil
	}
	conns := make([]Conn, 0, len(room))
	for conn := range room {
		conns = append(conns, conn)
	}
	return conns
}

// IsOnline reports whether userID has at least one live connection.
func (r *Registry) IsOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[userID]) > 0
}
