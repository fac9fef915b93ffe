// Package session holds the in-memory registry of authenticated realtime
// connections.
//
// The registry is the only shared mutable state outside the database. It is
// owned by the server process and handed to each connection's handler — never
// a package-level global — so its lifecycle is explicit: Bind on a successful
// login event, Unbind on disconnect. Nothing here is persisted; a restarted
// process starts with an empty registry and clients re-login on reconnect.
//
// Sessions are keyed by connection ID, not user ID: one user may hold several
// live sessions across connections, and each connection holds at most one.
package session

import (
	"sync"

	"github.com/sakif/pollchat/internal/model"
)

// Registry maps connection IDs to authenticated identities.
// Safe for concurrent use; every connection's read pump resolves against it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]model.Session),
	}
}

// Bind records the authenticated identity for a connection. Rebinding an
// already-bound connection replaces its session (the server keeps the most
// recent login for that connection).
func (r *Registry) Bind(connID, userID, username string) {
	r.mu.Lock()
	r.sessions[connID] = model.Session{
		ConnID:   connID,
		UserID:   userID,
		Username: username,
	}
	r.mu.Unlock()
}

// Resolve returns the session bound to the connection, if any.
func (r *Registry) Resolve(connID string) (model.Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[connID]
	r.mu.RUnlock()
	return s, ok
}

// Unbind removes the connection's session. Safe to call for connections that
// never logged in.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	delete(r.sessions, connID)
	r.mu.Unlock()
}

// Len reports how many connections currently hold a session.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
