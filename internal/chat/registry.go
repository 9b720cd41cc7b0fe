package chat

import (
	"context"
	"fmt"
	"sync"
)

// Registry is the authoritative in-memory index of which connections
// belong to which session, plus the cached session metadata needed to
// apply policy without a storage round-trip per message.
//
// It is shared by every request and connection handler; a single RWMutex
// serialises mutations against snapshot reads. Entries live for the
// process lifetime.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*registryEntry
	observer ConnectionObserver
}

// ConnectionObserver receives the live connection count of a session
// after every attach and detach. Implementations must not block.
type ConnectionObserver interface {
	RecordConnections(sessionID string, connections int)
}

type registryEntry struct {
	session Session
	conns   map[Connection]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// RegisterSession inserts an entry for the session with an empty
// connection set. If an entry already exists the metadata is refreshed
// and existing connections are untouched — used both at session
// creation and at warm-up replay.
func (r *Registry) RegisterSession(session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[session.ID]; ok {
		entry.session = session
		return
	}
	r.entries[session.ID] = &registryEntry{
		session: session,
		conns:   make(map[Connection]struct{}),
	}
}

// SetObserver installs a connection-count observer. Must be called
// before the first attach.
func (r *Registry) SetObserver(obs ConnectionObserver) {
	r.observer = obs
}

// AttachConnection adds a connection to a session's set.
// Fails with ErrSessionNotFound if the session is not registered.
func (r *Registry) AttachConnection(sessionID string, conn Connection) error {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	entry.conns[conn] = struct{}{}
	count := len(entry.conns)
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.RecordConnections(sessionID, count)
	}
	return nil
}

// DetachConnection removes a connection from a session's set.
// A no-op when the session or the connection is absent.
func (r *Registry) DetachConnection(sessionID string, conn Connection) {
	r.mu.Lock()
	entry, ok := r.entries[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(entry.conns, conn)
	count := len(entry.conns)
	r.mu.Unlock()

	if r.observer != nil {
		r.observer.RecordConnections(sessionID, count)
	}
}

// ConnectionsFor returns a snapshot of the session's connection set.
// An unknown session yields an empty slice, not an error. Callers may
// iterate the snapshot without holding any lock.
func (r *Registry) ConnectionsFor(sessionID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return nil
	}
	conns := make([]Connection, 0, len(entry.conns))
	for c := range entry.conns {
		conns = append(conns, c)
	}
	return conns
}

// LookupMetadata returns the cached session metadata.
func (r *Registry) LookupMetadata(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return Session{}, false
	}
	return entry.session, true
}

// ConnectionCount returns the number of live connections for a session.
func (r *Registry) ConnectionCount(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[sessionID]
	if !ok {
		return 0
	}
	return len(entry.conns)
}

// SessionCount returns the number of registered sessions.
func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// SessionLister is the storage capability WarmUp needs.
type SessionLister interface {
	ListAll(ctx context.Context) ([]Session, error)
}

// WarmUp replays every persisted session into the registry. It must run
// to completion before the server accepts WebSocket upgrades, otherwise
// attaches to pre-existing sessions would spuriously fail.
func (r *Registry) WarmUp(ctx context.Context, store SessionLister) error {
	sessions, err := store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("loading sessions for warm-up: %w", err)
	}
	for _, s := range sessions {
		r.RegisterSession(s)
	}
	return nil
}
