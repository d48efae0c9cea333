package hub

import (
	"encoding/json"
	"sync"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

// Registry owns the mapping from (userID, clientType) to live connections.
// It is the single piece of mutable shared state in the realtime core; all
// mutation happens through Register/Deregister on connection lifecycle.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uint]map[string]*Client

	// Presence hooks fire on a user's first connection and after their last
	// connection is gone. Set once during wiring, before any traffic.
	onOnline  func(userID uint)
	onOffline func(userID uint)
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[uint]map[string]*Client),
	}
}

// SetPresenceHooks installs the callbacks invoked when a user transitions
// between offline and online. Hooks run outside the registry lock.
func (r *Registry) SetPresenceHooks(onOnline, onOffline func(userID uint)) {
	r.onOnline = onOnline
	r.onOffline = onOffline
}

// Register stores c under its (userID, clientType) key. Any prior connection
// under the same key is closed with CloseSuperseded before the replacement is
// stored, so a rapid reconnect never leaves a dangling handle.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	conns := r.byUser[c.UserID]
	if conns == nil {
		conns = make(map[string]*Client)
		r.byUser[c.UserID] = conns
	}
	wasOffline := len(conns) == 0

	old := conns[c.ClientType]
	if old != nil {
		// Close before the new handle becomes visible.
		old.CloseWithCode(domain.CloseSuperseded, "superseded by newer connection")
	}
	conns[c.ClientType] = c
	r.mu.Unlock()

	l := log.L()
	l.Debug().
		Uint64(log.FieldUserID, uint64(c.UserID)).
		Str(log.FieldClientType, c.ClientType).
		Str(log.FieldConnectionID, c.ID).
		Bool("superseded_previous", old != nil).
		Msg("connection registered")

	if wasOffline && r.onOnline != nil {
		r.onOnline(c.UserID)
	}
}

// Deregister removes c if it is still the active handle for its key. A stale
// deregistration (the key already holds a newer connection) is a no-op.
func (r *Registry) Deregister(c *Client) {
	r.mu.Lock()
	conns := r.byUser[c.UserID]
	if conns == nil || conns[c.ClientType] != c {
		r.mu.Unlock()
		return
	}
	delete(conns, c.ClientType)
	userOffline := len(conns) == 0
	if userOffline {
		delete(r.byUser, c.UserID)
	}
	r.mu.Unlock()

	c.shutdown()

	l := log.L()
	l.Debug().
		Uint64(log.FieldUserID, uint64(c.UserID)).
		Str(log.FieldClientType, c.ClientType).
		Str(log.FieldConnectionID, c.ID).
		Msg("connection deregistered")

	if userOffline && r.onOffline != nil {
		r.onOffline(c.UserID)
	}
}

// Lookup returns all active handles for a user across client types.
func (r *Registry) Lookup(userID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	out := make([]*Client, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// Get returns the active handle for one (userID, clientType) key.
func (r *Registry) Get(userID uint, clientType string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byUser[userID][clientType]
	return c, ok
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID uint) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser[userID]) > 0
}

// Push marshals the event envelope once and queues it on every live
// connection the user holds. A recipient with no open connection is a normal
// no-op. Returns the number of connections the frame was queued on.
func (r *Registry) Push(userID uint, event string, data interface{}) int {
	payload, err := json.Marshal(domain.ServerFrame{Type: event, Data: data})
	if err != nil {
		l := log.L()
		l.Error().Err(err).Str(log.FieldEventType, event).Msg("failed to marshal outbound frame")
		return 0
	}

	delivered := 0
	for _, c := range r.Lookup(userID) {
		if c.Enqueue(payload) {
			delivered++
			continue
		}
		// Send buffer full: the connection is stalled, drop it.
		l := log.L()
		l.Warn().
			Uint64(log.FieldUserID, uint64(userID)).
			Str(log.FieldClientType, c.ClientType).
			Msg("send buffer full, dropping connection")
		go r.Deregister(c)
	}
	return delivered
}

// Close tears down every connection, for process shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	var all []*Client
	for _, conns := range r.byUser {
		for _, c := range conns {
			all = append(all, c)
		}
	}
	r.byUser = make(map[uint]map[string]*Client)
	r.mu.Unlock()

	for _, c := range all {
		c.shutdown()
	}
}
