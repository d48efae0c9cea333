package wsclient

import (
	"encoding/json"
	"sync"

	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

// Frame is the server-to-client envelope.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Handler consumes one event's payload.
type Handler func(data json.RawMessage)

// Router dispatches inbound events to at most one handler per type. The last
// registration for a type wins; callers re-register on every mount and rely
// on the replacement semantics.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func newRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// On registers the handler for an event type, silently replacing any
// previous one.
func (r *Router) On(event string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = h
}

// Off removes the handler for an event type.
func (r *Router) Off(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
}

func (r *Router) dispatch(frame Frame) {
	r.mu.RLock()
	h, ok := r.handlers[frame.Type]
	r.mu.RUnlock()

	if !ok {
		l := log.L()
		l.Warn().Str(log.FieldEventType, frame.Type).Msg("unrecognized event type dropped")
		return
	}
	h(frame.Data)
}
