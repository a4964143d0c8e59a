// Package notify fans UI-facing notifications (stuck warnings, session
// updates, errors) out to registered subscribers.
package notify

import (
	"sync"

	"github.com/user/sketchd/internal/types"
)

type Kind string

const (
	KindStuckWarning   Kind = "stuck.warning"
	KindSessionUpdated Kind = "session.updated"
	KindSessionError   Kind = "session.error"
	KindDiffUpdated    Kind = "diff.updated"
)

// StuckCategory names which interactive request category looks stuck.
type StuckCategory string

const (
	StuckQuestion   StuckCategory = "question"
	StuckPermission StuckCategory = "permission"
)

// StuckWarning describes a running interactive tool whose pending request is
// missing, the tell-tale of a lost event. Show false clears a previously
// surfaced warning.
type StuckWarning struct {
	Show           bool
	Category       StuckCategory
	Tool           string
	StuckSince     int64 // epoch ms
	ElapsedSeconds int64
}

// Notification is one state-change announcement fanned out to subscribers.
// The payload field matching Kind is set; the rest are zero.
type Notification struct {
	Kind      Kind
	SessionID types.SessionID
	Stuck     *StuckWarning
	Error     string
}

// Handler receives notifications. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(Notification)

// Registry fans notifications out to subscribed handlers, keyed by
// subscriber id.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty notification registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Subscribe registers a handler and returns its subscriber id.
func (r *Registry) Subscribe(handler Handler) string {
	id := types.NewSubscriberID()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = handler
	return id
}

// Unsubscribe removes the handler with the given subscriber id.
func (r *Registry) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, id)
}

// Publish delivers the notification to every subscribed handler.
func (r *Registry) Publish(n Notification) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, handler := range r.handlers {
		handler(n)
	}
}
