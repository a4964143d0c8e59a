package syncer

import (
	"github.com/user/sketchd/internal/types"
)

// requestQueue is an insertion-ordered map of pending interactive requests.
// Each id is inserted at most once and removed at most once.
type requestQueue[T any] struct {
	order []types.RequestID
	byID  map[types.RequestID]*T
}

func newRequestQueue[T any]() *requestQueue[T] {
	return &requestQueue[T]{byID: make(map[types.RequestID]*T)}
}

// Add inserts the request unless the id is already pending. Returns true if
// the request was inserted.
func (q *requestQueue[T]) Add(id types.RequestID, req *T) bool {
	if _, ok := q.byID[id]; ok {
		return false
	}
	q.byID[id] = req
	q.order = append(q.order, id)
	return true
}

// Remove deletes the request by id. Returns true if it was pending.
func (q *requestQueue[T]) Remove(id types.RequestID) bool {
	if _, ok := q.byID[id]; !ok {
		return false
	}
	delete(q.byID, id)
	for i, other := range q.order {
		if other == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the pending request with the given id, or nil.
func (q *requestQueue[T]) Get(id types.RequestID) *T {
	return q.byID[id]
}

// List returns the pending requests in insertion order.
func (q *requestQueue[T]) List() []*T {
	out := make([]*T, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.byID[id])
	}
	return out
}

// Len returns the number of pending requests.
func (q *requestQueue[T]) Len() int {
	return len(q.byID)
}
