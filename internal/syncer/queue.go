package syncer

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/user/sketchd/internal/types"
)

// task is one run-to-completion mutation of a session's state.
type task func()

// laneQueue gives each session a FIFO lane with a single consumer goroutine,
// while a global semaphore bounds how many lanes execute at once. Within a
// session, tasks never interleave: every state mutation for a session runs on
// its lane, which is what makes the running/pending bookkeeping safe without
// per-field locking.
type laneQueue struct {
	lanes     map[types.SessionID]chan task
	semaphore *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// newLaneQueue creates a queue allowing up to maxConcurrent lanes to execute
// tasks simultaneously.
func newLaneQueue(maxConcurrent int64) *laneQueue {
	return &laneQueue{
		lanes:     make(map[types.SessionID]chan task),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// Start initialises the queue's context. Must be called before Submit.
func (q *laneQueue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, closes all lanes, and waits for in-flight
// tasks to finish.
func (q *laneQueue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.mu.Lock()
	for _, lane := range q.lanes {
		close(lane)
	}
	q.lanes = make(map[types.SessionID]chan task)
	q.mu.Unlock()
	q.wg.Wait()
}

// Submit appends a task to the session's lane, creating the lane (and its
// goroutine) on first use. Returns an error if the lane's buffer is full.
func (q *laneQueue) Submit(id types.SessionID, fn task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx == nil || q.ctx.Err() != nil {
		return fmt.Errorf("queue stopped")
	}

	lane, exists := q.lanes[id]
	if !exists {
		lane = make(chan task, 256)
		q.lanes[id] = lane
		q.wg.Add(1)
		go q.processLane(lane)
	}

	select {
	case lane <- fn:
		return nil
	default:
		return fmt.Errorf("lane full for session %s", id)
	}
}

// Do submits a task and blocks until it has run.
func (q *laneQueue) Do(id types.SessionID, fn task) error {
	done := make(chan struct{})
	if err := q.Submit(id, func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-q.ctx.Done():
		return q.ctx.Err()
	}
}

// processLane drains a single lane, acquiring a semaphore slot before
// running each task synchronously. Tasks within a lane run strictly in
// submission order.
func (q *laneQueue) processLane(lane chan task) {
	defer q.wg.Done()
	for {
		select {
		case fn, ok := <-lane:
			if !ok {
				return
			}
			if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
				return
			}
			fn()
			q.semaphore.Release(1)
		case <-q.ctx.Done():
			return
		}
	}
}
