// Package syncer reconstructs per-session conversation state from the
// agent's best-effort event stream: messages and their streaming parts, tool
// call lifecycles, pending permission and question requests, revert pointers,
// and file diffs. Delivery is not guaranteed, so the package also detects
// lost interactive-request events heuristically and fails open rather than
// leaving a session waiting forever.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/user/sketchd/internal/event"
	"github.com/user/sketchd/internal/notify"
	"github.com/user/sketchd/internal/types"
)

const (
	defaultStuckThreshold  = 3 * time.Second
	defaultReplyTimeout    = 30 * time.Second
	defaultMaxConcurrent   = 4
	defaultClosedCacheSize = 32
)

// Coordinator owns all session state. Events and user actions are applied as
// run-to-completion tasks on per-session lanes, so state for one session is
// mutated by exactly one goroutine at a time.
type Coordinator struct {
	agent  types.AgentClient
	notify *notify.Registry
	queue  *laneQueue

	mu       sync.RWMutex
	sessions map[types.SessionID]*sessionState
	closed   *lru.Cache[types.SessionID, *sessionState]
	active   types.SessionID

	clock          func() time.Time
	stuckThreshold time.Duration
	replyTimeout   time.Duration
}

// Option configures optional Coordinator behavior.
type Option func(*Coordinator)

// WithClock substitutes the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithStuckThreshold overrides how long a running interactive tool may lack
// a pending request before a warning is surfaced. Non-positive values keep
// the default.
func WithStuckThreshold(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.stuckThreshold = d
		}
	}
}

// WithReplyTimeout overrides the hard timeout on reply RPCs. Non-positive
// values keep the default.
func WithReplyTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.replyTimeout = d
		}
	}
}

// WithMaxConcurrent bounds how many session lanes execute at once.
// Non-positive values keep the default.
func WithMaxConcurrent(n int64) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.queue = newLaneQueue(n)
		}
	}
}

// New creates a Coordinator wired to the given agent client and notification
// registry.
func New(agent types.AgentClient, registry *notify.Registry, opts ...Option) *Coordinator {
	closed, _ := lru.New[types.SessionID, *sessionState](defaultClosedCacheSize)
	c := &Coordinator{
		agent:          agent,
		notify:         registry,
		queue:          newLaneQueue(defaultMaxConcurrent),
		sessions:       make(map[types.SessionID]*sessionState),
		closed:         closed,
		clock:          time.Now,
		stuckThreshold: defaultStuckThreshold,
		replyTimeout:   defaultReplyTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start initialises the coordinator's lanes. Must be called before events
// or user actions are applied.
func (c *Coordinator) Start(ctx context.Context) {
	c.queue.Start(ctx)
}

// Stop drains the lanes and cancels outstanding stuck timers.
func (c *Coordinator) Stop() {
	c.queue.Stop()
	c.mu.Lock()
	for _, s := range c.sessions {
		if s.stuckTimer != nil {
			s.stuckTimer.Stop()
		}
	}
	c.mu.Unlock()
}

// stateFor returns the session's state, restoring it from the closed-session
// cache or creating it fresh.
func (c *Coordinator) stateFor(id types.SessionID) *sessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[id]; ok {
		return s
	}
	if s, ok := c.closed.Get(id); ok {
		c.closed.Remove(id)
		c.sessions[id] = s
		return s
	}
	s := newSessionState(id)
	c.sessions[id] = s
	return s
}

// peek returns the session's state without creating it.
func (c *Coordinator) peek(id types.SessionID) *sessionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[id]
}

// HandleEvent routes one decoded event to its session's lane. Events with no
// discoverable session id are dropped; kinds with no handler fall through to
// a no-op. Handlers run synchronously on the lane, in arrival order.
func (c *Coordinator) HandleEvent(ev *event.Event) {
	if ev == nil {
		return
	}
	sid := ev.SessionID()
	if sid == "" {
		slog.Debug("dropping unroutable event", "type", string(ev.Type))
		return
	}
	if err := c.queue.Submit(sid, func() {
		c.dispatch(c.stateFor(sid), ev)
	}); err != nil {
		slog.Warn("event dropped", "type", string(ev.Type), "session_id", string(sid), "error", err)
	}
}

func (c *Coordinator) dispatch(s *sessionState, ev *event.Event) {
	switch ev.Type {
	case event.TypePartUpdated:
		s.applyPartUpdated(ev.Part, c.clock())
		c.reviseStuck(s)

	case event.TypeMessageUpdated:
		s.applyMessageUpdated(ev.Message)

	case event.TypeMessageRemoved:
		s.applyMessageRemoved(ev.MessageID)
		c.reviseStuck(s)

	case event.TypeSessionUpdated:
		s.info = ev.Session
		s.revert = ev.Session.Revert
		c.notify.Publish(notify.Notification{Kind: notify.KindSessionUpdated, SessionID: s.id})

	case event.TypeSessionStatus:
		s.status = ev.Status

	case event.TypeSessionIdle:
		s.status = "idle"

	case event.TypeSessionError:
		s.lastError = ev.Err
		c.notify.Publish(notify.Notification{Kind: notify.KindSessionError, SessionID: s.id, Error: ev.Err})

	case event.TypeSessionDiff:
		s.applyDiff(ev.Diff)
		c.notify.Publish(notify.Notification{Kind: notify.KindDiffUpdated, SessionID: s.id})

	case event.TypePermissionAsked:
		s.pendingPermissions.Add(ev.Permission.ID, ev.Permission)
		c.reviseStuck(s)

	case event.TypePermissionReplied:
		s.pendingPermissions.Remove(ev.RequestID)
		c.reviseStuck(s)

	case event.TypeQuestionAsked:
		s.pendingQuestions.Add(ev.Question.ID, ev.Question)
		c.reviseStuck(s)

	case event.TypeQuestionReplied, event.TypeQuestionRejected:
		s.pendingQuestions.Remove(ev.RequestID)
		c.reviseStuck(s)

	default:
		// Unknown or global kinds carry nothing for session state.
	}
}

// reviseStuck re-evaluates the stuck detector for the session after any
// change to its running or pending state. It either surfaces a warning,
// clears one, or schedules a one-shot re-evaluation for when the oldest
// stuck entry crosses the threshold. Any previously scheduled timer is
// cancelled first, so a timer only ever fires for still-current inputs.
func (c *Coordinator) reviseStuck(s *sessionState) {
	if s.stuckTimer != nil {
		s.stuckTimer.Stop()
		s.stuckTimer = nil
	}

	v := evaluateStuck(
		s.runningQuestion, s.runningPermission,
		s.pendingQuestions.Len() > 0, s.pendingPermissions.Len() > 0,
		c.clock(), c.stuckThreshold,
	)

	if !v.Stuck {
		if s.warningShown {
			s.warningShown = false
			c.notify.Publish(notify.Notification{
				Kind:      notify.KindStuckWarning,
				SessionID: s.id,
				Stuck:     &notify.StuckWarning{Show: false},
			})
		}
		return
	}

	if v.Show {
		s.warningShown = true
		warning := &notify.StuckWarning{
			Show:           true,
			Category:       v.Category,
			StuckSince:     v.StuckSince,
			ElapsedSeconds: int64(v.Elapsed / time.Second),
		}
		if v.Category == notify.StuckPermission {
			warning.Tool = v.Tool
		}
		c.notify.Publish(notify.Notification{Kind: notify.KindStuckWarning, SessionID: s.id, Stuck: warning})
		return
	}

	// Below threshold: re-check once the oldest entry would cross it. The
	// timer submits a task rather than mutating state directly, so the
	// re-evaluation serializes with everything else on the lane.
	sid := s.id
	s.stuckTimer = time.AfterFunc(v.Wait, func() {
		_ = c.queue.Submit(sid, func() {
			if st := c.peek(sid); st != nil {
				c.reviseStuck(st)
			}
		})
	})
}

// CloseSession tears down the session's ephemeral state (pending queues,
// running registries, timers) and parks the rest in a bounded cache so a
// quick reopen does not start from nothing. Other sessions are unaffected.
func (c *Coordinator) CloseSession(id types.SessionID) {
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil {
			s.clearEphemeral()
		}
	})
	c.mu.Lock()
	if s, ok := c.sessions[id]; ok {
		delete(c.sessions, id)
		c.closed.Add(id, s)
	}
	if c.active == id {
		c.active = ""
	}
	c.mu.Unlock()
}

// Active returns the currently active session id, if any.
func (c *Coordinator) Active() types.SessionID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// SetActive switches the active session.
func (c *Coordinator) SetActive(id types.SessionID) {
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
}
