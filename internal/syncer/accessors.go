package syncer

import (
	"github.com/user/sketchd/internal/types"
)

// Read accessors. Each runs on the session's lane so the copy it returns is
// a consistent point-in-time view. None of them create session state: an
// unknown session reads as empty.

// Messages returns deep copies of the session's messages in arrival order.
func (c *Coordinator) Messages(id types.SessionID) []*types.Message {
	var out []*types.Message
	_ = c.queue.Do(id, func() {
		s := c.peek(id)
		if s == nil {
			return
		}
		out = make([]*types.Message, 0, len(s.messages))
		for _, m := range s.messages {
			out = append(out, m.Clone())
		}
	})
	return out
}

// Session returns a copy of the session's info record, or nil when none has
// arrived yet.
func (c *Coordinator) Session(id types.SessionID) *types.SessionInfo {
	var out *types.SessionInfo
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil && s.info != nil {
			info := *s.info
			out = &info
		}
	})
	return out
}

// PendingPermissions returns the session's pending permission requests in
// arrival order.
func (c *Coordinator) PendingPermissions(id types.SessionID) []*types.PermissionRequest {
	var out []*types.PermissionRequest
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil {
			out = s.pendingPermissions.List()
		}
	})
	return out
}

// PendingQuestions returns the session's pending question requests in
// arrival order.
func (c *Coordinator) PendingQuestions(id types.SessionID) []*types.QuestionRequest {
	var out []*types.QuestionRequest
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil {
			out = s.pendingQuestions.List()
		}
	})
	return out
}

// RunningQuestionTools returns a copy of the running question-tool registry.
func (c *Coordinator) RunningQuestionTools(id types.SessionID) map[types.PartID]types.RunningToolEntry {
	return c.runningTools(id, func(s *sessionState) map[types.PartID]types.RunningToolEntry {
		return s.runningQuestion
	})
}

// RunningPermissionTools returns a copy of the running permission-tool
// registry.
func (c *Coordinator) RunningPermissionTools(id types.SessionID) map[types.PartID]types.RunningToolEntry {
	return c.runningTools(id, func(s *sessionState) map[types.PartID]types.RunningToolEntry {
		return s.runningPermission
	})
}

func (c *Coordinator) runningTools(id types.SessionID, pick func(*sessionState) map[types.PartID]types.RunningToolEntry) map[types.PartID]types.RunningToolEntry {
	out := map[types.PartID]types.RunningToolEntry{}
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil {
			for k, v := range pick(s) {
				out[k] = v
			}
		}
	})
	return out
}

// RevertPointer returns a copy of the session's revert pointer, or nil when
// the session is not reverted.
func (c *Coordinator) RevertPointer(id types.SessionID) *types.RevertPointer {
	var out *types.RevertPointer
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil && s.revert != nil {
			rp := *s.revert
			out = &rp
		}
	})
	return out
}

// Diffs returns the session's file diffs in first-seen order.
func (c *Coordinator) Diffs(id types.SessionID) []types.FileDiff {
	var out []types.FileDiff
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil {
			out = append(out, s.diffs...)
		}
	})
	return out
}

// Status returns the session's last reported status string.
func (c *Coordinator) Status(id types.SessionID) string {
	var out string
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil {
			out = s.status
		}
	})
	return out
}

// LastError returns the session's last reported error message, if any.
func (c *Coordinator) LastError(id types.SessionID) string {
	var out string
	_ = c.queue.Do(id, func() {
		if s := c.peek(id); s != nil {
			out = s.lastError
		}
	})
	return out
}
