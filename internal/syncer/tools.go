package syncer

import (
	"strings"
	"time"

	"github.com/user/sketchd/internal/types"
)

// The two interactive tool kinds. Any other tool runs without a matching
// pending request and never participates in stuck detection.
func isQuestionTool(name string) bool {
	switch strings.ToLower(name) {
	case "question", "askuserquestion":
		return true
	}
	return false
}

func isPermissionTool(name string) bool {
	switch strings.ToLower(name) {
	case "permission", "requestpermission", "request_permission":
		return true
	}
	return false
}

// allowToolTransition applies the monotonic state rule: a tool call may only
// move forward through pending -> running -> completed/error. Updates that
// would move it backwards are rejected. Terminal states never change.
func allowToolTransition(prev, next *types.MessagePart) bool {
	if prev == nil || prev.State == nil || next.State == nil {
		return true
	}
	return next.State.Status.Rank() >= prev.State.Status.Rank()
}

// trackTool maintains the running registries for question and permission
// tools: an entry exists exactly while the invocation is in the running
// state, keyed by part id.
func (s *sessionState) trackTool(part *types.MessagePart, now time.Time) {
	if part.State == nil {
		return
	}

	var registry map[types.PartID]types.RunningToolEntry
	switch {
	case isQuestionTool(part.Tool):
		registry = s.runningQuestion
	case isPermissionTool(part.Tool):
		registry = s.runningPermission
	default:
		return
	}

	switch {
	case part.State.Status == types.ToolRunning:
		if _, ok := registry[part.ID]; !ok {
			registry[part.ID] = types.RunningToolEntry{
				Tool:      part.Tool,
				StartTime: now.UnixMilli(),
			}
		}
	case part.State.Status.Terminal():
		delete(registry, part.ID)
	}
}

// abortRunningTools forcibly clears both running registries. This is the
// fail-open escape hatch used when a reply fails or times out and the
// server-side truth is no longer knowable.
func (s *sessionState) abortRunningTools() {
	clear(s.runningQuestion)
	clear(s.runningPermission)
}
