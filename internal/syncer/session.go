package syncer

import (
	"time"

	"github.com/user/sketchd/internal/types"
)

// sessionState is the reconstructed view of one conversation. It is mutated
// only from the session's lane, so it carries no lock of its own.
type sessionState struct {
	id   types.SessionID
	info *types.SessionInfo

	messages []*types.Message // arrival order
	byID     map[types.MessageID]*types.Message

	diffs   []types.FileDiff
	diffIdx map[string]int // file path -> index into diffs

	revert    *types.RevertPointer
	status    string
	lastError string

	pendingPermissions *requestQueue[types.PermissionRequest]
	pendingQuestions   *requestQueue[types.QuestionRequest]
	runningQuestion    map[types.PartID]types.RunningToolEntry
	runningPermission  map[types.PartID]types.RunningToolEntry

	stuckTimer   *time.Timer
	warningShown bool
}

func newSessionState(id types.SessionID) *sessionState {
	return &sessionState{
		id:                 id,
		byID:               make(map[types.MessageID]*types.Message),
		diffIdx:            make(map[string]int),
		pendingPermissions: newRequestQueue[types.PermissionRequest](),
		pendingQuestions:   newRequestQueue[types.QuestionRequest](),
		runningQuestion:    make(map[types.PartID]types.RunningToolEntry),
		runningPermission:  make(map[types.PartID]types.RunningToolEntry),
	}
}

// applyMessageUpdated upserts the message record. New messages are appended
// in arrival order; known ones only refresh their info.
func (s *sessionState) applyMessageUpdated(info *types.MessageInfo) {
	if msg, ok := s.byID[info.ID]; ok {
		msg.Info = *info
		return
	}
	msg := &types.Message{Info: *info}
	s.byID[info.ID] = msg
	s.messages = append(s.messages, msg)
}

// applyPartUpdated merges one part update. The owning message is created
// lazily when a part arrives before its message.updated. A part with a known
// id is replaced in place, preserving its position; otherwise it is appended.
// Tool parts additionally go through the monotonic state rule: an update
// that would move the tool state backwards is dropped entirely.
func (s *sessionState) applyPartUpdated(part *types.MessagePart, now time.Time) {
	msg, ok := s.byID[part.MessageID]
	if !ok {
		msg = &types.Message{Info: types.MessageInfo{ID: part.MessageID, SessionID: s.id}}
		s.byID[part.MessageID] = msg
		s.messages = append(s.messages, msg)
	}

	var prev *types.MessagePart
	idx := -1
	for i, p := range msg.Parts {
		if p.ID == part.ID {
			prev, idx = p, i
			break
		}
	}

	if part.Type == types.PartTool {
		if !allowToolTransition(prev, part) {
			return
		}
		s.trackTool(part, now)
	}

	if idx >= 0 {
		msg.Parts[idx] = part
	} else {
		msg.Parts = append(msg.Parts, part)
	}
}

// applyMessageRemoved deletes the message and all its parts, and drops any
// running-tool entries those parts owned.
func (s *sessionState) applyMessageRemoved(id types.MessageID) {
	msg, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	for i, m := range s.messages {
		if m == msg {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	for _, p := range msg.Parts {
		delete(s.runningQuestion, p.ID)
		delete(s.runningPermission, p.ID)
	}
}

// applyDiff upserts diff records by file path, keeping first-seen order.
func (s *sessionState) applyDiff(diffs []types.FileDiff) {
	for _, d := range diffs {
		if i, ok := s.diffIdx[d.File]; ok {
			s.diffs[i] = d
			continue
		}
		s.diffIdx[d.File] = len(s.diffs)
		s.diffs = append(s.diffs, d)
	}
}

// message returns the message with the given id, or nil.
func (s *sessionState) message(id types.MessageID) *types.Message {
	return s.byID[id]
}

// messagePrefix returns deep copies of the messages up to and including the
// given id, in arrival order, or nil if the id is unknown.
func (s *sessionState) messagePrefix(id types.MessageID) []*types.Message {
	if _, ok := s.byID[id]; !ok {
		return nil
	}
	var out []*types.Message
	for _, m := range s.messages {
		out = append(out, m.Clone())
		if m.Info.ID == id {
			return out
		}
	}
	return nil
}

// clearEphemeral drops the session's queues, registries, and timers when it
// is closed. Messages and diffs survive so a reopened session does not need
// a full replay.
func (s *sessionState) clearEphemeral() {
	if s.stuckTimer != nil {
		s.stuckTimer.Stop()
		s.stuckTimer = nil
	}
	s.pendingPermissions = newRequestQueue[types.PermissionRequest]()
	s.pendingQuestions = newRequestQueue[types.QuestionRequest]()
	s.runningQuestion = make(map[types.PartID]types.RunningToolEntry)
	s.runningPermission = make(map[types.PartID]types.RunningToolEntry)
	s.warningShown = false
}
