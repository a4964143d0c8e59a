package syncer

import (
	"testing"
	"time"

	"github.com/user/sketchd/internal/types"
)

func textPart(id types.PartID, msgID types.MessageID, text string) *types.MessagePart {
	return &types.MessagePart{
		ID:        id,
		MessageID: msgID,
		SessionID: "s1",
		Type:      types.PartText,
		Text:      text,
	}
}

func toolPart(id types.PartID, msgID types.MessageID, tool string, status types.ToolStatus) *types.MessagePart {
	return &types.MessagePart{
		ID:        id,
		MessageID: msgID,
		SessionID: "s1",
		Type:      types.PartTool,
		Tool:      tool,
		State:     &types.ToolState{Status: status},
	}
}

func TestPartMergePreservesPosition(t *testing.T) {
	s := newSessionState("s1")
	now := time.Now()

	s.applyPartUpdated(textPart("p1", "m1", "Hel"), now)
	s.applyPartUpdated(textPart("p2", "m1", "world"), now)
	s.applyPartUpdated(textPart("p1", "m1", "Hello"), now)

	msg := s.message("m1")
	if msg == nil {
		t.Fatal("expected message m1")
	}
	if len(msg.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(msg.Parts))
	}
	if msg.Parts[0].ID != "p1" || msg.Parts[0].Text != "Hello" {
		t.Errorf("expected p1 updated in place, got %+v", msg.Parts[0])
	}
	if msg.Parts[1].ID != "p2" {
		t.Errorf("expected p2 second, got %s", msg.Parts[1].ID)
	}
}

func TestPartBeforeMessageCreatesPlaceholder(t *testing.T) {
	s := newSessionState("s1")
	s.applyPartUpdated(textPart("p1", "m1", "early"), time.Now())

	msg := s.message("m1")
	if msg == nil {
		t.Fatal("expected placeholder message")
	}
	if msg.Info.SessionID != "s1" {
		t.Errorf("expected placeholder bound to s1, got %s", msg.Info.SessionID)
	}

	// The real record fills in the info without losing parts.
	s.applyMessageUpdated(&types.MessageInfo{ID: "m1", SessionID: "s1", Role: types.RoleAssistant})
	msg = s.message("m1")
	if msg.Info.Role != types.RoleAssistant {
		t.Errorf("expected role filled in, got %q", msg.Info.Role)
	}
	if len(msg.Parts) != 1 {
		t.Errorf("expected part preserved, got %d parts", len(msg.Parts))
	}
	if len(s.messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(s.messages))
	}
}

func TestMessageRemovedDropsRunningEntries(t *testing.T) {
	s := newSessionState("s1")
	now := time.Now()

	s.applyPartUpdated(toolPart("p1", "m1", "question", types.ToolRunning), now)
	if len(s.runningQuestion) != 1 {
		t.Fatalf("expected 1 running question entry, got %d", len(s.runningQuestion))
	}

	s.applyMessageRemoved("m1")
	if s.message("m1") != nil {
		t.Error("expected message removed")
	}
	if len(s.runningQuestion) != 0 {
		t.Errorf("expected running entries cleared, got %d", len(s.runningQuestion))
	}
}

func TestMessageRemovedUnknownIsNoop(t *testing.T) {
	s := newSessionState("s1")
	s.applyMessageUpdated(&types.MessageInfo{ID: "m1", SessionID: "s1"})
	s.applyMessageRemoved("m9")
	if len(s.messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(s.messages))
	}
}

func TestDiffUpsertKeepsFirstSeenOrder(t *testing.T) {
	s := newSessionState("s1")

	s.applyDiff([]types.FileDiff{
		{File: "a.go", Additions: 1},
		{File: "b.go", Additions: 2},
	})
	s.applyDiff([]types.FileDiff{
		{File: "a.go", Additions: 5},
	})

	if len(s.diffs) != 2 {
		t.Fatalf("expected 2 diffs, got %d", len(s.diffs))
	}
	if s.diffs[0].File != "a.go" || s.diffs[0].Additions != 5 {
		t.Errorf("expected a.go updated in place, got %+v", s.diffs[0])
	}
	if s.diffs[1].File != "b.go" {
		t.Errorf("expected b.go second, got %s", s.diffs[1].File)
	}
}

func TestMessagePrefix(t *testing.T) {
	s := newSessionState("s1")
	for _, id := range []types.MessageID{"m1", "m2", "m3"} {
		s.applyMessageUpdated(&types.MessageInfo{ID: id, SessionID: "s1"})
	}
	s.applyPartUpdated(textPart("p1", "m2", "body"), time.Now())

	prefix := s.messagePrefix("m2")
	if len(prefix) != 2 {
		t.Fatalf("expected prefix of 2, got %d", len(prefix))
	}
	if prefix[1].Info.ID != "m2" {
		t.Errorf("expected prefix to end at m2, got %s", prefix[1].Info.ID)
	}

	// Deep copies: mutating the prefix must not touch the live state.
	prefix[1].Parts[0].Text = "mutated"
	if s.message("m2").Parts[0].Text != "body" {
		t.Error("prefix mutation leaked into session state")
	}

	if s.messagePrefix("m9") != nil {
		t.Error("expected nil prefix for unknown message")
	}
}

func TestClearEphemeralKeepsMessages(t *testing.T) {
	s := newSessionState("s1")
	now := time.Now()
	s.applyMessageUpdated(&types.MessageInfo{ID: "m1", SessionID: "s1"})
	s.applyPartUpdated(toolPart("p1", "m1", "question", types.ToolRunning), now)
	s.pendingQuestions.Add("q1", &types.QuestionRequest{ID: "q1", SessionID: "s1"})
	s.warningShown = true

	s.clearEphemeral()

	if len(s.messages) != 1 {
		t.Errorf("expected messages kept, got %d", len(s.messages))
	}
	if s.pendingQuestions.Len() != 0 || len(s.runningQuestion) != 0 {
		t.Error("expected pending and running state cleared")
	}
	if s.warningShown {
		t.Error("expected warning flag cleared")
	}
}
