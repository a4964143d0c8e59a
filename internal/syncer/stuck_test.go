package syncer

import (
	"testing"
	"time"

	"github.com/user/sketchd/internal/notify"
	"github.com/user/sketchd/internal/types"
)

const testThreshold = 3 * time.Second

func running(entries ...types.RunningToolEntry) map[types.PartID]types.RunningToolEntry {
	out := make(map[types.PartID]types.RunningToolEntry, len(entries))
	for i, e := range entries {
		out[types.PartID(rune('a'+i))] = e
	}
	return out
}

func TestEvaluateStuckNotStuck(t *testing.T) {
	now := time.UnixMilli(10000)

	// No running tools at all.
	v := evaluateStuck(nil, nil, false, false, now, testThreshold)
	if v.Stuck {
		t.Error("expected not stuck with nothing running")
	}

	// Running tool with its pending request present.
	q := running(types.RunningToolEntry{Tool: "question", StartTime: 1000})
	v = evaluateStuck(q, nil, true, false, now, testThreshold)
	if v.Stuck {
		t.Error("expected not stuck when pending request exists")
	}
}

func TestEvaluateStuckOverThreshold(t *testing.T) {
	now := time.UnixMilli(10000)
	q := running(types.RunningToolEntry{Tool: "question", StartTime: 5000})

	v := evaluateStuck(q, nil, false, false, now, testThreshold)
	if !v.Stuck || !v.Show {
		t.Fatalf("expected visible warning, got %+v", v)
	}
	if v.Category != notify.StuckQuestion {
		t.Errorf("expected question category, got %s", v.Category)
	}
	if v.StuckSince != 5000 {
		t.Errorf("expected stuck since 5000, got %d", v.StuckSince)
	}
	if v.Elapsed != 5*time.Second {
		t.Errorf("expected elapsed 5s, got %s", v.Elapsed)
	}
}

func TestEvaluateStuckUnderThreshold(t *testing.T) {
	now := time.UnixMilli(10000)
	q := running(types.RunningToolEntry{Tool: "question", StartTime: 9000})

	v := evaluateStuck(q, nil, false, false, now, testThreshold)
	if !v.Stuck || v.Show {
		t.Fatalf("expected stuck but below threshold, got %+v", v)
	}
	if v.Wait != 2*time.Second {
		t.Errorf("expected wait 2s, got %s", v.Wait)
	}
}

func TestEvaluateStuckEarliestWins(t *testing.T) {
	now := time.UnixMilli(10000)
	q := running(types.RunningToolEntry{Tool: "question", StartTime: 4000})
	p := running(types.RunningToolEntry{Tool: "permission", StartTime: 2000})

	v := evaluateStuck(q, p, false, false, now, testThreshold)
	if v.Category != notify.StuckPermission {
		t.Errorf("expected permission (older), got %s", v.Category)
	}
	if v.Tool != "permission" {
		t.Errorf("expected tool name carried, got %q", v.Tool)
	}
}

func TestEvaluateStuckQuestionWinsTie(t *testing.T) {
	now := time.UnixMilli(10000)
	q := running(types.RunningToolEntry{Tool: "question", StartTime: 2000})
	p := running(types.RunningToolEntry{Tool: "permission", StartTime: 2000})

	v := evaluateStuck(q, p, false, false, now, testThreshold)
	if v.Category != notify.StuckQuestion {
		t.Errorf("expected question to win tie, got %s", v.Category)
	}
}

func TestEvaluateStuckOneCategoryPendingOtherStuck(t *testing.T) {
	now := time.UnixMilli(10000)
	q := running(types.RunningToolEntry{Tool: "question", StartTime: 1000})
	p := running(types.RunningToolEntry{Tool: "permission", StartTime: 2000})

	// Question has its request; only permission is stuck.
	v := evaluateStuck(q, p, true, false, now, testThreshold)
	if v.Category != notify.StuckPermission {
		t.Errorf("expected permission, got %s", v.Category)
	}
}

func TestEarliestEntry(t *testing.T) {
	entries := map[types.PartID]types.RunningToolEntry{
		"a": {Tool: "question", StartTime: 300},
		"b": {Tool: "question", StartTime: 100},
		"c": {Tool: "question", StartTime: 200},
	}
	min, tool := earliestEntry(entries)
	if min != 100 || tool != "question" {
		t.Errorf("expected (100, question), got (%d, %s)", min, tool)
	}
}
