package syncer

import (
	"time"

	"github.com/user/sketchd/internal/notify"
	"github.com/user/sketchd/internal/types"
)

// stuckVerdict is the outcome of one stuck evaluation. Stuck false means no
// category is stuck and any shown warning should be cleared. When Stuck is
// true and Show is false, the oldest stuck entry has not yet crossed the
// threshold; Wait says how long until it will.
type stuckVerdict struct {
	Stuck      bool
	Show       bool
	Category   notify.StuckCategory
	Tool       string
	StuckSince int64 // epoch ms
	Elapsed    time.Duration
	Wait       time.Duration
}

// evaluateStuck is a pure function of the running and pending state. A
// category is stuck when it has a running interactive tool but no pending
// request, meaning the request event was lost. When both categories are stuck the
// one whose oldest entry started first wins; questions win ties.
func evaluateStuck(runningQ, runningP map[types.PartID]types.RunningToolEntry, pendingQ, pendingP bool, now time.Time, threshold time.Duration) stuckVerdict {
	stuckQ := len(runningQ) > 0 && !pendingQ
	stuckP := len(runningP) > 0 && !pendingP
	if !stuckQ && !stuckP {
		return stuckVerdict{}
	}

	qMin, qTool := earliestEntry(runningQ)
	pMin, pTool := earliestEntry(runningP)

	v := stuckVerdict{Stuck: true}
	switch {
	case stuckQ && stuckP:
		if qMin <= pMin {
			v.Category, v.StuckSince, v.Tool = notify.StuckQuestion, qMin, qTool
		} else {
			v.Category, v.StuckSince, v.Tool = notify.StuckPermission, pMin, pTool
		}
	case stuckQ:
		v.Category, v.StuckSince, v.Tool = notify.StuckQuestion, qMin, qTool
	default:
		v.Category, v.StuckSince, v.Tool = notify.StuckPermission, pMin, pTool
	}

	v.Elapsed = time.Duration(now.UnixMilli()-v.StuckSince) * time.Millisecond
	if v.Elapsed >= threshold {
		v.Show = true
	} else {
		v.Wait = threshold - v.Elapsed
	}
	return v
}

// earliestEntry returns the minimum start time and its tool name, or
// (MaxInt64, "") when the registry is empty.
func earliestEntry(registry map[types.PartID]types.RunningToolEntry) (int64, string) {
	min := int64(1<<63 - 1)
	tool := ""
	for _, e := range registry {
		if e.StartTime < min {
			min, tool = e.StartTime, e.Tool
		}
	}
	return min, tool
}
