package stream

import (
	"testing"
	"time"
)

func TestNextDelayGrowth(t *testing.T) {
	p := DefaultRetryPolicy()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1 * time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
	}
	for _, tt := range tests {
		if got := p.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %s, got %s", tt.attempt, tt.want, got)
		}
	}
}

func TestNextDelayCapped(t *testing.T) {
	p := DefaultRetryPolicy()
	if got := p.NextDelay(20); got != p.MaxDelay {
		t.Errorf("expected cap at %s, got %s", p.MaxDelay, got)
	}
}
