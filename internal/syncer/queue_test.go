package syncer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/sketchd/internal/types"
)

func TestLaneQueueConcurrency(t *testing.T) {
	queue := newLaneQueue(2)
	queue.Start(context.Background())
	defer queue.Stop()

	var running int32
	var maxSeen int32

	for i := 0; i < 5; i++ {
		id := types.SessionID(fmt.Sprintf("session-%d", i))
		err := queue.Submit(id, func() {
			current := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&maxSeen)
				if current <= old || atomic.CompareAndSwapInt32(&maxSeen, old, current) {
					break
				}
			}
			time.Sleep(50 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	time.Sleep(500 * time.Millisecond)

	if m := atomic.LoadInt32(&maxSeen); m > 2 {
		t.Errorf("expected max 2 concurrent, saw %d", m)
	}
}

func TestLaneQueueFIFOPerSession(t *testing.T) {
	queue := newLaneQueue(4)
	queue.Start(context.Background())
	defer queue.Stop()

	var mu sync.Mutex
	var order []int

	for i := 0; i < 20; i++ {
		i := i
		if err := queue.Submit("s1", func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}); err != nil {
			t.Fatal(err)
		}
	}

	done := make(chan struct{})
	if err := queue.Submit("s1", func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected task %d at position %d, got %d", i, i, v)
		}
	}
}

func TestLaneQueueDo(t *testing.T) {
	queue := newLaneQueue(1)
	queue.Start(context.Background())
	defer queue.Stop()

	ran := false
	if err := queue.Do("s1", func() { ran = true }); err != nil {
		t.Fatal(err)
	}
	if !ran {
		t.Error("expected Do task to have run before return")
	}
}

func TestLaneQueueSubmitAfterStop(t *testing.T) {
	queue := newLaneQueue(1)
	queue.Start(context.Background())
	queue.Stop()

	if err := queue.Submit("s1", func() {}); err == nil {
		t.Error("expected error submitting to stopped queue")
	}
}
