//go:build integration

package test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/sketchd/internal/agent"
	"github.com/user/sketchd/internal/notify"
	"github.com/user/sketchd/internal/stream"
	"github.com/user/sketchd/internal/syncer"
	"github.com/user/sketchd/internal/types"
)

func TestEndToEnd(t *testing.T) {
	events := []string{
		`{"type":"session.updated","properties":{"info":{"id":"s1","title":"demo","time":{"created":1,"updated":1}}}}`,
		`{"type":"message.updated","properties":{"info":{"id":"m1","sessionID":"s1","role":"user","time":{"created":1,"completed":1}}}}`,
		`{"type":"message.updated","properties":{"info":{"id":"m2","sessionID":"s1","role":"assistant","time":{"created":2}}}}`,
		`{"type":"message.part.updated","properties":{"part":{"id":"p1","messageID":"m2","sessionID":"s1","type":"text","text":"Hel"}}}`,
		`{"type":"message.part.updated","properties":{"part":{"id":"p1","messageID":"m2","sessionID":"s1","type":"text","text":"Hello"}}}`,
		`{"type":"session.diff","properties":{"sessionID":"s1","diff":[{"file":"a.go","before":"","after":"x","additions":1,"deletions":0}]}}`,
		`{"type":"permission.asked","properties":{"id":"perm1","sessionID":"s1","permission":"bash"}}`,
	}

	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/event" {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, ev := range events {
				fmt.Fprintf(w, "data: %s\n\n", ev)
				flusher.Flush()
			}
			// Keep the stream open until the client goes away.
			<-r.Context().Done()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer stub.Close()

	rpc := agent.NewClient(stub.URL)
	registry := notify.NewRegistry()
	coord := syncer.New(rpc, registry)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	coord.Start(ctx)
	defer coord.Stop()

	client := stream.NewClient(stub.URL, coord.HandleEvent)
	go client.Run(ctx)

	deadline := time.After(3 * time.Second)
	for {
		if len(coord.PendingPermissions("s1")) == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for stream to sync")
		case <-time.After(20 * time.Millisecond):
		}
	}

	msgs := coord.Messages("s1")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[1].Parts[0].Text != "Hello" {
		t.Errorf("expected merged part text, got %q", msgs[1].Parts[0].Text)
	}
	if !msgs[1].Info.Streaming() {
		t.Error("expected assistant message still streaming")
	}
	if diffs := coord.Diffs("s1"); len(diffs) != 1 || diffs[0].File != "a.go" {
		t.Errorf("unexpected diffs: %+v", diffs)
	}

	// Replying goes through the RPC stub and clears the pending request.
	if err := coord.ReplyPermission(ctx, "s1", "perm1", types.ReplyOnce, ""); err != nil {
		t.Fatal(err)
	}
	if got := coord.PendingPermissions("s1"); len(got) != 0 {
		t.Errorf("expected pending cleared, got %d", len(got))
	}
}
