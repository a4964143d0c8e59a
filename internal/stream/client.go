// Package stream maintains the daemon's subscription to the agent's SSE
// event feed. The feed is best effort: the client reconnects forever with
// exponential backoff and hands every decoded event to a single handler.
package stream

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/user/sketchd/internal/event"
	"github.com/user/sketchd/internal/types"
)

// scanBufferSize bounds a single SSE event. Part updates carry full tool
// output, which can be large.
const scanBufferSize = 4 * 1024 * 1024

// Handler receives each decoded event in stream order.
type Handler func(*event.Event)

// Client subscribes to the agent's /event feed and dispatches decoded
// events. One Client runs one subscription; Run owns the connection loop.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
	handler  Handler
	policy   *RetryPolicy

	lastEventAt atomic.Int64 // epoch ms
}

// NewClient creates a stream client for the agent at baseURL. Events are
// delivered to handler sequentially from a single goroutine.
func NewClient(baseURL string, handler Handler) *Client {
	return &Client{
		baseURL:  baseURL,
		clientID: types.NewClientID(),
		http:     &http.Client{}, // no timeout: the stream is long-lived
		handler:  handler,
		policy:   DefaultRetryPolicy(),
	}
}

// LastEventAt returns when the most recent event (of any kind, heartbeats
// included) arrived, as epoch milliseconds. Zero means no event yet.
func (c *Client) LastEventAt() int64 {
	return c.lastEventAt.Load()
}

// Run connects to the event feed and dispatches events until ctx is
// cancelled. Every disconnect is retried with backoff; receiving an event
// resets the backoff schedule.
func (c *Client) Run(ctx context.Context) {
	attempt := 1
	for {
		if ctx.Err() != nil {
			return
		}
		delivered, err := c.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if delivered > 0 {
			attempt = 1
		}

		delay := c.policy.NextDelay(attempt)
		attempt++
		slog.Warn("event stream disconnected", "error", err, "events", delivered, "retry_in", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// consume opens one stream connection and dispatches events until it
// breaks. Returns how many events were delivered on this connection.
func (c *Client) consume(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/event?clientID=%s", c.baseURL, c.clientID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("connect event stream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("event stream returned status %d", resp.StatusCode)
	}
	slog.Info("event stream connected", "url", c.baseURL, "client_id", c.clientID)

	delivered := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), scanBufferSize)

	var data []byte
	for scanner.Scan() {
		line := scanner.Bytes()
		switch {
		case len(line) == 0:
			// Blank line terminates one SSE event.
			if len(data) > 0 {
				c.deliver(data)
				delivered++
				data = nil
			}
		case bytes.HasPrefix(line, []byte("data:")):
			payload := bytes.TrimPrefix(line, []byte("data:"))
			payload = bytes.TrimPrefix(payload, []byte(" "))
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, payload...)
		default:
			// Comments and other SSE fields are ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return delivered, fmt.Errorf("read event stream: %w", err)
	}
	return delivered, fmt.Errorf("event stream closed by server")
}

func (c *Client) deliver(data []byte) {
	c.lastEventAt.Store(time.Now().UnixMilli())
	ev := event.Decode(data)
	if ev == nil {
		slog.Debug("discarding undecodable event", "bytes", len(data))
		return
	}
	c.handler(ev)
}
