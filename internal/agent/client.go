// Package agent talks to the local agent process: an HTTP RPC client for
// replies and timeline operations, and a launcher that manages the process
// itself.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/user/sketchd/internal/types"
)

// Client is the HTTP RPC client for the agent's request endpoints. It
// implements types.AgentClient. Timeouts come from the caller's context; the
// underlying http.Client carries none of its own.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an RPC client for the agent at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// ReplyPermission answers a permission request.
func (c *Client) ReplyPermission(ctx context.Context, id types.RequestID, directory string, reply types.PermissionReply, message string) error {
	body := map[string]any{
		"directory": directory,
		"reply":     string(reply),
	}
	if message != "" {
		body["message"] = message
	}
	return c.post(ctx, fmt.Sprintf("/permission/%s/reply", id), body, nil)
}

// AnswerQuestion submits one selection list per question.
func (c *Client) AnswerQuestion(ctx context.Context, id types.RequestID, answers [][]string) error {
	return c.post(ctx, fmt.Sprintf("/question/%s/answer", id), map[string]any{"answers": answers}, nil)
}

// RejectQuestion dismisses a question request.
func (c *Client) RejectQuestion(ctx context.Context, id types.RequestID) error {
	return c.post(ctx, fmt.Sprintf("/question/%s/reject", id), nil, nil)
}

// CreateSessionFromHistory forks a new session from the given message of an
// existing one and returns the new session's id.
func (c *Client) CreateSessionFromHistory(ctx context.Context, sessionID types.SessionID, messageID types.MessageID) (types.SessionID, error) {
	var out struct {
		ID types.SessionID `json:"id"`
	}
	err := c.post(ctx, fmt.Sprintf("/session/%s/fork", sessionID), map[string]any{"messageID": string(messageID)}, &out)
	if err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("fork response missing session id")
	}
	return out.ID, nil
}

// Revert moves the session's revert pointer to the given message.
func (c *Client) Revert(ctx context.Context, sessionID types.SessionID, messageID types.MessageID) error {
	return c.post(ctx, fmt.Sprintf("/session/%s/revert", sessionID), map[string]any{"messageID": string(messageID)}, nil)
}

// ClearRevert removes the session's revert pointer.
func (c *Client) ClearRevert(ctx context.Context, sessionID types.SessionID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+fmt.Sprintf("/session/%s/revert", sessionID), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
