package syncer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/sketchd/internal/types"
)

// Fork creates a new session seeded with the message history up to and
// including messageID. The prefix is snapshotted before the RPC so a
// concurrent stream update cannot leak post-fork messages into the child,
// and the child session becomes active on success.
func (c *Coordinator) Fork(ctx context.Context, sessionID types.SessionID, messageID types.MessageID) (types.SessionID, error) {
	var prefix []*types.Message
	if err := c.queue.Do(sessionID, func() {
		if s := c.peek(sessionID); s != nil {
			prefix = s.messagePrefix(messageID)
		}
	}); err != nil {
		return "", err
	}
	if prefix == nil {
		return "", fmt.Errorf("fork session %s: message %s not found", sessionID, messageID)
	}

	newID, err := c.agent.CreateSessionFromHistory(ctx, sessionID, messageID)
	if err != nil {
		return "", fmt.Errorf("fork session %s: %w", sessionID, err)
	}

	if err := c.queue.Do(newID, func() {
		s := c.stateFor(newID)
		for _, m := range prefix {
			s.messages = append(s.messages, m)
			s.byID[m.Info.ID] = m
		}
	}); err != nil {
		return "", err
	}
	c.SetActive(newID)
	slog.Info("forked session", "session_id", string(sessionID), "new_session_id", string(newID), "message_id", string(messageID))
	return newID, nil
}

// RevertTo asks the agent to move the session's revert pointer to the given
// message. The local pointer is not touched here: the agent confirms the
// move with a session.updated event carrying the new revert state.
func (c *Coordinator) RevertTo(ctx context.Context, sessionID types.SessionID, messageID types.MessageID) error {
	if err := c.agent.Revert(ctx, sessionID, messageID); err != nil {
		return fmt.Errorf("revert session %s: %w", sessionID, err)
	}
	return nil
}

// Unrevert clears the session's revert pointer on the agent and then
// locally. The local clear is not left to the event stream: a lost
// session.updated would otherwise strand the UI on a stale pointer.
func (c *Coordinator) Unrevert(ctx context.Context, sessionID types.SessionID) error {
	if err := c.agent.ClearRevert(ctx, sessionID); err != nil {
		return fmt.Errorf("unrevert session %s: %w", sessionID, err)
	}
	return c.queue.Do(sessionID, func() {
		s := c.peek(sessionID)
		if s == nil {
			return
		}
		s.revert = nil
		if s.info != nil {
			s.info.Revert = nil
		}
	})
}
