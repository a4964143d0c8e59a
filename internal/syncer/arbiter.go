package syncer

import (
	"context"
	"errors"
	"log/slog"

	"github.com/user/sketchd/internal/types"
)

// ErrNotPending is returned when a reply targets a request that is not in
// the session's pending queue.
var ErrNotPending = errors.New("request not pending")

// ReplyPermission answers a pending permission request. The RPC runs under
// the reply timeout; whatever its outcome, the request leaves the pending
// queue exactly once. On failure or timeout the session's running tools are
// aborted as well: the server-side truth is unknowable at that point and a
// stuck UI is worse than a discarded prompt. A reply that completes on the
// server after the timeout is ignored.
func (c *Coordinator) ReplyPermission(ctx context.Context, sessionID types.SessionID, id types.RequestID, reply types.PermissionReply, message string) error {
	var (
		req       *types.PermissionRequest
		directory string
	)
	if err := c.queue.Do(sessionID, func() {
		s := c.peek(sessionID)
		if s == nil {
			return
		}
		req = s.pendingPermissions.Get(id)
		if s.info != nil {
			directory = s.info.Directory
		}
	}); err != nil {
		return err
	}
	if req == nil {
		return ErrNotPending
	}

	rctx, cancel := context.WithTimeout(ctx, c.replyTimeout)
	defer cancel()
	rpcErr := c.agent.ReplyPermission(rctx, id, directory, reply, message)

	if err := c.finishRequest(sessionID, rpcErr, func(s *sessionState) bool {
		return s.pendingPermissions.Remove(id)
	}); err != nil {
		return err
	}
	if rpcErr != nil {
		slog.Warn("permission reply failed", "session_id", string(sessionID), "request_id", string(id), "error", rpcErr)
	}
	return rpcErr
}

// AnswerQuestion answers a pending question request with one selection list
// per question. Same fail-open contract as ReplyPermission.
func (c *Coordinator) AnswerQuestion(ctx context.Context, sessionID types.SessionID, id types.RequestID, answers [][]string) error {
	if !c.questionPending(sessionID, id) {
		return ErrNotPending
	}

	rctx, cancel := context.WithTimeout(ctx, c.replyTimeout)
	defer cancel()
	rpcErr := c.agent.AnswerQuestion(rctx, id, answers)

	if err := c.finishRequest(sessionID, rpcErr, func(s *sessionState) bool {
		return s.pendingQuestions.Remove(id)
	}); err != nil {
		return err
	}
	if rpcErr != nil {
		slog.Warn("question answer failed", "session_id", string(sessionID), "request_id", string(id), "error", rpcErr)
	}
	return rpcErr
}

// RejectQuestion dismisses a pending question request.
func (c *Coordinator) RejectQuestion(ctx context.Context, sessionID types.SessionID, id types.RequestID) error {
	if !c.questionPending(sessionID, id) {
		return ErrNotPending
	}

	rctx, cancel := context.WithTimeout(ctx, c.replyTimeout)
	defer cancel()
	rpcErr := c.agent.RejectQuestion(rctx, id)

	if err := c.finishRequest(sessionID, rpcErr, func(s *sessionState) bool {
		return s.pendingQuestions.Remove(id)
	}); err != nil {
		return err
	}
	if rpcErr != nil {
		slog.Warn("question reject failed", "session_id", string(sessionID), "request_id", string(id), "error", rpcErr)
	}
	return rpcErr
}

func (c *Coordinator) questionPending(sessionID types.SessionID, id types.RequestID) bool {
	pending := false
	_ = c.queue.Do(sessionID, func() {
		if s := c.peek(sessionID); s != nil {
			pending = s.pendingQuestions.Get(id) != nil
		}
	})
	return pending
}

// finishRequest applies the post-RPC bookkeeping on the session's lane:
// remove the request from pending regardless of outcome, abort running
// tools on failure, and re-evaluate the stuck detector. The removal is
// idempotent: an echo event may have removed the request already.
func (c *Coordinator) finishRequest(sessionID types.SessionID, rpcErr error, remove func(*sessionState) bool) error {
	return c.queue.Do(sessionID, func() {
		s := c.peek(sessionID)
		if s == nil {
			return
		}
		remove(s)
		if rpcErr != nil {
			s.abortRunningTools()
		}
		c.reviseStuck(s)
	})
}
