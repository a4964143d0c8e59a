package types

import (
	"context"
)

// AgentClient is the RPC surface of the local agent process. Replies and
// timeline operations go through it; everything else arrives on the event
// stream.
type AgentClient interface {
	ReplyPermission(ctx context.Context, id RequestID, directory string, reply PermissionReply, message string) error
	AnswerQuestion(ctx context.Context, id RequestID, answers [][]string) error
	RejectQuestion(ctx context.Context, id RequestID) error
	CreateSessionFromHistory(ctx context.Context, sessionID SessionID, messageID MessageID) (SessionID, error)
	Revert(ctx context.Context, sessionID SessionID, messageID MessageID) error
	ClearRevert(ctx context.Context, sessionID SessionID) error
}

// MetaStore persists session metadata and workspace directories. It does not
// persist conversation history; that is the agent's job.
type MetaStore interface {
	Save(meta SessionMeta) error
	Load() ([]SessionMeta, error)
	Delete(id SessionID) error
	Dir(id SessionID) string
}
