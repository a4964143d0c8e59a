package types

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageTime carries epoch-millisecond timestamps. Completed == 0 means the
// message is still streaming.
type MessageTime struct {
	Created   int64 `json:"created"`
	Completed int64 `json:"completed,omitempty"`
}

// MessageInfo is the wire-level message record carried by message.updated.
type MessageInfo struct {
	ID        MessageID   `json:"id"`
	SessionID SessionID   `json:"sessionID"`
	Role      Role        `json:"role"`
	Time      MessageTime `json:"time"`
}

// Streaming reports whether the message has not yet completed.
func (m MessageInfo) Streaming() bool {
	return m.Time.Completed == 0
}

// Message is a message together with its ordered parts, as reconstructed
// from the event stream.
type Message struct {
	Info  MessageInfo
	Parts []*MessagePart
}

// Clone returns a deep copy. Part payloads are copied shallowly except for
// tool state, which is duplicated so the copy cannot observe later updates.
func (m *Message) Clone() *Message {
	out := &Message{Info: m.Info, Parts: make([]*MessagePart, len(m.Parts))}
	for i, p := range m.Parts {
		cp := *p
		if p.State != nil {
			st := *p.State
			cp.State = &st
		}
		out.Parts[i] = &cp
	}
	return out
}

type PartType string

const (
	PartText       PartType = "text"
	PartReasoning  PartType = "reasoning"
	PartTool       PartType = "tool"
	PartFile       PartType = "file"
	PartStepStart  PartType = "step-start"
	PartStepFinish PartType = "step-finish"
)

// TimeRange brackets an interval in epoch milliseconds. End == 0 means open.
type TimeRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end,omitempty"`
}

type ToolStatus string

const (
	ToolPending   ToolStatus = "pending"
	ToolRunning   ToolStatus = "running"
	ToolCompleted ToolStatus = "completed"
	ToolError     ToolStatus = "error"
)

// Rank orders tool states for the monotonic transition rule: a tool call may
// only move forward, never back. Unknown statuses rank below pending so they
// can never displace a known state.
func (s ToolStatus) Rank() int {
	switch s {
	case ToolPending:
		return 0
	case ToolRunning:
		return 1
	case ToolCompleted, ToolError:
		return 2
	default:
		return -1
	}
}

// Terminal reports whether the status ends the tool call's lifecycle.
func (s ToolStatus) Terminal() bool {
	return s == ToolCompleted || s == ToolError
}

// ToolState is the state machine payload carried by tool parts.
type ToolState struct {
	Status ToolStatus     `json:"status"`
	Input  map[string]any `json:"input,omitempty"`
	Output string         `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
	Title  string         `json:"title,omitempty"`
	Time   *TimeRange     `json:"time,omitempty"`
}

// MessagePart is one incremental fragment of a message. Parts arrive out of
// band and are merged by id, last write wins.
type MessagePart struct {
	ID        PartID    `json:"id"`
	MessageID MessageID `json:"messageID"`
	SessionID SessionID `json:"sessionID"`
	Type      PartType  `json:"type"`

	Text     string `json:"text,omitempty"`
	Tool     string `json:"tool,omitempty"`
	CallID   CallID `json:"callID,omitempty"`
	Filename string `json:"filename,omitempty"`
	URL      string `json:"url,omitempty"`
	Mime     string `json:"mime,omitempty"`

	State *ToolState `json:"state,omitempty"`
	Time  *TimeRange `json:"time,omitempty"`
}

// PermissionRequest is a pending permission prompt raised by the agent.
type PermissionRequest struct {
	ID         RequestID      `json:"id"`
	SessionID  SessionID      `json:"sessionID"`
	Permission string         `json:"permission"`
	Patterns   []string       `json:"patterns,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Always     bool           `json:"always,omitempty"`
	Tool       string         `json:"tool,omitempty"`
}

type QuestionOption struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

type Question struct {
	Question string           `json:"question"`
	Header   string           `json:"header,omitempty"`
	Options  []QuestionOption `json:"options"`
	Multiple bool             `json:"multiple,omitempty"`
}

// QuestionRequest is a pending multiple-choice prompt raised by the agent.
type QuestionRequest struct {
	ID        RequestID  `json:"id"`
	SessionID SessionID  `json:"sessionID"`
	Questions []Question `json:"questions"`
	Tool      string     `json:"tool,omitempty"`
}

// PermissionReply is the answer sent back for a permission request.
type PermissionReply string

const (
	ReplyOnce   PermissionReply = "once"
	ReplyAlways PermissionReply = "always"
	ReplyReject PermissionReply = "reject"
)

// RevertPointer marks the visible conversation head as rolled back to an
// earlier message. Stored verbatim from session.updated.
type RevertPointer struct {
	MessageID MessageID `json:"messageID"`
	PartID    PartID    `json:"partID,omitempty"`
	Snapshot  string    `json:"snapshot,omitempty"`
	Diff      string    `json:"diff,omitempty"`
}

// SessionInfo is the wire-level session record carried by session.updated.
type SessionInfo struct {
	ID        SessionID      `json:"id"`
	Title     string         `json:"title,omitempty"`
	Directory string         `json:"directory,omitempty"`
	Revert    *RevertPointer `json:"revert,omitempty"`
	Time      struct {
		Created int64 `json:"created"`
		Updated int64 `json:"updated"`
	} `json:"time"`
}

// FileDiff is an already-computed diff record for one file, delivered by
// session.diff events. This subsystem stores them, it never computes them.
type FileDiff struct {
	File      string `json:"file"`
	Before    string `json:"before"`
	After     string `json:"after"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// RunningToolEntry records a question or permission tool invocation that is
// currently in the running state. StartTime is epoch milliseconds.
type RunningToolEntry struct {
	Tool      string
	StartTime int64
}

// SessionMeta is the locally persisted record for one session workspace.
type SessionMeta struct {
	ID        SessionID `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind,omitempty"`
	Directory string    `json:"directory,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
