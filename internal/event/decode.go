// Package event decodes the agent's stream envelopes into a closed tagged
// union. Malformed or incomplete envelopes decode to nil; nothing here
// returns an error to the read loop.
package event

import (
	"encoding/json"

	"github.com/user/sketchd/internal/types"
)

type Type string

const (
	TypePartUpdated        Type = "message.part.updated"
	TypeMessageUpdated     Type = "message.updated"
	TypeMessageRemoved     Type = "message.removed"
	TypeSessionUpdated     Type = "session.updated"
	TypeSessionStatus      Type = "session.status"
	TypeSessionDiff        Type = "session.diff"
	TypeSessionIdle        Type = "session.idle"
	TypeSessionError       Type = "session.error"
	TypePermissionAsked    Type = "permission.asked"
	TypePermissionReplied  Type = "permission.replied"
	TypeQuestionAsked      Type = "question.asked"
	TypeQuestionReplied    Type = "question.replied"
	TypeQuestionRejected   Type = "question.rejected"
	TypeFileWatcherUpdated Type = "file.watcher.updated"
	TypeHeartbeat          Type = "server.heartbeat"
	TypeProjectUpdated     Type = "project.updated"
	TypeBranchUpdated      Type = "branch.updated"
)

// Event is one decoded stream event. Exactly one payload field is set,
// according to Type; unrecognized types carry only the raw properties so the
// session-id fallback probe still works.
type Event struct {
	Type       Type
	Properties json.RawMessage

	Part       *types.MessagePart       // message.part.updated
	Message    *types.MessageInfo       // message.updated
	MessageID  types.MessageID          // message.removed
	Session    *types.SessionInfo       // session.updated
	Status     string                   // session.status
	Diff       []types.FileDiff         // session.diff
	Err        string                   // session.error
	Permission *types.PermissionRequest // permission.asked
	Question   *types.QuestionRequest   // question.asked
	RequestID  types.RequestID          // permission/question replied, rejected
	Response   string                   // permission.replied
	File       string                   // file.watcher.updated

	sessionID types.SessionID
}

type envelope struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// Decode parses a raw stream payload. It returns nil for anything that is
// not a usable event: invalid JSON, a missing type tag, or a known type
// whose required fields are absent. Unknown types decode to a bare event
// that the router's default arm ignores.
func Decode(data []byte) *Event {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		return nil
	}

	ev := &Event{Type: Type(env.Type), Properties: env.Properties}

	switch ev.Type {
	case TypePartUpdated:
		var p struct {
			Part *types.MessagePart `json:"part"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.Part == nil || p.Part.ID == "" || p.Part.MessageID == "" {
			return nil
		}
		ev.Part = p.Part
		ev.sessionID = p.Part.SessionID

	case TypeMessageUpdated:
		var p struct {
			Info *types.MessageInfo `json:"info"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.Info == nil || p.Info.ID == "" {
			return nil
		}
		ev.Message = p.Info
		ev.sessionID = p.Info.SessionID

	case TypeMessageRemoved:
		var p struct {
			SessionID types.SessionID `json:"sessionID"`
			MessageID types.MessageID `json:"messageID"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.MessageID == "" {
			return nil
		}
		ev.MessageID = p.MessageID
		ev.sessionID = p.SessionID

	case TypeSessionUpdated:
		var p struct {
			Info *types.SessionInfo `json:"info"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.Info == nil || p.Info.ID == "" {
			return nil
		}
		ev.Session = p.Info
		ev.sessionID = p.Info.ID

	case TypeSessionStatus:
		var p struct {
			SessionID types.SessionID `json:"sessionID"`
			Status    json.RawMessage `json:"status"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.SessionID == "" {
			return nil
		}
		ev.Status = decodeStatus(p.Status)
		ev.sessionID = p.SessionID

	case TypeSessionDiff:
		var p struct {
			SessionID types.SessionID  `json:"sessionID"`
			Diff      []types.FileDiff `json:"diff"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.SessionID == "" {
			return nil
		}
		ev.Diff = p.Diff
		ev.sessionID = p.SessionID

	case TypeSessionIdle:
		var p struct {
			SessionID types.SessionID `json:"sessionID"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.SessionID == "" {
			return nil
		}
		ev.sessionID = p.SessionID

	case TypeSessionError:
		var p struct {
			SessionID types.SessionID `json:"sessionID"`
			Error     json.RawMessage `json:"error"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.SessionID == "" {
			return nil
		}
		ev.Err = decodeError(p.Error)
		ev.sessionID = p.SessionID

	case TypePermissionAsked:
		var req types.PermissionRequest
		if json.Unmarshal(env.Properties, &req) != nil || req.ID == "" {
			return nil
		}
		ev.Permission = &req
		ev.sessionID = req.SessionID

	case TypePermissionReplied:
		var p struct {
			PermissionID types.RequestID `json:"permissionID"`
			SessionID    types.SessionID `json:"sessionID"`
			Response     string          `json:"response"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.PermissionID == "" {
			return nil
		}
		ev.RequestID = p.PermissionID
		ev.Response = p.Response
		ev.sessionID = p.SessionID

	case TypeQuestionAsked:
		var req types.QuestionRequest
		if json.Unmarshal(env.Properties, &req) != nil || req.ID == "" || len(req.Questions) == 0 {
			return nil
		}
		ev.Question = &req
		ev.sessionID = req.SessionID

	case TypeQuestionReplied, TypeQuestionRejected:
		var p struct {
			QuestionID types.RequestID `json:"questionID"`
			SessionID  types.SessionID `json:"sessionID"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.QuestionID == "" {
			return nil
		}
		ev.RequestID = p.QuestionID
		ev.sessionID = p.SessionID

	case TypeFileWatcherUpdated:
		var p struct {
			File string `json:"file"`
		}
		if json.Unmarshal(env.Properties, &p) != nil || p.File == "" {
			return nil
		}
		ev.File = p.File

	case TypeHeartbeat, TypeProjectUpdated, TypeBranchUpdated:
		// Global events, no per-session payload to validate.

	default:
		// Unknown tag: keep the envelope so extraction can still route it.
	}

	return ev
}

// SessionID returns the owning session id, or "" when none is discoverable.
// Typed variants resolve directly; everything else falls back to probing
// properties.sessionID, properties.info.sessionID, properties.part.sessionID
// in that order.
func (e *Event) SessionID() types.SessionID {
	if e.sessionID != "" {
		return e.sessionID
	}
	if len(e.Properties) == 0 {
		return ""
	}
	var probe struct {
		SessionID types.SessionID `json:"sessionID"`
		Info      struct {
			SessionID types.SessionID `json:"sessionID"`
		} `json:"info"`
		Part struct {
			SessionID types.SessionID `json:"sessionID"`
		} `json:"part"`
	}
	if err := json.Unmarshal(e.Properties, &probe); err != nil {
		return ""
	}
	switch {
	case probe.SessionID != "":
		return probe.SessionID
	case probe.Info.SessionID != "":
		return probe.Info.SessionID
	default:
		return probe.Part.SessionID
	}
}

// decodeStatus accepts the status field as either a bare string or an
// object with a type tag.
func decodeStatus(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.Type
	}
	return ""
}

// decodeError accepts the error field as a bare string or a structured
// {name, data{message}} object, preferring the message text.
func decodeError(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Name string `json:"name"`
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Data.Message != "" {
			return obj.Data.Message
		}
		return obj.Name
	}
	return ""
}
