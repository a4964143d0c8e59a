package types

import (
	"github.com/google/uuid"
)

type SessionID string
type MessageID string
type PartID string
type CallID string
type RequestID string

// NewClientID returns a fresh identifier for one stream connection. The
// agent echoes it back on events originated by this client.
func NewClientID() string {
	return uuid.New().String()
}

// NewSubscriberID returns a fresh identifier for a notification subscriber.
func NewSubscriberID() string {
	return uuid.New().String()
}
