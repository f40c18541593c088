// Package messaging wraps the external live-chat messaging backend. The core
// treats it as an opaque collaborator: every operation is a request/response
// call that is idempotent on retry for the same session id.
package messaging

import (
	"context"
	"time"
)

// SessionInfo is the backend's view of a live-chat session.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	PlanID    string    `json:"plan_id"`
	AgentName string    `json:"agent_name,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// MessageReceipt acknowledges a delivered chat message.
type MessageReceipt struct {
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// StartSessionRequest opens a session for one member and plan. AuthToken is
// the signed session token the backend uses to join the member to an agent
// queue.
type StartSessionRequest struct {
	SessionID string `json:"session_id"`
	MemberID  string `json:"member_id"`
	PlanID    string `json:"plan_id"`
	AuthToken string `json:"auth_token"`
}

// SendMessageRequest delivers one member message into an open session.
type SendMessageRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Text      string `json:"text"`
}

// Backend is the messaging operations contract the chat core depends on.
type Backend interface {
	StartSession(ctx context.Context, req StartSessionRequest) (*SessionInfo, error)
	SendMessage(ctx context.Context, req SendMessageRequest) (*MessageReceipt, error)
	EndSession(ctx context.Context, sessionID string) error
	StartCobrowse(ctx context.Context, sessionID string) error
	EndCobrowse(ctx context.Context, sessionID string) error
}
