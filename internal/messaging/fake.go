package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Fake is an in-memory Backend for tests and local development. Operations
// mirror the real backend's idempotency: repeating a start or end for the
// same session id is not an error.
type Fake struct {
	mu       sync.Mutex
	sessions map[string]*SessionInfo
	cobrowse map[string]bool
	ended    map[string]bool

	// Failure injection
	FailStart    error
	FailSend     error
	FailEnd      error
	FailCobrowse error
}

var _ Backend = (*Fake)(nil)

// NewFake creates an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		sessions: make(map[string]*SessionInfo),
		cobrowse: make(map[string]bool),
		ended:    make(map[string]bool),
	}
}

func (f *Fake) StartSession(_ context.Context, req StartSessionRequest) (*SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailStart != nil {
		return nil, f.FailStart
	}
	if existing, ok := f.sessions[req.SessionID]; ok {
		return existing, nil
	}
	info := &SessionInfo{
		SessionID: req.SessionID,
		PlanID:    req.PlanID,
		AgentName: "Taylor",
		StartedAt: time.Now().UTC(),
	}
	f.sessions[req.SessionID] = info
	return info, nil
}

func (f *Fake) SendMessage(_ context.Context, req SendMessageRequest) (*MessageReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailSend != nil {
		return nil, f.FailSend
	}
	if _, ok := f.sessions[req.SessionID]; !ok || f.ended[req.SessionID] {
		return nil, fmt.Errorf("messaging: no open session %s", req.SessionID)
	}
	return &MessageReceipt{MessageID: req.MessageID, Timestamp: time.Now().UTC()}, nil
}

func (f *Fake) EndSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailEnd != nil {
		return f.FailEnd
	}
	f.ended[sessionID] = true
	delete(f.cobrowse, sessionID)
	return nil
}

func (f *Fake) StartCobrowse(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCobrowse != nil {
		return f.FailCobrowse
	}
	if _, ok := f.sessions[sessionID]; !ok || f.ended[sessionID] {
		return fmt.Errorf("messaging: no open session %s", sessionID)
	}
	f.cobrowse[sessionID] = true
	return nil
}

func (f *Fake) EndCobrowse(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCobrowse != nil {
		return f.FailCobrowse
	}
	delete(f.cobrowse, sessionID)
	return nil
}

// SessionEnded reports whether EndSession was called for the id.
func (f *Fake) SessionEnded(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended[sessionID]
}

// CobrowseActive reports whether a cobrowse leg is open for the id.
func (f *Fake) CobrowseActive(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cobrowse[sessionID]
}

// StartedSessions returns the ids of sessions ever started.
func (f *Fake) StartedSessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.sessions))
	for id := range f.sessions {
		ids = append(ids, id)
	}
	return ids
}
