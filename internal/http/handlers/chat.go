// Package handlers exposes the member chat lifecycle over HTTP. Every route
// is scoped to the authenticated member; the machine behind it is resolved
// through the per-member manager.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/havenhealth/member-chat-platform/internal/chat"
	"github.com/havenhealth/member-chat-platform/internal/hours"
	"github.com/havenhealth/member-chat-platform/internal/http/middleware"
	"github.com/havenhealth/member-chat-platform/internal/transcript"
	"github.com/havenhealth/member-chat-platform/internal/widget"
	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// ChatHandler serves the chat state machine to the portal frontend.
type ChatHandler struct {
	manager   *chat.Manager
	scriptURL string
	logger    *logging.Logger
}

func NewChatHandler(manager *chat.Manager, scriptURL string, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{
		manager:   manager,
		scriptURL: scriptURL,
		logger:    logger.Component("chat_handler"),
	}
}

func (h *ChatHandler) machineFor(w http.ResponseWriter, r *http.Request) (*chat.Machine, bool) {
	memberID, groupID, ok := middleware.MemberFromContext(r.Context())
	if !ok {
		http.Error(w, "member identity required", http.StatusUnauthorized)
		return nil, false
	}
	m, err := h.manager.Get(memberID, groupID)
	if err != nil {
		h.logger.Error("machine lookup failed", "member_id", memberID, "error", err)
		http.Error(w, "chat unavailable", http.StatusInternalServerError)
		return nil, false
	}
	return m, true
}

// State returns the current aggregate snapshot.
func (h *ChatHandler) State(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// Start runs the sequential bootstrap and returns the resulting snapshot.
// Bootstrap failures are carried in the snapshot, never as an HTTP error.
func (h *ChatHandler) Start(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	m.Start(r.Context())
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// Open starts a live session when the machine is idle and eligible.
func (h *ChatHandler) Open(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	m.OpenChat(r.Context())
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// End tears down the active session.
func (h *ChatHandler) End(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	m.EndSession(r.Context())
	writeJSON(w, http.StatusOK, m.Snapshot())
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessage delivers one member message into the active session.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if err := m.SendMessage(r.Context(), req.Text); err != nil {
		h.logger.Warn("send message failed", "error", err)
		http.Error(w, "message delivery failed", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusAccepted, m.Snapshot())
}

// Messages returns the stored transcript for the active session so a
// reconnecting client can restore what it missed.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	messages, err := m.Transcript(r.Context())
	if err != nil {
		http.Error(w, "no active session", http.StatusNotFound)
		return
	}
	if messages == nil {
		messages = []transcript.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// Refresh re-fetches eligibility and plan flags and returns the recomputed
// snapshot.
func (h *ChatHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	m.RefreshEligibility(r.Context())
	writeJSON(w, http.StatusOK, m.Snapshot())
}

type switchPlanRequest struct {
	PlanID string `json:"plan_id"`
}

// SwitchPlan changes the selected plan. Rejections surface on the snapshot's
// error field with a 409.
func (h *ChatHandler) SwitchPlan(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	var req switchPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlanID == "" {
		http.Error(w, "plan_id is required", http.StatusBadRequest)
		return
	}
	m.SwitchPlan(req.PlanID)
	snap := m.Snapshot()
	status := http.StatusOK
	if snap.Error != nil && snap.Error.Code == chat.ErrCodeInvalidPlanSwitch {
		status = http.StatusConflict
	}
	writeJSON(w, status, snap)
}

// Reset clears all loaded state so the next Start bootstraps from scratch.
func (h *ChatHandler) Reset(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	m.Reset()
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// StartCobrowse escalates the active session to cobrowse.
func (h *ChatHandler) StartCobrowse(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	if err := m.StartCobrowse(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

// EndCobrowse drops back to a plain chat session.
func (h *ChatHandler) EndCobrowse(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	if err := m.EndCobrowse(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, m.Snapshot())
}

type hoursResponse struct {
	Open     bool                `json:"open"`
	Summary  string              `json:"summary"`
	NextOpen *hours.NextOpening  `json:"next_open,omitempty"`
	Schedule hours.BusinessHours `json:"schedule"`
}

// Hours returns the current plan's schedule for display.
func (h *ChatHandler) Hours(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	snap := m.Snapshot()
	if snap.CurrentPlan == nil {
		http.Error(w, "no plan selected", http.StatusNotFound)
		return
	}
	open := snap.Active || (snap.State == chat.StateIdle && snap.IdleSubState == chat.IdleEligible)
	writeJSON(w, http.StatusOK, hoursResponse{
		Open:     open,
		Summary:  snap.HoursSummary,
		NextOpen: snap.NextOpen,
		Schedule: snap.BusinessHours,
	})
}

type termsResponse struct {
	PlanID string `json:"plan_id"`
	Terms  string `json:"terms"`
}

// Terms returns the chat terms-of-use text for the current plan.
func (h *ChatHandler) Terms(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	snap := m.Snapshot()
	if snap.CurrentPlan == nil {
		http.Error(w, "no plan selected", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, termsResponse{
		PlanID: snap.CurrentPlan.ID,
		Terms:  snap.CurrentPlan.Terms,
	})
}

type embedResponse struct {
	Embed string `json:"embed"`
}

// Embed returns the widget script tag carrying the session token when a
// session is live.
func (h *ChatHandler) Embed(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	snap := m.Snapshot()
	token := ""
	if snap.Session != nil {
		token = snap.Session.AuthToken
	}
	writeJSON(w, http.StatusOK, embedResponse{Embed: widget.Embed(h.scriptURL, token)})
}

// Stream pushes state snapshots over a websocket, one JSON frame per
// transition, starting with the current state. The connection closes when
// the client goes away or the machine shuts down.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	m, ok := h.machineFor(w, r)
	if !ok {
		return
	}
	srv := websocket.Server{
		Handshake: func(cfg *websocket.Config, req *http.Request) error { return nil },
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()
			snapshots, cancel := m.Subscribe()
			defer cancel()

			done := make(chan struct{})
			go func() {
				// Drain the client side purely to detect disconnects.
				defer close(done)
				var discard string
				for websocket.Message.Receive(conn, &discard) == nil {
				}
			}()

			for {
				select {
				case snap, open := <-snapshots:
					if !open {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
					if err := websocket.JSON.Send(conn, snap); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		},
	}
	srv.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
