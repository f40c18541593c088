package chat

import (
	"time"

	"github.com/havenhealth/member-chat-platform/internal/eligibility"
	"github.com/havenhealth/member-chat-platform/internal/hours"
	"github.com/havenhealth/member-chat-platform/internal/loader"
	"github.com/havenhealth/member-chat-platform/internal/plans"
	"github.com/havenhealth/member-chat-platform/internal/transcript"
)

// State is the session machine's top-level lifecycle state.
type State string

const (
	StateUninitialized  State = "uninitialized"
	StateBootstrapping  State = "bootstrapping"
	StateIdle           State = "idle"
	StateSessionActive  State = "session_active"
	StateCobrowseActive State = "cobrowse_active"
	StateSessionEnding  State = "session_ending"
	StateFailed         State = "failed"
)

// IdleSubState qualifies StateIdle: whether the chat entry point should
// render, and if not, why.
type IdleSubState string

const (
	IdleNone       IdleSubState = ""
	IdleEligible   IdleSubState = "eligible"
	IdleIneligible IdleSubState = "ineligible"
	IdleOutOfHours IdleSubState = "out_of_hours"
)

// ErrorCode classifies failures surfaced on the chat state.
type ErrorCode string

const (
	ErrCodeFetchFailed        ErrorCode = "fetch-failed"
	ErrCodeScriptLoadFailed   ErrorCode = "script-load-failed"
	ErrCodeSessionStartFailed ErrorCode = "session-start-failed"
	ErrCodeSessionEndFailed   ErrorCode = "session-end-failed"
	ErrCodeInvalidPlanSwitch  ErrorCode = "invalid-plan-switch"
)

// ErrorInfo is the error detail retained on the state for display. Action
// methods never return upstream errors; callers read this instead.
type ErrorInfo struct {
	Code        ErrorCode `json:"code"`
	Message     string    `json:"message"`
	Recoverable bool      `json:"recoverable"`
}

// Session is one live chat session. Messages are append-only; insertion
// order is display order. Destroyed, not archived, when the session ends.
type Session struct {
	ID          string               `json:"id"`
	PlanID      string               `json:"plan_id"`
	Messages    []transcript.Message `json:"messages"`
	AuthToken   string               `json:"-"`
	AgentName   string               `json:"agent_name,omitempty"`
	LastUpdated time.Time            `json:"last_updated"`
}

// Snapshot is a read-only copy of the machine's aggregate state. All
// mutation happens inside the machine; snapshots never alias live data.
type Snapshot struct {
	State               State                        `json:"state"`
	IdleSubState        IdleSubState                 `json:"idle_sub_state,omitempty"`
	Active              bool                         `json:"active"`
	PlanSwitchingLocked bool                         `json:"plan_switching_locked"`
	CurrentPlan         *plans.PlanInfo              `json:"current_plan,omitempty"`
	AvailablePlans      []plans.PlanInfo             `json:"available_plans,omitempty"`
	BusinessHours       hours.BusinessHours          `json:"business_hours"`
	HoursSummary        string                       `json:"hours_summary,omitempty"`
	NextOpen            *hours.NextOpening           `json:"next_open,omitempty"`
	Eligibility         *eligibility.UserEligibility `json:"eligibility,omitempty"`
	Verdict             eligibility.Verdict          `json:"verdict"`
	Session             *Session                     `json:"session,omitempty"`
	Loader              loader.State                 `json:"loader"`
	Error               *ErrorInfo                   `json:"error,omitempty"`
}

// EntryPointVisible reports whether the UI should render the chat entry
// point. Ineligible and out-of-hours suppress it silently; only genuine
// failures show a retry affordance.
func (s Snapshot) EntryPointVisible() bool {
	switch s.State {
	case StateIdle:
		return s.IdleSubState == IdleEligible
	case StateSessionActive, StateCobrowseActive, StateSessionEnding:
		return true
	}
	return false
}
