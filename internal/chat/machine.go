// Package chat implements the member chat session lifecycle: sequential
// bootstrap, eligibility gating, business-hours gating, session open/end,
// cobrowse, and plan switching. One Machine serves one member.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/havenhealth/member-chat-platform/internal/eligibility"
	"github.com/havenhealth/member-chat-platform/internal/hours"
	"github.com/havenhealth/member-chat-platform/internal/loader"
	"github.com/havenhealth/member-chat-platform/internal/messaging"
	"github.com/havenhealth/member-chat-platform/internal/observability/metrics"
	"github.com/havenhealth/member-chat-platform/internal/plans"
	"github.com/havenhealth/member-chat-platform/internal/transcript"
	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// EligibilityFetcher loads a member's eligibility snapshot.
type EligibilityFetcher interface {
	FetchEligibility(ctx context.Context, memberID, groupID string) (*eligibility.UserEligibility, error)
}

// PlanFetcher loads the plans available to a member.
type PlanFetcher interface {
	FetchPlans(ctx context.Context, memberID string) ([]plans.PlanInfo, error)
}

// ScriptProbe verifies the chat widget script is reachable.
type ScriptProbe interface {
	Check(ctx context.Context) error
}

// EligibilityInvalidator is implemented by fetchers backed by a cache.
// Reset and RefreshEligibility use it so the next fetch hits the upstream
// service instead of a stale snapshot.
type EligibilityInvalidator interface {
	InvalidateEligibility(ctx context.Context, memberID, groupID string) error
}

// Config wires a Machine's collaborators. MemberID, Members, Plans, and
// Backend are required; everything else has a usable default.
type Config struct {
	MemberID string
	GroupID  string

	Members    EligibilityFetcher
	Plans      PlanFetcher
	Backend    messaging.Backend
	Transcript *transcript.Store
	Script     ScriptProbe

	DefaultTimezone string
	RecheckInterval time.Duration
	SessionSecret   []byte
	SessionTTL      time.Duration

	TickerFactory TickerFactory
	Logger        *logging.Logger
	Metrics       *metrics.ChatMetrics
	Now           func() time.Time
}

// Machine is the chat session state machine. All aggregate state mutation
// is serialized under one mutex; action methods are safe to call from any
// goroutine and overlapping calls of the same transition class are no-ops.
type Machine struct {
	cfg      Config
	registry *plans.Registry
	resolver *eligibility.Resolver
	loader   *loader.Loader
	poller   *Poller
	log      *logging.Logger
	now      func() time.Time

	mu         sync.Mutex
	state      State
	idleSub    IdleSubState
	planLocked bool
	elig       *eligibility.UserEligibility
	verdict    eligibility.Verdict
	session    *Session
	lastErr    *ErrorInfo
	inFlight   struct {
		bootstrap bool
		open      bool
		end       bool
		cobrowse  bool
		refresh   bool
	}
	subs    map[int]chan Snapshot
	nextSub int
	closed  bool
}

// New builds a Machine in the Uninitialized state. Nothing is fetched until
// Start is called.
func New(cfg Config) (*Machine, error) {
	if cfg.MemberID == "" {
		return nil, fmt.Errorf("chat: member id is required")
	}
	if cfg.Members == nil || cfg.Plans == nil || cfg.Backend == nil {
		return nil, fmt.Errorf("chat: members, plans, and backend collaborators are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RecheckInterval <= 0 {
		cfg.RecheckInterval = time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}

	m := &Machine{
		cfg:      cfg,
		registry: plans.NewRegistry(),
		resolver: eligibility.NewResolver(cfg.Logger),
		log:      cfg.Logger.Component("chat"),
		now:      cfg.Now,
		state:    StateUninitialized,
		subs:     make(map[int]chan Snapshot),
	}
	m.loader = loader.New(m.bootstrapSteps(), cfg.Logger)
	m.poller = NewPoller(cfg.RecheckInterval, m.recheckHours, cfg.TickerFactory)
	return m, nil
}

func (m *Machine) bootstrapSteps() []loader.Step {
	return []loader.Step{
		{
			Name:  "fetch-eligibility",
			Phase: loader.PhaseAPI,
			Run: func(ctx context.Context) error {
				e, err := m.cfg.Members.FetchEligibility(ctx, m.cfg.MemberID, m.cfg.GroupID)
				if err != nil {
					m.cfg.Metrics.ObserveUpstreamError("members")
					return err
				}
				m.mu.Lock()
				m.elig = e
				m.mu.Unlock()
				return nil
			},
		},
		{
			Name:  "fetch-plans",
			Phase: loader.PhaseAPI,
			Run: func(ctx context.Context) error {
				available, err := m.cfg.Plans.FetchPlans(ctx, m.cfg.MemberID)
				if err != nil {
					m.cfg.Metrics.ObserveUpstreamError("plans")
					return err
				}
				m.registry.Load(available)
				return nil
			},
		},
		{
			Name:  "probe-widget-script",
			Phase: loader.PhaseScript,
			Run: func(ctx context.Context) error {
				if m.cfg.Script == nil {
					return nil
				}
				return m.cfg.Script.Check(ctx)
			},
		},
		{
			Name:  "prepare-entry-points",
			Phase: loader.PhaseDOM,
			Run: func(ctx context.Context) error {
				return nil
			},
		},
	}
}

// Start runs the sequential bootstrap. It is a no-op once the machine has
// reached Idle or beyond; from Failed it re-attempts from scratch. Failures
// never propagate to the caller; read them from the snapshot's Error.
func (m *Machine) Start(ctx context.Context) {
	m.mu.Lock()
	if m.inFlight.bootstrap || (m.state != StateUninitialized && m.state != StateFailed) {
		m.mu.Unlock()
		return
	}
	restart := m.state == StateFailed
	m.inFlight.bootstrap = true
	m.state = StateBootstrapping
	m.idleSub = IdleNone
	m.lastErr = nil
	m.mu.Unlock()
	m.notify()

	defer func() {
		m.mu.Lock()
		m.inFlight.bootstrap = false
		m.mu.Unlock()
	}()

	if restart {
		m.loader.Reset()
	}

	began := m.now()
	_, err := m.loader.Run(ctx)
	m.cfg.Metrics.ObserveBootstrap(m.now().Sub(began).Seconds())

	m.mu.Lock()
	if err != nil {
		var stepErr *loader.StepError
		if errors.As(err, &stepErr) && stepErr.Phase != loader.PhaseAPI {
			// Widget degradation: eligibility and hours are loaded, so the
			// entry point decision still stands. The UI falls back to a
			// non-embedded affordance.
			m.lastErr = &ErrorInfo{Code: ErrCodeScriptLoadFailed, Message: stepErr.Error(), Recoverable: true}
			m.enterIdleLocked()
			m.log.Warn("widget bootstrap degraded", "step", stepErr.Step, "error", stepErr.Err)
		} else {
			m.state = StateFailed
			m.lastErr = &ErrorInfo{Code: ErrCodeFetchFailed, Message: err.Error(), Recoverable: true}
			m.log.Error("bootstrap failed", "error", err)
		}
	} else {
		m.enterIdleLocked()
	}
	idle := m.state == StateIdle
	m.mu.Unlock()
	m.notify()

	if idle {
		m.poller.Start()
	}
}

// enterIdleLocked recomputes the verdict and idle sub-state from the loaded
// eligibility snapshot, the current plan, and the clock. Callers hold m.mu.
func (m *Machine) enterIdleLocked() {
	m.state = StateIdle
	m.planLocked = false
	m.verdict = m.resolver.Resolve(m.elig, m.registry.Current())
	m.cfg.Metrics.ObserveVerdict(string(m.verdict.Reason))

	switch {
	case !m.verdict.Eligible:
		m.idleSub = IdleIneligible
	case m.openNowLocked():
		m.idleSub = IdleEligible
	default:
		m.idleSub = IdleOutOfHours
	}
}

func (m *Machine) openNowLocked() bool {
	plan := m.registry.Current()
	if plan == nil {
		return false
	}
	return m.evaluatorFor(plan).IsOpenNow(plan.BusinessHours, m.now())
}

func (m *Machine) evaluatorFor(plan *plans.PlanInfo) *hours.Evaluator {
	tz := m.cfg.DefaultTimezone
	if plan != nil && plan.Timezone != "" {
		tz = plan.Timezone
	}
	return hours.NewEvaluator(tz)
}

// recheckHours flips the idle sub-state between eligible and out-of-hours as
// the clock crosses a schedule boundary. Runs on the poller goroutine.
func (m *Machine) recheckHours() {
	m.cfg.Metrics.ObserveHoursPoll()
	m.mu.Lock()
	if m.state != StateIdle || m.idleSub == IdleIneligible {
		m.mu.Unlock()
		return
	}
	prev := m.idleSub
	if m.openNowLocked() {
		m.idleSub = IdleEligible
	} else {
		m.idleSub = IdleOutOfHours
	}
	changed := m.idleSub != prev
	m.mu.Unlock()
	if changed {
		m.notify()
	}
}

// RefreshEligibility re-fetches the eligibility snapshot and plan flags and
// recomputes the idle sub-state, keeping the current plan selection. Only
// valid from Idle; fetch failures leave the previous snapshot in place with
// a recoverable error.
func (m *Machine) RefreshEligibility(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateIdle || m.inFlight.refresh {
		m.mu.Unlock()
		return
	}
	m.inFlight.refresh = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight.refresh = false
		m.mu.Unlock()
	}()

	m.invalidateEligibilityCache(ctx)
	e, err := m.cfg.Members.FetchEligibility(ctx, m.cfg.MemberID, m.cfg.GroupID)
	if err != nil {
		m.cfg.Metrics.ObserveUpstreamError("members")
		m.mu.Lock()
		m.lastErr = &ErrorInfo{Code: ErrCodeFetchFailed, Message: err.Error(), Recoverable: true}
		m.mu.Unlock()
		m.notify()
		return
	}
	fresh, err := m.cfg.Plans.FetchPlans(ctx, m.cfg.MemberID)
	if err != nil {
		m.cfg.Metrics.ObserveUpstreamError("plans")
		m.mu.Lock()
		m.lastErr = &ErrorInfo{Code: ErrCodeFetchFailed, Message: err.Error(), Recoverable: true}
		m.mu.Unlock()
		m.notify()
		return
	}

	m.mu.Lock()
	m.elig = e
	// Flags update in place; selection is only disturbed by Load or SwitchTo.
	for _, p := range fresh {
		m.registry.RefreshChatEligibility(p.ID, p.EligibleForChat)
	}
	m.lastErr = nil
	m.enterIdleLocked()
	m.log.Info("eligibility refreshed", "idle_sub_state", string(m.idleSub))
	m.mu.Unlock()
	m.notify()
}

func (m *Machine) invalidateEligibilityCache(ctx context.Context) {
	inv, ok := m.cfg.Members.(EligibilityInvalidator)
	if !ok {
		return
	}
	if err := inv.InvalidateEligibility(ctx, m.cfg.MemberID, m.cfg.GroupID); err != nil {
		m.log.Warn("eligibility cache invalidation failed", "error", err)
	}
}

// OpenChat starts a live session with the messaging backend. Only valid from
// Idle(eligible); anything else, including an overlapping OpenChat, is a
// no-op. Plan switching locks for the lifetime of the attempt.
func (m *Machine) OpenChat(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateIdle || m.idleSub != IdleEligible || m.inFlight.open {
		m.mu.Unlock()
		return
	}
	plan := m.registry.Current()
	if plan == nil {
		m.mu.Unlock()
		return
	}
	m.inFlight.open = true
	m.planLocked = true
	m.lastErr = nil
	m.mu.Unlock()
	m.notify()

	defer func() {
		m.mu.Lock()
		m.inFlight.open = false
		m.mu.Unlock()
	}()

	sessionID := uuid.NewString()
	token, err := signSessionToken(m.cfg.SessionSecret, m.cfg.MemberID, sessionID, plan.ID, m.cfg.SessionTTL, m.now())
	var info *messaging.SessionInfo
	if err == nil {
		info, err = m.cfg.Backend.StartSession(ctx, messaging.StartSessionRequest{
			SessionID: sessionID,
			MemberID:  m.cfg.MemberID,
			PlanID:    plan.ID,
			AuthToken: token,
		})
	}

	m.mu.Lock()
	if err != nil {
		m.planLocked = false
		m.lastErr = &ErrorInfo{Code: ErrCodeSessionStartFailed, Message: err.Error(), Recoverable: true}
		m.cfg.Metrics.ObserveSession("open", "error")
		m.log.Error("session start failed", "session_id", sessionID, "plan_id", plan.ID, "error", err)
	} else {
		agentName := ""
		if info != nil {
			agentName = info.AgentName
		}
		m.state = StateSessionActive
		m.idleSub = IdleNone
		m.session = &Session{
			ID:          sessionID,
			PlanID:      plan.ID,
			AuthToken:   token,
			AgentName:   agentName,
			Messages:    []transcript.Message{},
			LastUpdated: m.now(),
		}
		m.cfg.Metrics.ObserveSession("open", "ok")
		m.log.Info("session started", "session_id", sessionID, "plan_id", plan.ID)
	}
	m.mu.Unlock()
	m.notify()
}

// SendMessage delivers a member message into the active session and appends
// it to the transcript. Unlike the lifecycle transitions, it reports its
// failure to the caller so the UI can retry a single message.
func (m *Machine) SendMessage(ctx context.Context, text string) error {
	m.mu.Lock()
	if (m.state != StateSessionActive && m.state != StateCobrowseActive) || m.session == nil {
		m.mu.Unlock()
		return fmt.Errorf("chat: no active session")
	}
	sessionID := m.session.ID
	m.mu.Unlock()

	receipt, err := m.cfg.Backend.SendMessage(ctx, messaging.SendMessageRequest{
		SessionID: sessionID,
		MessageID: uuid.NewString(),
		Text:      text,
	})
	if err != nil {
		m.cfg.Metrics.ObserveUpstreamError("messaging")
		return fmt.Errorf("chat: send message: %w", err)
	}

	msg := transcript.Message{
		ID:        receipt.MessageID,
		Role:      "member",
		Text:      text,
		Timestamp: receipt.Timestamp,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = m.now()
	}
	if err := m.cfg.Transcript.Append(ctx, sessionID, msg); err != nil {
		m.log.Warn("transcript append failed", "session_id", sessionID, "error", err)
	}

	m.mu.Lock()
	if m.session != nil && m.session.ID == sessionID {
		m.session.Messages = append(m.session.Messages, msg)
		m.session.LastUpdated = m.now()
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

// EndSession tears the session down, destroys the transcript, and returns
// to Idle with the sub-state recomputed against the current clock. If the
// backend refuses, the session stays active with a recoverable error.
func (m *Machine) EndSession(ctx context.Context) {
	m.mu.Lock()
	if (m.state != StateSessionActive && m.state != StateCobrowseActive) || m.inFlight.end {
		m.mu.Unlock()
		return
	}
	m.inFlight.end = true
	wasCobrowse := m.state == StateCobrowseActive
	m.state = StateSessionEnding
	sessionID := m.session.ID
	m.mu.Unlock()
	m.notify()

	defer func() {
		m.mu.Lock()
		m.inFlight.end = false
		m.mu.Unlock()
	}()

	if wasCobrowse {
		if err := m.cfg.Backend.EndCobrowse(ctx, sessionID); err != nil {
			m.log.Warn("cobrowse end failed during session teardown", "session_id", sessionID, "error", err)
		}
	}
	err := m.cfg.Backend.EndSession(ctx, sessionID)

	m.mu.Lock()
	if err != nil {
		if wasCobrowse {
			m.state = StateCobrowseActive
		} else {
			m.state = StateSessionActive
		}
		m.lastErr = &ErrorInfo{Code: ErrCodeSessionEndFailed, Message: err.Error(), Recoverable: true}
		m.cfg.Metrics.ObserveSession("end", "error")
		m.log.Error("session end failed", "session_id", sessionID, "error", err)
		m.mu.Unlock()
		m.notify()
		return
	}
	m.session = nil
	m.lastErr = nil
	m.enterIdleLocked()
	m.cfg.Metrics.ObserveSession("end", "ok")
	m.log.Info("session ended", "session_id", sessionID)
	m.mu.Unlock()
	m.notify()

	if err := m.cfg.Transcript.Clear(ctx, sessionID); err != nil {
		m.log.Warn("transcript clear failed", "session_id", sessionID, "error", err)
	}
}

// StartCobrowse escalates the active session to a cobrowse session.
func (m *Machine) StartCobrowse(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateSessionActive || m.inFlight.cobrowse {
		m.mu.Unlock()
		return fmt.Errorf("chat: cobrowse requires an active session")
	}
	m.inFlight.cobrowse = true
	sessionID := m.session.ID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight.cobrowse = false
		m.mu.Unlock()
	}()

	if err := m.cfg.Backend.StartCobrowse(ctx, sessionID); err != nil {
		m.cfg.Metrics.ObserveUpstreamError("messaging")
		return fmt.Errorf("chat: start cobrowse: %w", err)
	}

	m.mu.Lock()
	if m.state == StateSessionActive {
		m.state = StateCobrowseActive
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

// EndCobrowse drops back to a plain chat session without ending it.
func (m *Machine) EndCobrowse(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateCobrowseActive || m.inFlight.cobrowse {
		m.mu.Unlock()
		return fmt.Errorf("chat: no cobrowse session to end")
	}
	m.inFlight.cobrowse = true
	sessionID := m.session.ID
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight.cobrowse = false
		m.mu.Unlock()
	}()

	if err := m.cfg.Backend.EndCobrowse(ctx, sessionID); err != nil {
		m.cfg.Metrics.ObserveUpstreamError("messaging")
		return fmt.Errorf("chat: end cobrowse: %w", err)
	}

	m.mu.Lock()
	if m.state == StateCobrowseActive {
		m.state = StateSessionActive
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

// SwitchPlan changes the selected plan and synchronously recomputes the
// idle sub-state. Rejected while a session is active or ending, and when
// the plan id is unknown; rejection surfaces as InvalidPlanSwitch on the
// snapshot without touching the selection.
func (m *Machine) SwitchPlan(planID string) {
	m.mu.Lock()
	if m.planLocked || m.state == StateSessionActive || m.state == StateCobrowseActive || m.state == StateSessionEnding {
		m.lastErr = &ErrorInfo{Code: ErrCodeInvalidPlanSwitch, Message: "plan switching is locked during an active session", Recoverable: true}
		m.mu.Unlock()
		m.notify()
		return
	}
	if m.state != StateIdle {
		m.lastErr = &ErrorInfo{Code: ErrCodeInvalidPlanSwitch, Message: "chat is not initialized", Recoverable: true}
		m.mu.Unlock()
		m.notify()
		return
	}
	if !m.registry.SwitchTo(planID) {
		m.lastErr = &ErrorInfo{Code: ErrCodeInvalidPlanSwitch, Message: fmt.Sprintf("unknown plan %q", planID), Recoverable: true}
		m.mu.Unlock()
		m.notify()
		return
	}
	m.lastErr = nil
	m.enterIdleLocked()
	m.log.Info("plan switched", "plan_id", planID, "idle_sub_state", string(m.idleSub))
	m.mu.Unlock()
	m.notify()
}

// Reset returns the machine to Uninitialized and clears all loaded state so
// the next Start bootstraps from scratch. No-op while a session is live.
func (m *Machine) Reset() {
	m.mu.Lock()
	switch m.state {
	case StateSessionActive, StateCobrowseActive, StateSessionEnding:
		m.mu.Unlock()
		return
	}
	if m.inFlight.bootstrap {
		m.mu.Unlock()
		return
	}
	m.loader.Reset()
	m.state = StateUninitialized
	m.idleSub = IdleNone
	m.planLocked = false
	m.elig = nil
	m.verdict = eligibility.Verdict{}
	m.session = nil
	m.lastErr = nil
	m.registry.Load(nil)
	m.mu.Unlock()

	// Drop the cached snapshot too, so the next bootstrap re-fetches
	// instead of re-reading what Reset was meant to discard.
	m.invalidateEligibilityCache(context.Background())
	m.notify()
}

// Transcript returns the stored transcript for the active session, read from
// the backing store so a reconnecting client can restore messages it missed.
func (m *Machine) Transcript(ctx context.Context) ([]transcript.Message, error) {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("chat: no active session")
	}
	sessionID := m.session.ID
	m.mu.Unlock()
	return m.cfg.Transcript.List(ctx, sessionID, 0)
}

// Close stops the poller and closes all subscriber channels. The machine is
// unusable afterwards.
func (m *Machine) Close() {
	m.poller.Stop()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	for id, ch := range m.subs {
		delete(m.subs, id)
		close(ch)
	}
	m.mu.Unlock()
}

// Snapshot returns a copy of the aggregate state. Nothing in the returned
// value aliases machine internals.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe registers a state listener. The current snapshot is delivered
// immediately, then one per mutation; slow consumers miss intermediate
// snapshots rather than blocking the machine. The cancel func is idempotent.
func (m *Machine) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan Snapshot, 8)
	if !m.closed {
		m.subs[id] = ch
		ch <- m.snapshotLocked()
	} else {
		close(ch)
	}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if c, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(c)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *Machine) notify() {
	m.mu.Lock()
	snap := m.snapshotLocked()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	m.mu.Unlock()
}

func (m *Machine) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:               m.state,
		IdleSubState:        m.idleSub,
		PlanSwitchingLocked: m.planLocked,
		CurrentPlan:         m.registry.Current(),
		AvailablePlans:      m.registry.Available(),
		Eligibility:         copyEligibility(m.elig),
		Verdict:             m.verdict,
		Loader:              m.loader.Snapshot(),
		Error:               copyError(m.lastErr),
	}
	snap.Active = m.state == StateSessionActive || m.state == StateCobrowseActive
	if plan := snap.CurrentPlan; plan != nil {
		eval := m.evaluatorFor(plan)
		snap.BusinessHours = plan.BusinessHours
		snap.HoursSummary = eval.Summarize(plan.BusinessHours)
		if m.state == StateIdle && m.idleSub == IdleOutOfHours {
			snap.NextOpen = eval.NextOpenTime(plan.BusinessHours, m.now())
		}
	}
	if m.session != nil {
		s := *m.session
		s.Messages = append([]transcript.Message(nil), m.session.Messages...)
		snap.Session = &s
	}
	return snap
}

func copyEligibility(e *eligibility.UserEligibility) *eligibility.UserEligibility {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

func copyError(e *ErrorInfo) *ErrorInfo {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}
