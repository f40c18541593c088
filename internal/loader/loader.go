// Package loader runs the multi-step chat bootstrap in a fixed order exactly
// once: eligibility fetch, business hours, widget script, DOM enhancement.
package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// Phase identifies which bootstrap phase a step belongs to.
type Phase string

const (
	PhaseAPI    Phase = "api"    // eligibility and business-hours fetches
	PhaseScript Phase = "script" // third-party widget script
	PhaseDOM    Phase = "dom"    // host-page link enhancement
)

// Step is one bootstrap action. Steps run strictly in registration order.
type Step struct {
	Name  string
	Phase Phase
	Run   func(ctx context.Context) error
}

// PhaseState tracks one phase's progress independently so callers can
// observe partial bootstrap.
type PhaseState struct {
	Loading     bool      `json:"loading"`
	Complete    bool      `json:"complete"`
	Attempts    int       `json:"attempts"`
	LastStarted time.Time `json:"last_started,omitzero"`
	LastEnded   time.Time `json:"last_ended,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// State is the loader's observable aggregate.
type State struct {
	Initialized bool       `json:"initialized"`
	API         PhaseState `json:"api"`
	Script      PhaseState `json:"script"`
	DOM         PhaseState `json:"dom"`
}

// StepError reports which step and phase a bootstrap run failed on.
type StepError struct {
	Step  string
	Phase Phase
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("loader: step %s (%s phase): %v", e.Step, e.Phase, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Loader executes bootstrap steps sequentially, exactly once. A completed run
// makes further Run calls no-ops until Reset.
type Loader struct {
	mu      sync.Mutex
	steps   []Step
	state   State
	running bool
	logger  *logging.Logger
	now     func() time.Time
}

// New creates a loader over an ordered step sequence.
func New(steps []Step, logger *logging.Logger) *Loader {
	if logger == nil {
		logger = logging.Default()
	}
	return &Loader{
		steps:  steps,
		logger: logger.Component("loader"),
		now:    time.Now,
	}
}

// Run executes the steps in order. Re-invoking after a completed run returns
// the cached state without re-executing anything. A failed run stops at the
// failing step; a later Run (after Reset) starts over from the beginning.
func (l *Loader) Run(ctx context.Context) (State, error) {
	l.mu.Lock()
	if l.state.Initialized || l.running {
		state := l.state
		l.mu.Unlock()
		return state, nil
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	for _, step := range l.steps {
		l.beginPhase(step.Phase)
		err := step.Run(ctx)
		l.endPhase(step.Phase, err)
		if err != nil {
			l.logger.Error("bootstrap step failed", "step", step.Name, "phase", string(step.Phase), "error", err)
			return l.Snapshot(), &StepError{Step: step.Name, Phase: step.Phase, Err: err}
		}
		l.logger.Debug("bootstrap step complete", "step", step.Name, "phase", string(step.Phase))
	}

	l.mu.Lock()
	l.state.Initialized = true
	state := l.state
	l.mu.Unlock()
	return state, nil
}

// Reset clears all phase state and permits a fresh Run.
func (l *Loader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = State{}
}

// Snapshot returns the current loader state.
func (l *Loader) Snapshot() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) beginPhase(p Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ps := l.phase(p)
	ps.Loading = true
	ps.Attempts++
	ps.LastStarted = l.now().UTC()
	ps.Error = ""
}

func (l *Loader) endPhase(p Phase, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ps := l.phase(p)
	ps.Loading = false
	ps.LastEnded = l.now().UTC()
	if err != nil {
		ps.Error = err.Error()
		return
	}
	ps.Complete = true
}

// phase returns the mutable record for a phase. Callers hold l.mu.
func (l *Loader) phase(p Phase) *PhaseState {
	switch p {
	case PhaseScript:
		return &l.state.Script
	case PhaseDOM:
		return &l.state.DOM
	default:
		return &l.state.API
	}
}
