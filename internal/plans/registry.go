package plans

import (
	"sync"

	"github.com/havenhealth/member-chat-platform/internal/hours"
)

// Registry holds the plans available to one member and tracks which one is
// currently selected. The registry is mechanism, not policy: SwitchTo swaps
// unconditionally when the id exists, and the session-lock check belongs to
// the chat state machine above it.
type Registry struct {
	mu        sync.RWMutex
	available []PlanInfo
	currentID string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Load replaces the available-plans list and auto-selects the first plan
// eligible for chat. When no plan qualifies the first plan is selected
// anyway, so callers still have a current plan to display and the verdict
// distinguishes "plan not chat-eligible" from "no plan selected".
func (r *Registry) Load(available []PlanInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.available = make([]PlanInfo, len(available))
	copy(r.available, available)

	r.currentID = ""
	for _, p := range r.available {
		if p.EligibleForChat {
			r.currentID = p.ID
			break
		}
	}
	if r.currentID == "" && len(r.available) > 0 {
		r.currentID = r.available[0].ID
	}
}

// SwitchTo selects the plan with the given id, reporting false when the id is
// not in the available set. The current plan is untouched on failure.
func (r *Registry) SwitchTo(planID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.available {
		if p.ID == planID {
			r.currentID = planID
			return true
		}
	}
	return false
}

// Current returns the selected plan, or nil when none is selected.
func (r *Registry) Current() *PlanInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(r.currentID)
}

// Available returns a copy of the available-plans list in load order.
func (r *Registry) Available() []PlanInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PlanInfo, len(r.available))
	copy(out, r.available)
	return out
}

// IsPlanChatEligible reports the chat-enablement flag for a plan id,
// false for unknown ids.
func (r *Registry) IsPlanChatEligible(planID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p := r.lookup(planID); p != nil {
		return p.EligibleForChat
	}
	return false
}

// BusinessHoursFor returns a plan's schedule, or nil for unknown ids.
func (r *Registry) BusinessHoursFor(planID string) *hours.BusinessHours {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p := r.lookup(planID); p != nil {
		bh := p.BusinessHours
		return &bh
	}
	return nil
}

// TermsFor returns a plan's chat terms text, or empty for unknown ids.
func (r *Registry) TermsFor(planID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p := r.lookup(planID); p != nil {
		return p.Terms
	}
	return ""
}

// RefreshChatEligibility recomputes the chat flag on a loaded plan after an
// eligibility refresh. Unknown ids are ignored.
func (r *Registry) RefreshChatEligibility(planID string, eligible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.available {
		if r.available[i].ID == planID {
			r.available[i].EligibleForChat = eligible
			return
		}
	}
}

// lookup returns a copy of the plan with the given id. Callers hold r.mu.
func (r *Registry) lookup(planID string) *PlanInfo {
	if planID == "" {
		return nil
	}
	for i := range r.available {
		if r.available[i].ID == planID {
			p := r.available[i]
			return &p
		}
	}
	return nil
}
