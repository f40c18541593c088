package eligibility

import (
	"github.com/havenhealth/member-chat-platform/internal/plans"
	"github.com/havenhealth/member-chat-platform/pkg/logging"
)

// Resolver combines member eligibility flags with a plan's chat flag into a
// single verdict. Missing data is never treated as eligible.
type Resolver struct {
	logger *logging.Logger
}

// NewResolver creates a resolver. A nil logger falls back to the default.
func NewResolver(logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{logger: logger.Component("eligibility")}
}

// Resolve produces the eligibility verdict for one member and plan.
// Reason codes distinguish missing data, a member-level block, and a
// plan-level block so callers can pick the right user-facing message.
func (r *Resolver) Resolve(e *UserEligibility, plan *plans.PlanInfo) Verdict {
	if e == nil {
		return Verdict{Reason: ReasonNotLoaded}
	}

	v := Verdict{DemoMember: e.DemoMember, WellnessOnly: e.WellnessOnly}

	if plan == nil {
		v.Reason = ReasonNoPlanSelected
		return v
	}
	if e.AccountDisabled {
		v.Reason = ReasonAccountDisabled
		return v
	}
	if !e.ChatEligibleMember {
		v.Reason = ReasonMemberNotEligible
		return v
	}
	if !plan.EligibleForChat {
		v.Reason = ReasonPlanNotEligible
		return v
	}

	v.Eligible = true
	v.Reason = ReasonEligible
	return v
}
