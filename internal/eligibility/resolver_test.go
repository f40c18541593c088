package eligibility

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/havenhealth/member-chat-platform/internal/plans"
)

func TestResolve(t *testing.T) {
	chatPlan := &plans.PlanInfo{ID: "medical-1", EligibleForChat: true}
	noChatPlan := &plans.PlanInfo{ID: "dental-1"}

	tests := []struct {
		name         string
		elig         *UserEligibility
		plan         *plans.PlanInfo
		wantEligible bool
		wantReason   Reason
	}{
		{
			name:       "nil eligibility is never eligible by default",
			elig:       nil,
			plan:       chatPlan,
			wantReason: ReasonNotLoaded,
		},
		{
			name:       "nil eligibility with nil plan still reports not loaded",
			elig:       nil,
			plan:       nil,
			wantReason: ReasonNotLoaded,
		},
		{
			name:       "no plan selected",
			elig:       &UserEligibility{ChatEligibleMember: true},
			plan:       nil,
			wantReason: ReasonNoPlanSelected,
		},
		{
			name:       "disabled account blocks even eligible members",
			elig:       &UserEligibility{ChatEligibleMember: true, AccountDisabled: true},
			plan:       chatPlan,
			wantReason: ReasonAccountDisabled,
		},
		{
			name:       "member not chat eligible",
			elig:       &UserEligibility{},
			plan:       chatPlan,
			wantReason: ReasonMemberNotEligible,
		},
		{
			name:       "plan not chat eligible",
			elig:       &UserEligibility{ChatEligibleMember: true},
			plan:       noChatPlan,
			wantReason: ReasonPlanNotEligible,
		},
		{
			name:         "both flags set",
			elig:         &UserEligibility{ChatEligibleMember: true},
			plan:         chatPlan,
			wantEligible: true,
			wantReason:   ReasonEligible,
		},
		{
			name:         "demo and wellness flags do not block",
			elig:         &UserEligibility{ChatEligibleMember: true, DemoMember: true, WellnessOnly: true},
			plan:         chatPlan,
			wantEligible: true,
			wantReason:   ReasonEligible,
		},
	}

	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.elig, tt.plan)
			assert.Equal(t, tt.wantEligible, got.Eligible)
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestResolveSurfacesInformationalFlags(t *testing.T) {
	r := NewResolver(nil)
	got := r.Resolve(&UserEligibility{ChatEligibleMember: true, DemoMember: true, WellnessOnly: true},
		&plans.PlanInfo{ID: "medical-1", EligibleForChat: true})

	assert.True(t, got.Eligible)
	assert.True(t, got.DemoMember)
	assert.True(t, got.WellnessOnly)
}
