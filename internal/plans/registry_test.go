package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/havenhealth/member-chat-platform/internal/hours"
)

func testPlans() []PlanInfo {
	return []PlanInfo{
		{ID: "dental-1", Name: "Dental Basic", LineOfBusiness: LOBDental, Active: true},
		{
			ID:              "medical-1",
			Name:            "Medical PPO",
			EligibleForChat: true,
			LineOfBusiness:  LOBMedical,
			Active:          true,
			Terms:           "Chat terms for Medical PPO",
			BusinessHours: hours.BusinessHours{Days: []hours.DaySchedule{
				{Day: "Monday", Open: "08:00", Close: "17:00", IsOpen: true},
			}},
		},
		{ID: "vision-1", Name: "Vision Plus", EligibleForChat: true, LineOfBusiness: LOBVision, Active: true},
	}
}

func TestLoadAutoSelectsFirstChatEligible(t *testing.T) {
	r := NewRegistry()
	r.Load(testPlans())

	current := r.Current()
	require.NotNil(t, current)
	assert.Equal(t, "medical-1", current.ID, "first chat-eligible plan wins, not the first plan")
}

func TestLoadWithNoEligiblePlansSelectsFirstAnyway(t *testing.T) {
	r := NewRegistry()
	r.Load([]PlanInfo{{ID: "dental-1"}, {ID: "vision-1"}})

	// A sole-ineligible-plan member still sees their plan; only the chat
	// entry point is suppressed.
	current := r.Current()
	require.NotNil(t, current)
	assert.Equal(t, "dental-1", current.ID)
	assert.False(t, current.EligibleForChat)
}

func TestLoadWithNoPlansSelectsNothing(t *testing.T) {
	r := NewRegistry()
	r.Load(nil)
	assert.Nil(t, r.Current())
}

func TestSwitchTo(t *testing.T) {
	r := NewRegistry()
	r.Load(testPlans())

	assert.True(t, r.SwitchTo("vision-1"))
	require.NotNil(t, r.Current())
	assert.Equal(t, "vision-1", r.Current().ID)
}

func TestSwitchToUnknownPlanLeavesCurrentUnchanged(t *testing.T) {
	r := NewRegistry()
	r.Load(testPlans())

	assert.False(t, r.SwitchTo("no-such-plan"))
	require.NotNil(t, r.Current())
	assert.Equal(t, "medical-1", r.Current().ID)
}

func TestLookups(t *testing.T) {
	r := NewRegistry()
	r.Load(testPlans())

	assert.True(t, r.IsPlanChatEligible("medical-1"))
	assert.False(t, r.IsPlanChatEligible("dental-1"))
	assert.False(t, r.IsPlanChatEligible("no-such-plan"))

	bh := r.BusinessHoursFor("medical-1")
	require.NotNil(t, bh)
	assert.Len(t, bh.Days, 1)
	assert.Nil(t, r.BusinessHoursFor("no-such-plan"))

	assert.Equal(t, "Chat terms for Medical PPO", r.TermsFor("medical-1"))
	assert.Empty(t, r.TermsFor("no-such-plan"))
}

func TestRefreshChatEligibility(t *testing.T) {
	r := NewRegistry()
	r.Load(testPlans())

	r.RefreshChatEligibility("medical-1", false)
	assert.False(t, r.IsPlanChatEligible("medical-1"))

	// Unknown ids are ignored.
	r.RefreshChatEligibility("no-such-plan", true)
	assert.False(t, r.IsPlanChatEligible("no-such-plan"))
}

func TestCurrentReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Load(testPlans())

	got := r.Current()
	require.NotNil(t, got)
	got.Name = "mutated"

	assert.Equal(t, "Medical PPO", r.Current().Name)
}
