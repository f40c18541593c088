package eligibility

// UserEligibility is the raw flag snapshot from the member eligibility
// service. Snapshots are immutable: a refresh replaces the whole value,
// individual flags are never patched in place.
type UserEligibility struct {
	MemberID               string `json:"member_id"`
	GroupID                string `json:"group_id"`
	ChatEligibleMember     bool   `json:"is_chat_eligible_member"`
	AccountDisabled        bool   `json:"is_account_disabled"`
	DemoMember             bool   `json:"is_demo_member"`
	AmplifyMember          bool   `json:"is_amplify_mem"`
	CobraEligible          bool   `json:"is_cobra_eligible"`
	WellnessOnly           bool   `json:"is_wellness_only"`
	ChatbotEligible        bool   `json:"is_chatbot_eligible"`
	RoutingChatbotEligible bool   `json:"routing_chatbot_eligible"`
	ChatHours              string `json:"chat_hours"`
}

// Reason explains an eligibility verdict.
type Reason string

const (
	ReasonEligible          Reason = "eligible"
	ReasonNotLoaded         Reason = "not-loaded"
	ReasonNoPlanSelected    Reason = "no-plan-selected"
	ReasonMemberNotEligible Reason = "member-not-eligible"
	ReasonAccountDisabled   Reason = "account-disabled"
	ReasonPlanNotEligible   Reason = "plan-not-eligible"
)

// Verdict is the combined eligibility decision for one member and plan.
// DemoMember and WellnessOnly ride along as informational flags; they never
// drive the boolean verdict.
type Verdict struct {
	Eligible     bool   `json:"eligible"`
	Reason       Reason `json:"reason"`
	DemoMember   bool   `json:"demo_member,omitempty"`
	WellnessOnly bool   `json:"wellness_only,omitempty"`
}
