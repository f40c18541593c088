package plans

import (
	"github.com/havenhealth/member-chat-platform/internal/hours"
)

// LineOfBusiness is a plan category.
type LineOfBusiness string

const (
	LOBMedical LineOfBusiness = "medical"
	LOBDental  LineOfBusiness = "dental"
	LOBVision  LineOfBusiness = "vision"
)

// CoverageFlags records which coverages a plan carries for the member.
type CoverageFlags struct {
	Medical bool `json:"medical"`
	Dental  bool `json:"dental"`
	Vision  bool `json:"vision"`
}

// PlanInfo describes one insurance plan available to a member. Constructed at
// bootstrap from member and eligibility data; immutable afterwards except
// EligibleForChat, which is recomputed when eligibility data refreshes.
type PlanInfo struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	EligibleForChat bool                `json:"eligible_for_chat"`
	BusinessHours   hours.BusinessHours `json:"business_hours"`
	LineOfBusiness  LineOfBusiness      `json:"line_of_business"`
	Active          bool                `json:"active"`
	Timezone        string              `json:"timezone,omitempty"`
	Terms           string              `json:"terms,omitempty"`

	// Member display fields
	MemberName   string `json:"member_name,omitempty"`
	MemberNumber string `json:"member_number,omitempty"`
	GroupNumber  string `json:"group_number,omitempty"`

	Coverage CoverageFlags `json:"coverage"`
}
