package types

import "github.com/m-mizutani/goerr/v2"

// PlanType is the billing plan of an organization. Foreign organizations
// discovered through federation are created with PlanTypeNone.
type PlanType string

const (
	PlanTypeNone       PlanType = "NONE"
	PlanTypeFree       PlanType = "FREE"
	PlanTypeTeam       PlanType = "TEAM"
	PlanTypeBusiness   PlanType = "BUSINESS"
	PlanTypeEnterprise PlanType = "ENTERPRISE"
)

// IsValid checks if the plan type is valid
func (p PlanType) IsValid() bool {
	switch p {
	case PlanTypeNone,
		PlanTypeFree,
		PlanTypeTeam,
		PlanTypeBusiness,
		PlanTypeEnterprise:
		return true
	default:
		return false
	}
}

// String returns the string representation of the plan type
func (p PlanType) String() string {
	return string(p)
}

// ParsePlanType parses a string into a PlanType
func ParsePlanType(s string) (PlanType, error) {
	p := PlanType(s)
	if !p.IsValid() {
		return "", goerr.New("invalid plan type", goerr.V("plan_type", s))
	}
	return p, nil
}

// PlatformType identifies the chat platform an organization lives on
type PlatformType string

const (
	PlatformTypeSlack    PlatformType = "SLACK"
	PlatformTypeTeams    PlatformType = "TEAMS"
	PlatformTypeUnitTest PlatformType = "UNIT_TEST"
)

// IsValid checks if the platform type is valid
func (p PlatformType) IsValid() bool {
	switch p {
	case PlatformTypeSlack, PlatformTypeTeams, PlatformTypeUnitTest:
		return true
	default:
		return false
	}
}

// String returns the string representation of the platform type
func (p PlatformType) String() string {
	return string(p)
}
