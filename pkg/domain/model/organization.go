package model

import (
	"slices"
	"strings"
	"time"

	"github.com/aseriousbiz/abbot/pkg/domain/types"
)

// OrganizationID is the internal identifier of an Organization
type OrganizationID string

// Organization is one Slack workspace (or Enterprise Grid org) known to Abbot.
// Organizations referenced by events from another workspace are created as
// foreign organizations with PlanTypeNone and no bot.
type Organization struct {
	ID               OrganizationID
	PlatformID       string // Slack team id
	PlatformType     types.PlatformType
	EnterpriseGridID string
	Domain           string
	Name             string
	Avatar           string
	PlanType         types.PlanType
	Slug             string
	Bot              *BotIdentity
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BotIdentity is the Slack app installation a bot acts through
type BotIdentity struct {
	AppID     string
	BotID     string
	BotUserID string
	BotName   string
	BotAvatar string
	APIToken  Secret
	Scopes    []string
}

// IsSlack reports whether the organization lives on Slack
func (o *Organization) IsSlack() bool {
	return o != nil && o.PlatformType == types.PlatformTypeSlack
}

// HasAPIToken reports whether a bot token is installed
func (o *Organization) HasAPIToken() bool {
	return o != nil && o.Bot != nil && !o.Bot.APIToken.IsEmpty()
}

// IsEnterpriseGrid reports whether the organization belongs to an Enterprise Grid
func (o *Organization) IsEnterpriseGrid() bool {
	return o.EnterpriseGridID != ""
}

// Clone returns a deep copy
func (o *Organization) Clone() *Organization {
	if o == nil {
		return nil
	}
	c := *o
	c.Bot = o.Bot.Clone()
	return &c
}

// Clone returns a deep copy
func (b *BotIdentity) Clone() *BotIdentity {
	if b == nil {
		return nil
	}
	c := *b
	c.Scopes = slices.Clone(b.Scopes)
	return &c
}

// HasScope reports whether the bot was granted scope
func (b *BotIdentity) HasScope(scope string) bool {
	return b != nil && slices.Contains(b.Scopes, scope)
}

// ParseScopes splits a comma separated scope list as returned by Slack
func ParseScopes(s string) []string {
	var scopes []string
	for _, scope := range strings.Split(s, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopes = append(scopes, scope)
		}
	}
	return scopes
}

// SlugFromDomain derives a url-safe slug for a new organization
func SlugFromDomain(domain, platformID string) string {
	if domain == "" {
		return strings.ToLower(platformID)
	}
	return strings.ToLower(domain)
}
