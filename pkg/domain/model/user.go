package model

import (
	"time"
)

// UserID is the internal identifier of a User
type UserID string

// MemberID is the internal identifier of a Member
type MemberID string

// User is a platform identity. One User may be a Member of several
// organizations through Slack Connect or Enterprise Grid.
type User struct {
	ID             UserID
	PlatformUserID string
	SlackTeamID    string // home workspace of the user
	Name           string
	DisplayName    string
	RealName       string
	Email          string
	Avatar         string
	IsBot          bool
	NameIdentifier string // sign-in subject; empty for bots
	Members        []*Member
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Member is a User's membership in one Organization
type Member struct {
	ID                     MemberID
	OrganizationID         OrganizationID
	OrganizationPlatformID string
	UserID                 UserID
	DisplayName            string
	TimeZoneID             string
	IsGuest                bool
	Active                 bool
	IsAbbot                bool
	User                   *User
}

// UserProfile is the platform data used to create or update a User and its
// Member record
type UserProfile struct {
	PlatformUserID string
	TeamID         string
	EnterpriseID   string
	Name           string
	DisplayName    string
	RealName       string
	Email          string
	Avatar         string
	TimeZoneID     string
	IsBot          bool
	IsGuest        bool
	Deleted        bool
}

// SlackNameIdentifier is the sign-in subject of a human Slack user
func SlackNameIdentifier(teamID, userID string) string {
	return "oauth2|slack|" + teamID + "-" + userID
}

// NameIdentifier is the sign-in subject of the profiled user; bots have none
func (p *UserProfile) NameIdentifier() string {
	if p.IsBot {
		return ""
	}
	return SlackNameIdentifier(p.HomeTeamID(), p.PlatformUserID)
}

// HomeTeamID is the team the user belongs to, or the enterprise for
// org-level users
func (p *UserProfile) HomeTeamID() string {
	if p.TeamID != "" {
		return p.TeamID
	}
	return p.EnterpriseID
}

// AbbotProfile describes the bot user of org, or nil when it is not known yet
func AbbotProfile(org *Organization) *UserProfile {
	if org == nil || org.Bot == nil || org.Bot.BotUserID == "" {
		return nil
	}
	return &UserProfile{
		PlatformUserID: org.Bot.BotUserID,
		TeamID:         org.PlatformID,
		Name:           org.Bot.BotName,
		DisplayName:    org.Bot.BotName,
		RealName:       org.Bot.BotName,
		Avatar:         org.Bot.BotAvatar,
		IsBot:          true,
	}
}

// ApplyProfile copies platform data onto the user
func (u *User) ApplyProfile(p *UserProfile) {
	u.PlatformUserID = p.PlatformUserID
	if team := p.HomeTeamID(); team != "" {
		u.SlackTeamID = team
	}
	u.Name = p.Name
	u.DisplayName = p.DisplayName
	u.RealName = p.RealName
	u.Email = p.Email
	u.Avatar = p.Avatar
	u.IsBot = p.IsBot
	u.NameIdentifier = p.NameIdentifier()
}

// ApplyProfile copies the organization specific platform data onto the member
func (m *Member) ApplyProfile(p *UserProfile) {
	m.DisplayName = p.DisplayName
	if m.DisplayName == "" {
		m.DisplayName = p.Name
	}
	m.TimeZoneID = p.TimeZoneID
	m.IsGuest = p.IsGuest
	m.Active = !p.Deleted
}

// MemberFor returns the membership in org, or nil
func (u *User) MemberFor(orgID OrganizationID) *Member {
	for _, m := range u.Members {
		if m.OrganizationID == orgID {
			return m
		}
	}
	return nil
}

// MemberForPlatformID returns the membership in the organization with the
// given Slack team id, or nil
func (u *User) MemberForPlatformID(platformID string) *Member {
	if platformID == "" {
		return nil
	}
	for _, m := range u.Members {
		if m.OrganizationPlatformID == platformID {
			return m
		}
	}
	return nil
}

// Clone returns a deep copy. Members of the copy point back to the copy.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Members = make([]*Member, 0, len(u.Members))
	for _, m := range u.Members {
		mc := *m
		mc.User = &c
		c.Members = append(c.Members, &mc)
	}
	return &c
}

// IsBot reports whether the member is a bot account
func (m *Member) IsBot() bool {
	return m != nil && m.User != nil && m.User.IsBot
}

// PlatformUserID returns the Slack user id of the member
func (m *Member) PlatformUserID() string {
	if m == nil || m.User == nil {
		return ""
	}
	return m.User.PlatformUserID
}
