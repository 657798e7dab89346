package model

import "time"

// Integration is a custom Slack app registered for an organization. Events
// carrying its API app id are handled with its bot identity instead of the
// organization's default bot.
type Integration struct {
	AppID          string
	OrganizationID OrganizationID
	Enabled        bool
	Bot            BotIdentity
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a deep copy
func (i *Integration) Clone() *Integration {
	if i == nil {
		return nil
	}
	c := *i
	c.Bot = *i.Bot.Clone()
	return &c
}
