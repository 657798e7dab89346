package slack

import (
	"time"

	"github.com/aseriousbiz/abbot/pkg/domain/types"
)

// Envelope is one inbound Slack delivery. The set of implementations is
// closed: *EventEnvelope, *InteractionPayload and *InstallEnvelope.
type Envelope interface {
	envelope()
}

// Authorization is one entry of the authorizations list of an Events API
// callback. For org-wide installs TeamID is empty and EnterpriseID is set.
type Authorization struct {
	EnterpriseID        string
	TeamID              string
	UserID              string
	IsBot               bool
	IsEnterpriseInstall bool
}

// InstallationTeamID returns the id Abbot stores the installation under
func (a Authorization) InstallationTeamID() string {
	if a.IsEnterpriseInstall && a.EnterpriseID != "" {
		return a.EnterpriseID
	}
	if a.TeamID != "" {
		return a.TeamID
	}
	return a.EnterpriseID
}

// EventEnvelope is an Events API event_callback
type EventEnvelope struct {
	TeamID         string
	EnterpriseID   string
	APIAppID       string
	EventID        string
	EventTime      time.Time
	Authorizations []Authorization
	Event          Event
}

// InteractionUser is the user object of an interactive payload
type InteractionUser struct {
	ID     string
	TeamID string
	Name   string
}

// Action is one element of a block_actions payload
type Action struct {
	ActionID string
	BlockID  string
	Value    string
}

// View is the modal or home tab an interaction happened in
type View struct {
	ID                 string
	CallbackID         string
	PrivateMetadata    string
	TeamID             string
	AppInstalledTeamID string
}

// InteractionPayload is a block action, view submission, view closed,
// message action or shortcut payload
type InteractionPayload struct {
	Kind             types.EventKind
	TeamID           string
	EnterpriseID     string
	APIAppID         string
	User             InteractionUser
	ChannelID        string
	MessageTimestamp Timestamp
	ThreadTimestamp  Timestamp
	CallbackID       string
	TriggerID        string
	ResponseURL      string
	Actions          []Action
	View             *View
}

// InstallEnvelope is the OAuth redirect that completes an installation
type InstallEnvelope struct {
	Code        string
	RedirectURI string
}

func (*EventEnvelope) envelope()      {}
func (*InteractionPayload) envelope() {}
func (*InstallEnvelope) envelope()    {}

// FirstAuthorization returns the first authorization, if any
func (e *EventEnvelope) FirstAuthorization() (Authorization, bool) {
	if len(e.Authorizations) == 0 {
		return Authorization{}, false
	}
	return e.Authorizations[0], true
}
