package model

import (
	"context"

	"github.com/aseriousbiz/abbot/pkg/domain/model/mrkdwn"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
)

// Responder posts replies on behalf of the bot that received an event
type Responder interface {
	Reply(ctx context.Context, text string) error
}

// Message is a translated conversational message
type Message struct {
	EventID         string
	Organization    *Organization
	Bot             *BotIdentity
	From            *Member
	Room            *Room
	Mentions        []*Member
	Text            string
	Spans           []mrkdwn.Span
	Timestamp       slack.Timestamp
	ThreadTimestamp slack.Timestamp
	DirectMention   bool
	Responder       Responder
}

// IsInThread reports whether the message is a thread reply
func (m *Message) IsInThread() bool {
	return !m.ThreadTimestamp.IsZero() && !m.ThreadTimestamp.Equal(m.Timestamp)
}

// ReplyTimestamp is the thread a reply to this message belongs in
func (m *Message) ReplyTimestamp() slack.Timestamp {
	if m.IsInThread() {
		return m.ThreadTimestamp
	}
	return m.Timestamp
}

// IsDirectMessage reports whether the message was sent in a DM with the bot
func (m *Message) IsDirectMessage() bool {
	return m.Room != nil && m.Room.RoomType.IsDirectMessage()
}

// PlatformEvent is a translated non-conversational event
type PlatformEvent struct {
	Kind         types.EventKind
	EventID      string
	Organization *Organization
	Bot          *BotIdentity
	From         *Member
	Room         *Room
	Payload      EventPayload
	Responder    Responder
}

// EventPayload is the kind specific part of a PlatformEvent. The set of
// implementations is closed.
type EventPayload interface {
	eventPayload()
}

// MessageChange is the payload of message_changed and message_deleted
type MessageChange struct {
	Timestamp       slack.Timestamp
	ThreadTimestamp slack.Timestamp
	Text            string
	PreviousText    string
}

// Reaction is the payload of reaction_added and reaction_removed
type Reaction struct {
	Name          string
	ItemTimestamp slack.Timestamp
	ItemUserID    string
}

// RoomChange is the payload of channel lifecycle events
type RoomChange struct {
	Name string
}

// MembershipChange is the payload of room membership events. Member is the
// member who joined or left; PlatformEvent.From is who caused it.
type MembershipChange struct {
	Member *Member
}

// UserChange is the payload of user_change
type UserChange struct {
	Member *Member
}

// TeamChange is the payload of team_rename and team_domain_change
type TeamChange struct {
	Name   string
	Domain string
}

// AppHome is the payload of app_home_opened
type AppHome struct {
	Tab string
}

// AppInstall is the payload of app_installed
type AppInstall struct {
	Install *InstallEvent
}

// AppUninstall is the payload of app_uninstalled
type AppUninstall struct{}

// TokensRevoked is the payload of tokens_revoked
type TokensRevoked struct {
	UserIDs    []string
	BotUserIDs []string
}

// Interaction is the payload of interactive payloads
type Interaction struct {
	CallbackID       string
	TriggerID        string
	ResponseURL      string
	MessageTimestamp slack.Timestamp
	ThreadTimestamp  slack.Timestamp
	Actions          []slack.Action
	View             *slack.View
}

func (MessageChange) eventPayload()    {}
func (Reaction) eventPayload()         {}
func (RoomChange) eventPayload()       {}
func (MembershipChange) eventPayload() {}
func (UserChange) eventPayload()       {}
func (TeamChange) eventPayload()       {}
func (AppHome) eventPayload()          {}
func (AppInstall) eventPayload()       {}
func (AppUninstall) eventPayload()     {}
func (TokensRevoked) eventPayload()    {}
func (Interaction) eventPayload()      {}
