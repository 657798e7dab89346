package slack

import "github.com/aseriousbiz/abbot/pkg/domain/types"

// Event is the inner event of an EventEnvelope. The set of implementations
// is closed and listed below.
type Event interface {
	event()
}

// Message subtypes with special handling
const (
	MessageSubtypeChanged    = "message_changed"
	MessageSubtypeDeleted    = "message_deleted"
	MessageSubtypeBotMessage = "bot_message"
)

// MessageBody is the nested message of a message_changed event or the
// previous_message of changed and deleted events
type MessageBody struct {
	UserID          string
	BotID           string
	Text            string
	Timestamp       Timestamp
	ThreadTimestamp Timestamp
}

// MessageEvent is a message posted in a conversation, including subtypes
type MessageEvent struct {
	Subtype          string
	ChannelID        string
	ChannelType      string
	UserID           string
	BotID            string
	Text             string
	Timestamp        Timestamp
	ThreadTimestamp  Timestamp
	DeletedTimestamp Timestamp
	Message          *MessageBody
	Previous         *MessageBody
}

// AppMentionEvent is a message that mentions the bot
type AppMentionEvent struct {
	ChannelID       string
	UserID          string
	Text            string
	Timestamp       Timestamp
	ThreadTimestamp Timestamp
}

// ReactionEvent is reaction_added or reaction_removed
type ReactionEvent struct {
	Added         bool
	UserID        string
	Reaction      string
	ItemUserID    string
	ItemChannelID string
	ItemTimestamp Timestamp
}

// ChannelLifecycleEvent covers channel created, renamed, archived,
// unarchived, deleted and converted to private
type ChannelLifecycleEvent struct {
	Kind      types.EventKind
	ChannelID string
	Name      string
	UserID    string
}

// MembershipEvent is member_joined_channel or member_left_channel
type MembershipEvent struct {
	Joined      bool
	UserID      string
	ChannelID   string
	ChannelType string
	TeamID      string
	InviterID   string
}

// UserObject is the user of a user_change event
type UserObject struct {
	ID           string
	TeamID       string
	EnterpriseID string
	Name         string
	RealName     string
	DisplayName  string
	Email        string
	Avatar       string
	TimeZone     string
	IsBot        bool
	IsRestricted bool
	Deleted      bool
}

// UserChangeEvent is user_change
type UserChangeEvent struct {
	User UserObject
}

// TeamChangeEvent is team_rename or team_domain_change. Only the changed
// attribute is set.
type TeamChangeEvent struct {
	Name   string
	Domain string
}

// AppHomeOpenedEvent is app_home_opened
type AppHomeOpenedEvent struct {
	UserID    string
	ChannelID string
	Tab       string
}

// AppUninstalledEvent is app_uninstalled
type AppUninstalledEvent struct{}

// TokensRevokedEvent is tokens_revoked
type TokensRevokedEvent struct {
	UserIDs    []string
	BotUserIDs []string
}

func (*MessageEvent) event()          {}
func (*AppMentionEvent) event()       {}
func (*ReactionEvent) event()         {}
func (*ChannelLifecycleEvent) event() {}
func (*MembershipEvent) event()       {}
func (*UserChangeEvent) event()       {}
func (*TeamChangeEvent) event()       {}
func (*AppHomeOpenedEvent) event()    {}
func (*AppUninstalledEvent) event()   {}
func (*TokensRevokedEvent) event()    {}

// EffectiveUserID returns the author of the message the event is about
func (e *MessageEvent) EffectiveUserID() string {
	switch e.Subtype {
	case MessageSubtypeChanged, MessageSubtypeDeleted:
		if e.Previous != nil {
			return e.Previous.UserID
		}
		return ""
	default:
		return e.UserID
	}
}

// IsEditOrDelete reports whether the event changes an existing message
func (e *MessageEvent) IsEditOrDelete() bool {
	return e.Subtype == MessageSubtypeChanged || e.Subtype == MessageSubtypeDeleted
}
