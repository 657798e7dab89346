package types

// EventKind names the kind of a translated platform event
type EventKind string

const (
	EventKindMessageChanged        EventKind = "message_changed"
	EventKindMessageDeleted        EventKind = "message_deleted"
	EventKindReactionAdded         EventKind = "reaction_added"
	EventKindReactionRemoved       EventKind = "reaction_removed"
	EventKindRoomCreated           EventKind = "room_created"
	EventKindRoomRenamed           EventKind = "room_renamed"
	EventKindRoomArchived          EventKind = "room_archived"
	EventKindRoomUnarchived        EventKind = "room_unarchived"
	EventKindRoomDeleted           EventKind = "room_deleted"
	EventKindRoomConvertedPrivate  EventKind = "room_converted_to_private"
	EventKindRoomMembershipAdded   EventKind = "room_membership_added"
	EventKindRoomMembershipRemoved EventKind = "room_membership_removed"
	EventKindUserChanged           EventKind = "user_changed"
	EventKindTeamChanged           EventKind = "team_changed"
	EventKindAppHomeOpened         EventKind = "app_home_opened"
	EventKindAppInstalled          EventKind = "app_installed"
	EventKindAppUninstalled        EventKind = "app_uninstalled"
	EventKindTokensRevoked         EventKind = "tokens_revoked"
	EventKindBlockActions          EventKind = "block_actions"
	EventKindViewSubmission        EventKind = "view_submission"
	EventKindViewClosed            EventKind = "view_closed"
	EventKindMessageAction         EventKind = "message_action"
	EventKindShortcut              EventKind = "shortcut"
)

// IsInteraction reports whether the kind originates from an interactive payload
func (k EventKind) IsInteraction() bool {
	switch k {
	case EventKindBlockActions,
		EventKindViewSubmission,
		EventKindViewClosed,
		EventKindMessageAction,
		EventKindShortcut:
		return true
	default:
		return false
	}
}

// String returns the string representation of the event kind
func (k EventKind) String() string {
	return string(k)
}
