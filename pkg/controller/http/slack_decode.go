package http

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	slackmodel "github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
)

// Inner event types of the Events API that Abbot understands
const (
	eventTypeMessage             = "message"
	eventTypeAppMention          = "app_mention"
	eventTypeReactionAdded       = "reaction_added"
	eventTypeReactionRemoved     = "reaction_removed"
	eventTypeChannelCreated      = "channel_created"
	eventTypeChannelRename       = "channel_rename"
	eventTypeChannelArchive      = "channel_archive"
	eventTypeChannelUnarchive    = "channel_unarchive"
	eventTypeChannelDeleted      = "channel_deleted"
	eventTypeChannelToPrivate    = "channel_convert_to_private"
	eventTypeGroupRename         = "group_rename"
	eventTypeGroupArchive        = "group_archive"
	eventTypeGroupUnarchive      = "group_unarchive"
	eventTypeGroupDeleted        = "group_deleted"
	eventTypeMemberJoinedChannel = "member_joined_channel"
	eventTypeMemberLeftChannel   = "member_left_channel"
	eventTypeUserChange          = "user_change"
	eventTypeTeamRename          = "team_rename"
	eventTypeTeamDomainChange    = "team_domain_change"
	eventTypeAppHomeOpened       = "app_home_opened"
	eventTypeAppUninstalled      = "app_uninstalled"
	eventTypeTokensRevoked       = "tokens_revoked"
)

type wireAuthorization struct {
	EnterpriseID        string `json:"enterprise_id"`
	TeamID              string `json:"team_id"`
	UserID              string `json:"user_id"`
	IsBot               bool   `json:"is_bot"`
	IsEnterpriseInstall bool   `json:"is_enterprise_install"`
}

type wireCallback struct {
	TeamID         string              `json:"team_id"`
	EnterpriseID   string              `json:"enterprise_id"`
	APIAppID       string              `json:"api_app_id"`
	EventID        string              `json:"event_id"`
	EventTime      int64               `json:"event_time"`
	Authorizations []wireAuthorization `json:"authorizations"`
	Event          json.RawMessage     `json:"event"`
}

type wireMessage struct {
	UserID          string `json:"user"`
	BotID           string `json:"bot_id"`
	Text            string `json:"text"`
	Timestamp       string `json:"ts"`
	ThreadTimestamp string `json:"thread_ts"`
}

// wireChannel accepts both the object form ({"id": ...}) used by
// channel_created and channel_rename and the bare id used elsewhere
type wireChannel struct {
	ID      string
	Name    string
	Creator string
}

func (c *wireChannel) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		c.ID = id
		return nil
	}
	var obj struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Creator string `json:"creator"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return goerr.Wrap(err, "invalid channel field")
	}
	c.ID, c.Name, c.Creator = obj.ID, obj.Name, obj.Creator
	return nil
}

type wireUser struct {
	ID           string `json:"id"`
	TeamID       string `json:"team_id"`
	Name         string `json:"name"`
	RealName     string `json:"real_name"`
	TimeZone     string `json:"tz"`
	IsBot        bool   `json:"is_bot"`
	IsRestricted bool   `json:"is_restricted"`
	Deleted      bool   `json:"deleted"`
	Profile      struct {
		RealName    string `json:"real_name"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
		Image192    string `json:"image_192"`
	} `json:"profile"`
	Enterprise *struct {
		EnterpriseID string `json:"enterprise_id"`
	} `json:"enterprise_user"`
}

type wireEvent struct {
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype"`
	Channel          wireChannel     `json:"channel"`
	ChannelType      string          `json:"channel_type"`
	UserRaw          json.RawMessage `json:"user"`
	BotID            string          `json:"bot_id"`
	Text             string          `json:"text"`
	Timestamp        string          `json:"ts"`
	ThreadTimestamp  string          `json:"thread_ts"`
	DeletedTimestamp string          `json:"deleted_ts"`
	Message          *wireMessage    `json:"message"`
	Previous         *wireMessage    `json:"previous_message"`
	Reaction         string          `json:"reaction"`
	ItemUser         string          `json:"item_user"`
	Item             struct {
		Channel   string `json:"channel"`
		Timestamp string `json:"ts"`
	} `json:"item"`
	Team    string `json:"team"`
	Inviter string `json:"inviter"`
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Tab     string `json:"tab"`
	Tokens  struct {
		OAuth []string `json:"oauth"`
		Bot   []string `json:"bot"`
	} `json:"tokens"`
}

// userID returns the "user" field when it is a plain id. user_change
// carries a user object there instead.
func (e *wireEvent) userID() string {
	var id string
	if len(e.UserRaw) == 0 || json.Unmarshal(e.UserRaw, &id) != nil {
		return ""
	}
	return id
}

func (e *wireEvent) userObject() (*wireUser, error) {
	var u wireUser
	if err := json.Unmarshal(e.UserRaw, &u); err != nil {
		return nil, goerr.Wrap(err, "invalid user object")
	}
	return &u, nil
}

// ts parses a wire timestamp, degrading malformed input to the zero value
func ts(text string) slackmodel.Timestamp {
	t, _ := slackmodel.TryParseTimestamp(text)
	return t
}

func toMessageBody(m *wireMessage) *slackmodel.MessageBody {
	if m == nil {
		return nil
	}
	return &slackmodel.MessageBody{
		UserID:          m.UserID,
		BotID:           m.BotID,
		Text:            m.Text,
		Timestamp:       ts(m.Timestamp),
		ThreadTimestamp: ts(m.ThreadTimestamp),
	}
}

// decodeEventCallback converts an event_callback body into an EventEnvelope.
// An inner event of a type Abbot does not handle yields a nil Event.
func decodeEventCallback(body []byte) (*slackmodel.EventEnvelope, error) {
	var cb wireCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, goerr.Wrap(err, "failed to decode event callback")
	}

	env := &slackmodel.EventEnvelope{
		TeamID:       cb.TeamID,
		EnterpriseID: cb.EnterpriseID,
		APIAppID:     cb.APIAppID,
		EventID:      cb.EventID,
	}
	if cb.EventTime > 0 {
		env.EventTime = time.Unix(cb.EventTime, 0).UTC()
	}
	for _, a := range cb.Authorizations {
		env.Authorizations = append(env.Authorizations, slackmodel.Authorization(a))
	}

	if len(cb.Event) == 0 {
		return nil, goerr.New("event callback without event", goerr.V("event_id", cb.EventID))
	}
	var raw wireEvent
	if err := json.Unmarshal(cb.Event, &raw); err != nil {
		return nil, goerr.Wrap(err, "failed to decode inner event", goerr.V("event_id", cb.EventID))
	}

	ev, err := decodeInnerEvent(&raw)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to convert inner event",
			goerr.V("event_id", cb.EventID),
			goerr.V("type", raw.Type))
	}
	env.Event = ev
	return env, nil
}

func decodeInnerEvent(e *wireEvent) (slackmodel.Event, error) {
	switch e.Type {
	case eventTypeMessage:
		return &slackmodel.MessageEvent{
			Subtype:          e.Subtype,
			ChannelID:        e.Channel.ID,
			ChannelType:      e.ChannelType,
			UserID:           e.userID(),
			BotID:            e.BotID,
			Text:             e.Text,
			Timestamp:        ts(e.Timestamp),
			ThreadTimestamp:  ts(e.ThreadTimestamp),
			DeletedTimestamp: ts(e.DeletedTimestamp),
			Message:          toMessageBody(e.Message),
			Previous:         toMessageBody(e.Previous),
		}, nil

	case eventTypeAppMention:
		return &slackmodel.AppMentionEvent{
			ChannelID:       e.Channel.ID,
			UserID:          e.userID(),
			Text:            e.Text,
			Timestamp:       ts(e.Timestamp),
			ThreadTimestamp: ts(e.ThreadTimestamp),
		}, nil

	case eventTypeReactionAdded, eventTypeReactionRemoved:
		return &slackmodel.ReactionEvent{
			Added:         e.Type == eventTypeReactionAdded,
			UserID:        e.userID(),
			Reaction:      e.Reaction,
			ItemUserID:    e.ItemUser,
			ItemChannelID: e.Item.Channel,
			ItemTimestamp: ts(e.Item.Timestamp),
		}, nil

	case eventTypeChannelCreated, eventTypeChannelRename, eventTypeGroupRename,
		eventTypeChannelArchive, eventTypeGroupArchive,
		eventTypeChannelUnarchive, eventTypeGroupUnarchive,
		eventTypeChannelDeleted, eventTypeGroupDeleted, eventTypeChannelToPrivate:
		userID := e.userID()
		if userID == "" {
			userID = e.Channel.Creator
		}
		return &slackmodel.ChannelLifecycleEvent{
			Kind:      channelEventKind(e.Type),
			ChannelID: e.Channel.ID,
			Name:      e.Channel.Name,
			UserID:    userID,
		}, nil

	case eventTypeMemberJoinedChannel, eventTypeMemberLeftChannel:
		return &slackmodel.MembershipEvent{
			Joined:      e.Type == eventTypeMemberJoinedChannel,
			UserID:      e.userID(),
			ChannelID:   e.Channel.ID,
			ChannelType: e.ChannelType,
			TeamID:      e.Team,
			InviterID:   e.Inviter,
		}, nil

	case eventTypeUserChange:
		u, err := e.userObject()
		if err != nil {
			return nil, err
		}
		obj := slackmodel.UserObject{
			ID:           u.ID,
			TeamID:       u.TeamID,
			Name:         u.Name,
			RealName:     u.Profile.RealName,
			DisplayName:  u.Profile.DisplayName,
			Email:        u.Profile.Email,
			Avatar:       u.Profile.Image192,
			TimeZone:     u.TimeZone,
			IsBot:        u.IsBot,
			IsRestricted: u.IsRestricted,
			Deleted:      u.Deleted,
		}
		if obj.RealName == "" {
			obj.RealName = u.RealName
		}
		if u.Enterprise != nil {
			obj.EnterpriseID = u.Enterprise.EnterpriseID
		}
		return &slackmodel.UserChangeEvent{User: obj}, nil

	case eventTypeTeamRename:
		return &slackmodel.TeamChangeEvent{Name: e.Name}, nil

	case eventTypeTeamDomainChange:
		return &slackmodel.TeamChangeEvent{Domain: e.Domain}, nil

	case eventTypeAppHomeOpened:
		return &slackmodel.AppHomeOpenedEvent{
			UserID:    e.userID(),
			ChannelID: e.Channel.ID,
			Tab:       e.Tab,
		}, nil

	case eventTypeAppUninstalled:
		return &slackmodel.AppUninstalledEvent{}, nil

	case eventTypeTokensRevoked:
		return &slackmodel.TokensRevokedEvent{
			UserIDs:    e.Tokens.OAuth,
			BotUserIDs: e.Tokens.Bot,
		}, nil

	default:
		return nil, nil
	}
}

func channelEventKind(eventType string) types.EventKind {
	switch eventType {
	case eventTypeChannelCreated:
		return types.EventKindRoomCreated
	case eventTypeChannelRename, eventTypeGroupRename:
		return types.EventKindRoomRenamed
	case eventTypeChannelArchive, eventTypeGroupArchive:
		return types.EventKindRoomArchived
	case eventTypeChannelUnarchive, eventTypeGroupUnarchive:
		return types.EventKindRoomUnarchived
	case eventTypeChannelDeleted, eventTypeGroupDeleted:
		return types.EventKindRoomDeleted
	default:
		return types.EventKindRoomConvertedPrivate
	}
}

var interactionKinds = map[slack.InteractionType]types.EventKind{
	slack.InteractionTypeBlockActions:   types.EventKindBlockActions,
	slack.InteractionTypeViewSubmission: types.EventKindViewSubmission,
	slack.InteractionTypeViewClosed:     types.EventKindViewClosed,
	slack.InteractionTypeMessageAction:  types.EventKindMessageAction,
	slack.InteractionTypeShortcut:       types.EventKindShortcut,
}

// decodeInteraction converts the JSON of an interaction "payload" form field.
// Interaction types Abbot does not handle yield nil.
func decodeInteraction(payload []byte) (*slackmodel.InteractionPayload, error) {
	var callback slack.InteractionCallback
	if err := json.Unmarshal(payload, &callback); err != nil {
		return nil, goerr.Wrap(err, "failed to parse interaction payload")
	}

	kind, ok := interactionKinds[callback.Type]
	if !ok {
		return nil, nil
	}

	// the enterprise object is not part of InteractionCallback
	var grid struct {
		Enterprise *struct {
			ID string `json:"id"`
		} `json:"enterprise"`
	}
	if err := json.Unmarshal(payload, &grid); err != nil {
		return nil, goerr.Wrap(err, "failed to parse interaction enterprise")
	}

	p := &slackmodel.InteractionPayload{
		Kind:     kind,
		TeamID:   callback.Team.ID,
		APIAppID: callback.APIAppID,
		User: slackmodel.InteractionUser{
			ID:     callback.User.ID,
			TeamID: callback.User.TeamID,
			Name:   callback.User.Name,
		},
		ChannelID:        callback.Channel.ID,
		MessageTimestamp: ts(callback.Message.Timestamp),
		ThreadTimestamp:  ts(callback.Message.ThreadTimestamp),
		CallbackID:       callback.CallbackID,
		TriggerID:        callback.TriggerID,
		ResponseURL:      callback.ResponseURL,
	}
	if grid.Enterprise != nil {
		p.EnterpriseID = grid.Enterprise.ID
	}
	for _, action := range callback.ActionCallback.BlockActions {
		p.Actions = append(p.Actions, slackmodel.Action{
			ActionID: action.ActionID,
			BlockID:  action.BlockID,
			Value:    action.Value,
		})
	}
	if callback.View.ID != "" {
		p.View = &slackmodel.View{
			ID:                 callback.View.ID,
			CallbackID:         callback.View.CallbackID,
			PrivateMetadata:    callback.View.PrivateMetadata,
			TeamID:             callback.View.TeamID,
			AppInstalledTeamID: callback.View.AppInstalledTeamID,
		}
	}
	return p, nil
}
