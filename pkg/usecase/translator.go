package usecase

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/model/mrkdwn"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
	"github.com/aseriousbiz/abbot/pkg/utils/metrics"
)

const kindMessage = "message"

// Translator turns inbound Slack envelopes into Messages and PlatformEvents
// carrying resolved entities. A nil result with a nil error means the
// envelope should be dropped.
type Translator struct {
	repo     interfaces.Repository
	resolver *Resolver
	slack    interfaces.SlackClient
	metrics  *metrics.Metrics
}

// TranslatorOption is a functional option for Translator
type TranslatorOption func(*Translator)

// WithTranslatorMetrics records translation outcomes
func WithTranslatorMetrics(m *metrics.Metrics) TranslatorOption {
	return func(t *Translator) {
		t.metrics = m
	}
}

// NewTranslator creates a Translator
func NewTranslator(repo interfaces.Repository, resolver *Resolver, slackClient interfaces.SlackClient, opts ...TranslatorOption) *Translator {
	t := &Translator{
		repo:     repo,
		resolver: resolver,
		slack:    slackClient,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// source is the organization and bot an envelope is handled with
type source struct {
	org *model.Organization
	bot *model.BotIdentity
	// appMismatch is set when the envelope came from another app than the
	// organization's active bot
	appMismatch bool
}

// resolveSource finds the organization by integration app id, the first
// authorization, the view's installing team, then the envelope team, in that
// order. nil means the envelope cannot be handled.
func (x *Translator) resolveSource(ctx context.Context, appID string, auths []slack.Authorization, viewTeamID, teamID string) (*source, error) {
	if appID != "" {
		integration, err := x.repo.Integration().GetByAppID(ctx, appID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get integration", goerr.V("app_id", appID))
		}
		if integration != nil && integration.Enabled {
			org, err := x.repo.Organization().Get(ctx, integration.OrganizationID)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to get integration organization", goerr.V("app_id", appID))
			}
			if org != nil {
				if integration.Bot.APIToken.IsEmpty() {
					return nil, nil
				}
				return &source{org: org, bot: integration.Bot.Clone()}, nil
			}
		}
	}

	var platformID string
	switch {
	case len(auths) > 0 && auths[0].InstallationTeamID() != "":
		platformID = auths[0].InstallationTeamID()
	case viewTeamID != "":
		platformID = viewTeamID
	default:
		platformID = teamID
	}
	if platformID == "" {
		return nil, nil
	}

	org, err := x.repo.Organization().GetByPlatformID(ctx, platformID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organization", goerr.V(TeamIDKey, platformID))
	}
	if org == nil || !org.HasAPIToken() {
		return nil, nil
	}

	return &source{
		org:         org,
		bot:         org.Bot.Clone(),
		appMismatch: appID != "" && org.Bot.AppID != "" && appID != org.Bot.AppID,
	}, nil
}

// fromUserID extracts the acting user of a callback event
func fromUserID(env *slack.EventEnvelope, bot *model.BotIdentity) string {
	switch ev := env.Event.(type) {
	case *slack.MessageEvent:
		if ev.IsEditOrDelete() {
			return ev.EffectiveUserID()
		}
		if ev.UserID != "" {
			return ev.UserID
		}
		if auth, ok := env.FirstAuthorization(); ok {
			return auth.UserID
		}
	case *slack.AppMentionEvent:
		return ev.UserID
	case *slack.ReactionEvent:
		return ev.UserID
	case *slack.ChannelLifecycleEvent:
		return ev.UserID
	case *slack.MembershipEvent:
		return ev.UserID
	case *slack.UserChangeEvent:
		return ev.User.ID
	case *slack.AppHomeOpenedEvent:
		return ev.UserID
	case *slack.AppUninstalledEvent:
		return bot.BotUserID
	}
	return ""
}

// resolveFrom resolves the acting member. An empty id falls back to the
// organization's Abbot member; an id that cannot be resolved yields nil.
func (x *Translator) resolveFrom(ctx context.Context, userID string, src *source) (*model.Member, error) {
	if userID == "" {
		return x.abbotMember(ctx, src.org)
	}

	member, err := x.resolver.ResolveMember(ctx, userID, src.org, false)
	if err != nil {
		return nil, err
	}
	if member == nil && userID == src.bot.BotUserID {
		return x.abbotMember(ctx, src.org)
	}
	return member, nil
}

func (x *Translator) abbotMember(ctx context.Context, org *model.Organization) (*model.Member, error) {
	member, err := x.repo.User().EnsureAbbotMember(ctx, org)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ensure abbot member", goerr.V(OrganizationIDKey, org.ID))
	}
	return member, nil
}

// TranslateMessage translates a conversational message. Envelopes that are
// not messages are dropped.
func (x *Translator) TranslateMessage(ctx context.Context, env slack.Envelope) (*model.Message, error) {
	msg, err := x.translateMessage(ctx, env)
	switch {
	case err != nil:
		x.metrics.Translation(kindMessage, metrics.OutcomeFailed)
	case msg == nil:
		x.metrics.Translation(kindMessage, metrics.OutcomeDropped)
	default:
		x.metrics.Translation(kindMessage, metrics.OutcomeTranslated)
	}
	return msg, err
}

func (x *Translator) translateMessage(ctx context.Context, env slack.Envelope) (*model.Message, error) {
	callback, ok := env.(*slack.EventEnvelope)
	if !ok {
		return nil, nil
	}

	var (
		channelID     string
		text          string
		ts, threadTS  slack.Timestamp
		directMention bool
	)
	switch ev := callback.Event.(type) {
	case *slack.MessageEvent:
		if !isConversationalSubtype(ev.Subtype) {
			return nil, nil
		}
		if _, _, removed := parseRemovedFromRoom(ev.Text); removed {
			return nil, nil
		}
		channelID, text, ts, threadTS = ev.ChannelID, ev.Text, ev.Timestamp, ev.ThreadTimestamp
	case *slack.AppMentionEvent:
		channelID, text, ts, threadTS = ev.ChannelID, ev.Text, ev.Timestamp, ev.ThreadTimestamp
		directMention = true
	default:
		return nil, nil
	}

	src, err := x.resolveSource(ctx, callback.APIAppID, callback.Authorizations, "", callback.TeamID)
	if err != nil || src == nil {
		return nil, err
	}
	if src.appMismatch {
		logging.From(ctx).Debug("dropping message from inactive app", "app_id", callback.APIAppID)
		return nil, nil
	}

	from, err := x.resolveFrom(ctx, fromUserID(callback, src.bot), src)
	if err != nil || from == nil {
		return nil, err
	}

	room, err := x.resolver.ResolveRoom(ctx, channelID, src.org, false)
	if err != nil {
		return nil, err
	}

	spans := mrkdwn.Parse(text)
	mentionIDs := mrkdwn.MentionedUserIDs(spans)
	mentions, err := x.resolver.ResolveMembers(ctx, mentionIDs, src.org)
	if err != nil {
		return nil, err
	}
	for _, id := range mentionIDs {
		if id == src.bot.BotUserID {
			directMention = true
		}
	}

	msg := &model.Message{
		EventID:         callback.EventID,
		Organization:    src.org,
		Bot:             src.bot,
		From:            from,
		Room:            room,
		Mentions:        mentions,
		Text:            text,
		Spans:           spans,
		Timestamp:       ts,
		ThreadTimestamp: threadTS,
		DirectMention:   directMention || (room != nil && room.RoomType == types.RoomTypeDirectMessage),
	}
	msg.Responder = newResponder(x.slack, src.bot, channelID, msg.ReplyTimestamp())

	if room != nil && !from.IsBot() {
		at := ts.Time()
		if at.IsZero() {
			at = x.resolver.now()
		}
		if err := x.repo.Room().UpdateLastMessageActivity(ctx, room.ID, at); err != nil {
			return nil, goerr.Wrap(err, "failed to update room activity", goerr.V(ChannelIDKey, channelID))
		}
		room.LastMessageActivity = at
	}

	return msg, nil
}

func isConversationalSubtype(subtype string) bool {
	switch subtype {
	case "", slack.MessageSubtypeBotMessage, "thread_broadcast", "file_share", "me_message":
		return true
	default:
		return false
	}
}

// TranslateEvent translates every non-message envelope. Conversational
// messages are dropped here; they go through TranslateMessage.
func (x *Translator) TranslateEvent(ctx context.Context, env slack.Envelope) (*model.PlatformEvent, error) {
	var (
		ev   *model.PlatformEvent
		err  error
		kind = "unknown"
	)

	switch e := env.(type) {
	case *slack.EventEnvelope:
		kind = callbackKind(e.Event)
		ev, err = x.translateCallbackEvent(ctx, e)
	case *slack.InteractionPayload:
		kind = e.Kind.String()
		ev, err = x.translateInteraction(ctx, e)
	case *slack.InstallEnvelope:
		return x.TranslateInstallEvent(ctx, e)
	}

	switch {
	case err != nil:
		x.metrics.Translation(kind, metrics.OutcomeFailed)
	case ev == nil:
		x.metrics.Translation(kind, metrics.OutcomeDropped)
	default:
		x.metrics.Translation(ev.Kind.String(), metrics.OutcomeTranslated)
	}
	return ev, err
}

func callbackKind(ev slack.Event) string {
	switch e := ev.(type) {
	case *slack.MessageEvent:
		if e.Subtype != "" {
			return e.Subtype
		}
		return kindMessage
	case *slack.AppMentionEvent:
		return "app_mention"
	case *slack.ReactionEvent:
		if e.Added {
			return types.EventKindReactionAdded.String()
		}
		return types.EventKindReactionRemoved.String()
	case *slack.ChannelLifecycleEvent:
		return e.Kind.String()
	case *slack.MembershipEvent:
		if e.Joined {
			return types.EventKindRoomMembershipAdded.String()
		}
		return types.EventKindRoomMembershipRemoved.String()
	case *slack.UserChangeEvent:
		return types.EventKindUserChanged.String()
	case *slack.TeamChangeEvent:
		return types.EventKindTeamChanged.String()
	case *slack.AppHomeOpenedEvent:
		return types.EventKindAppHomeOpened.String()
	case *slack.AppUninstalledEvent:
		return types.EventKindAppUninstalled.String()
	case *slack.TokensRevokedEvent:
		return types.EventKindTokensRevoked.String()
	}
	return "unknown"
}

// allowedOnAppMismatch lists events handled even when they come from an app
// other than the organization's active bot
func allowedOnAppMismatch(ev slack.Event) bool {
	switch ev.(type) {
	case *slack.AppUninstalledEvent, *slack.AppHomeOpenedEvent:
		return true
	default:
		return false
	}
}

func (x *Translator) translateCallbackEvent(ctx context.Context, env *slack.EventEnvelope) (*model.PlatformEvent, error) {
	switch ev := env.Event.(type) {
	case *slack.AppMentionEvent:
		return nil, nil
	case *slack.MessageEvent:
		if !ev.IsEditOrDelete() {
			if _, _, removed := parseRemovedFromRoom(ev.Text); !removed {
				return nil, nil
			}
		}
	case nil:
		return nil, nil
	}

	src, err := x.resolveSource(ctx, env.APIAppID, env.Authorizations, "", env.TeamID)
	if err != nil || src == nil {
		return nil, err
	}
	if src.appMismatch && !allowedOnAppMismatch(env.Event) {
		logging.From(ctx).Debug("dropping event from inactive app", "app_id", env.APIAppID)
		return nil, nil
	}

	base := &model.PlatformEvent{
		EventID:      env.EventID,
		Organization: src.org,
		Bot:          src.bot,
	}

	switch ev := env.Event.(type) {
	case *slack.MessageEvent:
		if ev.IsEditOrDelete() {
			return x.translateMessageChange(ctx, env, ev, src, base)
		}
		return x.translateRemovedFromRoom(ctx, ev, src, base)

	case *slack.ReactionEvent:
		base.Kind = types.EventKindReactionRemoved
		if ev.Added {
			base.Kind = types.EventKindReactionAdded
		}
		base.Payload = model.Reaction{
			Name:          ev.Reaction,
			ItemTimestamp: ev.ItemTimestamp,
			ItemUserID:    ev.ItemUserID,
		}
		return x.withFromAndRoom(ctx, env, src, base, ev.ItemChannelID, false, ev.ItemTimestamp)

	case *slack.ChannelLifecycleEvent:
		base.Kind = ev.Kind
		base.Payload = model.RoomChange{Name: ev.Name}
		// lifecycle events change the room, so its cached copy is outdated
		return x.withFromAndRoom(ctx, env, src, base, ev.ChannelID, true, slack.Timestamp{})

	case *slack.MembershipEvent:
		base.Kind = types.EventKindRoomMembershipRemoved
		if ev.Joined {
			base.Kind = types.EventKindRoomMembershipAdded
		}
		forceRefresh := ev.UserID == src.bot.BotUserID
		if _, err := x.withFromAndRoom(ctx, env, src, base, ev.ChannelID, forceRefresh, slack.Timestamp{}); err != nil || base.From == nil {
			return nil, err
		}
		base.Payload = model.MembershipChange{Member: base.From}
		return base, nil

	case *slack.UserChangeEvent:
		return x.translateUserChange(ctx, ev, src, base)

	case *slack.TeamChangeEvent:
		base.Kind = types.EventKindTeamChanged
		base.Payload = model.TeamChange{Name: ev.Name, Domain: ev.Domain}
		return x.withFromAndRoom(ctx, env, src, base, "", false, slack.Timestamp{})

	case *slack.AppHomeOpenedEvent:
		base.Kind = types.EventKindAppHomeOpened
		base.Payload = model.AppHome{Tab: ev.Tab}
		if _, err := x.withFromAndRoom(ctx, env, src, base, "", false, slack.Timestamp{}); err != nil || base.From == nil {
			return nil, err
		}
		base.Responder = newResponder(x.slack, src.bot, ev.ChannelID, slack.Timestamp{})
		return base, nil

	case *slack.AppUninstalledEvent:
		base.Kind = types.EventKindAppUninstalled
		base.Payload = model.AppUninstall{}
		return x.withFromAndRoom(ctx, env, src, base, "", false, slack.Timestamp{})

	case *slack.TokensRevokedEvent:
		base.Kind = types.EventKindTokensRevoked
		base.Payload = model.TokensRevoked{UserIDs: ev.UserIDs, BotUserIDs: ev.BotUserIDs}
		from, err := x.abbotMember(ctx, src.org)
		if err != nil {
			return nil, err
		}
		base.From = from
		return base, nil
	}

	return nil, nil
}

// withFromAndRoom fills From, Room and Responder. The event is dropped when
// the acting member cannot be resolved.
func (x *Translator) withFromAndRoom(ctx context.Context, env *slack.EventEnvelope, src *source, ev *model.PlatformEvent, channelID string, forceRefresh bool, threadTS slack.Timestamp) (*model.PlatformEvent, error) {
	from, err := x.resolveFrom(ctx, fromUserID(env, src.bot), src)
	if err != nil || from == nil {
		return nil, err
	}
	ev.From = from

	if channelID != "" {
		room, err := x.resolver.ResolveRoom(ctx, channelID, src.org, forceRefresh)
		if err != nil {
			return nil, err
		}
		ev.Room = room
		ev.Responder = newResponder(x.slack, src.bot, channelID, threadTS)
	}
	return ev, nil
}

func (x *Translator) translateMessageChange(ctx context.Context, env *slack.EventEnvelope, ev *slack.MessageEvent, src *source, base *model.PlatformEvent) (*model.PlatformEvent, error) {
	change := model.MessageChange{}
	if ev.Previous != nil {
		change.PreviousText = ev.Previous.Text
		change.Timestamp = ev.Previous.Timestamp
		change.ThreadTimestamp = ev.Previous.ThreadTimestamp
	}

	switch ev.Subtype {
	case slack.MessageSubtypeChanged:
		base.Kind = types.EventKindMessageChanged
		if ev.Message != nil {
			change.Text = ev.Message.Text
			change.Timestamp = ev.Message.Timestamp
			change.ThreadTimestamp = ev.Message.ThreadTimestamp
		}
	default:
		base.Kind = types.EventKindMessageDeleted
		if !ev.DeletedTimestamp.IsZero() {
			change.Timestamp = ev.DeletedTimestamp
		}
	}
	base.Payload = change

	return x.withFromAndRoom(ctx, env, src, base, ev.ChannelID, false, change.ThreadTimestamp)
}

// translateRemovedFromRoom turns Slack's "You have been removed from #room by
// @user" notice into a membership event for the bot
func (x *Translator) translateRemovedFromRoom(ctx context.Context, ev *slack.MessageEvent, src *source, base *model.PlatformEvent) (*model.PlatformEvent, error) {
	roomRef, userRef, _ := parseRemovedFromRoom(ev.Text)

	abbot, err := x.abbotMember(ctx, src.org)
	if err != nil {
		return nil, err
	}

	base.Kind = types.EventKindRoomMembershipRemoved
	base.From = abbot
	base.Payload = model.MembershipChange{Member: abbot}

	if userRef.id != "" {
		remover, err := x.resolver.ResolveMember(ctx, userRef.id, src.org, false)
		if err != nil {
			return nil, err
		}
		if remover != nil {
			base.From = remover
		}
	}

	if roomRef.id != "" {
		room, err := x.resolver.ResolveRoom(ctx, roomRef.id, src.org, true)
		if err != nil {
			return nil, err
		}
		base.Room = room
	}
	return base, nil
}

func (x *Translator) translateUserChange(ctx context.Context, ev *slack.UserChangeEvent, src *source, base *model.PlatformEvent) (*model.PlatformEvent, error) {
	u := ev.User
	homeTeamID := u.TeamID
	if homeTeamID == "" {
		homeTeamID = u.EnterpriseID
	}
	if u.ID == "" || homeTeamID == "" {
		return nil, nil
	}

	userOrg, err := x.resolver.ResolveOrganization(ctx, homeTeamID, src.org)
	if err != nil {
		return nil, err
	}

	member, err := x.repo.User().EnsureMember(ctx, userOrg, &model.UserProfile{
		PlatformUserID: u.ID,
		TeamID:         u.TeamID,
		EnterpriseID:   u.EnterpriseID,
		Name:           u.Name,
		DisplayName:    u.DisplayName,
		RealName:       u.RealName,
		Email:          u.Email,
		Avatar:         u.Avatar,
		TimeZoneID:     u.TimeZone,
		IsBot:          u.IsBot,
		IsGuest:        u.IsRestricted,
		Deleted:        u.Deleted,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ensure changed member", goerr.V(UserIDKey, u.ID))
	}

	base.Kind = types.EventKindUserChanged
	base.From = member
	base.Payload = model.UserChange{Member: member}
	return base, nil
}

func (x *Translator) translateInteraction(ctx context.Context, p *slack.InteractionPayload) (*model.PlatformEvent, error) {
	if !p.Kind.IsInteraction() {
		return nil, nil
	}

	var viewTeamID string
	if p.View != nil {
		viewTeamID = p.View.AppInstalledTeamID
	}
	teamID := p.TeamID
	if teamID == "" {
		teamID = p.EnterpriseID
	}

	src, err := x.resolveSource(ctx, p.APIAppID, nil, viewTeamID, teamID)
	if err != nil || src == nil {
		return nil, err
	}
	// interactions are answered even while an app migration is in progress

	from, err := x.resolveFrom(ctx, p.User.ID, src)
	if err != nil || from == nil {
		return nil, err
	}

	ev := &model.PlatformEvent{
		Kind:         p.Kind,
		Organization: src.org,
		Bot:          src.bot,
		From:         from,
		Payload: model.Interaction{
			CallbackID:       p.CallbackID,
			TriggerID:        p.TriggerID,
			ResponseURL:      p.ResponseURL,
			MessageTimestamp: p.MessageTimestamp,
			ThreadTimestamp:  p.ThreadTimestamp,
			Actions:          p.Actions,
			View:             p.View,
		},
	}

	if p.ChannelID != "" {
		room, err := x.resolver.ResolveRoom(ctx, p.ChannelID, src.org, false)
		if err != nil {
			return nil, err
		}
		ev.Room = room

		replyTS := p.ThreadTimestamp
		if replyTS.IsZero() {
			replyTS = p.MessageTimestamp
		}
		ev.Responder = newResponder(x.slack, src.bot, p.ChannelID, replyTS)
	}
	return ev, nil
}

// TranslateInstallEvent completes an OAuth installation. The organization is
// created on first install; storing the bot is left to the event handler.
func (x *Translator) TranslateInstallEvent(ctx context.Context, env slack.Envelope) (*model.PlatformEvent, error) {
	install, ok := env.(*slack.InstallEnvelope)
	if !ok {
		return nil, goerr.Wrap(ErrUnexpectedPayload, "install translation needs an install envelope")
	}

	ev, err := x.translateInstall(ctx, install)
	if err != nil {
		x.metrics.Translation(types.EventKindAppInstalled.String(), metrics.OutcomeFailed)
		return nil, err
	}
	x.metrics.Translation(types.EventKindAppInstalled.String(), metrics.OutcomeTranslated)
	return ev, nil
}

func (x *Translator) translateInstall(ctx context.Context, install *slack.InstallEnvelope) (*model.PlatformEvent, error) {
	installed, err := x.resolver.ResolveInstallEvent(ctx, install.Code, install.RedirectURI)
	if err != nil {
		return nil, err
	}

	org, err := x.repo.Organization().GetByPlatformID(ctx, installed.PlatformID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get installing organization", goerr.V(TeamIDKey, installed.PlatformID))
	}
	if org == nil {
		now := x.resolver.now()
		org, err = x.repo.Organization().Create(ctx, &model.Organization{
			PlatformID:       installed.PlatformID,
			PlatformType:     types.PlatformTypeSlack,
			EnterpriseGridID: installed.EnterpriseID,
			Domain:           installed.Domain,
			Name:             installed.Name,
			Avatar:           installed.Avatar,
			PlanType:         types.PlanTypeFree,
			Slug:             model.SlugFromDomain(installed.Domain, installed.PlatformID),
			CreatedAt:        now,
			UpdatedAt:        now,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create installing organization", goerr.V(TeamIDKey, installed.PlatformID))
		}
	}

	from, err := x.abbotMember(ctx, org)
	if err != nil {
		return nil, err
	}
	if installed.InstallerUserID != "" {
		// the org has no token yet, so resolve with the new one
		withToken := org.Clone()
		withToken.Bot = installed.Bot.Clone()
		installer, err := x.resolver.ResolveMember(ctx, installed.InstallerUserID, withToken, false)
		if err != nil {
			return nil, err
		}
		if installer != nil {
			from = installer
		}
	}

	bot := installed.Bot.Clone()
	return &model.PlatformEvent{
		Kind:         types.EventKindAppInstalled,
		Organization: org,
		Bot:          bot,
		From:         from,
		Payload:      model.AppInstall{Install: installed},
	}, nil
}

// TranslateUninstallEvent translates app_uninstalled
func (x *Translator) TranslateUninstallEvent(ctx context.Context, env slack.Envelope) (*model.PlatformEvent, error) {
	callback, ok := env.(*slack.EventEnvelope)
	if !ok {
		return nil, goerr.Wrap(ErrUnexpectedPayload, "uninstall translation needs an event envelope")
	}
	if _, ok := callback.Event.(*slack.AppUninstalledEvent); !ok {
		return nil, goerr.Wrap(ErrUnexpectedPayload, "uninstall translation needs app_uninstalled",
			goerr.V(EventIDKey, callback.EventID))
	}
	return x.TranslateEvent(ctx, env)
}

// roomOrUserRef is a reference parsed from Slack's plain text notices
type roomOrUserRef struct {
	id   string
	name string
}

const (
	removedPrefix = "You have been removed from "
	removedBy     = " by "
)

// parseRemovedFromRoom recognizes "You have been removed from #room by @user"
// in both the encoded form (<#C123|room>, <@U123>) and the bare name form
func parseRemovedFromRoom(text string) (room, user roomOrUserRef, ok bool) {
	rest, found := strings.CutPrefix(text, removedPrefix)
	if !found {
		return room, user, false
	}
	roomText, userText, found := strings.Cut(rest, removedBy)
	if !found {
		return room, user, false
	}

	room, ok = parseRef(strings.TrimSpace(roomText), "<#", "#")
	if !ok {
		return roomOrUserRef{}, roomOrUserRef{}, false
	}
	user, ok = parseRef(strings.TrimSpace(userText), "<@", "@")
	if !ok {
		return roomOrUserRef{}, roomOrUserRef{}, false
	}
	return room, user, true
}

func parseRef(s, tokenPrefix, barePrefix string) (roomOrUserRef, bool) {
	if inner, found := strings.CutPrefix(s, tokenPrefix); found {
		inner, found = strings.CutSuffix(inner, ">")
		if !found {
			return roomOrUserRef{}, false
		}
		id, name, _ := strings.Cut(inner, "|")
		if id == "" {
			return roomOrUserRef{}, false
		}
		return roomOrUserRef{id: id, name: name}, true
	}
	if name, found := strings.CutPrefix(s, barePrefix); found && name != "" {
		return roomOrUserRef{name: strings.TrimSuffix(name, ".")}, true
	}
	return roomOrUserRef{}, false
}
