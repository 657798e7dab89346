package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
	"github.com/aseriousbiz/abbot/pkg/utils/metrics"
)

// Resolver maps Slack team, channel and user ids onto Organizations, Rooms
// and Members, creating or refreshing them through the Slack Web API when
// they are missing or stale.
//
// A Resolver holds no per-request state. Batch operations resolve one item
// at a time so a repository backed by a single transaction per request is
// never used concurrently.
type Resolver struct {
	repo      interfaces.Repository
	slack     interfaces.SlackClient
	now       func() time.Time
	staleness time.Duration
	metrics   *metrics.Metrics
}

// ResolverOption is a functional option for Resolver
type ResolverOption func(*Resolver)

// WithClock overrides the clock used to stamp and judge platform updates
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithRoomStaleness sets how long room data is trusted
func WithRoomStaleness(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.staleness = d
	}
}

// WithResolverMetrics records Slack API calls
func WithResolverMetrics(m *metrics.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// NewResolver creates a Resolver
func NewResolver(repo interfaces.Repository, slackClient interfaces.SlackClient, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		repo:      repo,
		slack:     slackClient,
		now:       func() time.Time { return time.Now().UTC() },
		staleness: model.DefaultRoomStaleness,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func requireSlack(org *model.Organization) error {
	if org == nil {
		return goerr.Wrap(ErrNotSlackOrganization, "organization is nil")
	}
	if !org.IsSlack() {
		return goerr.Wrap(ErrNotSlackOrganization, "cannot resolve slack entities",
			goerr.V(OrganizationIDKey, org.ID),
			goerr.V("platform_type", org.PlatformType))
	}
	return nil
}

func requireToken(org *model.Organization) error {
	if !org.HasAPIToken() {
		return goerr.Wrap(ErrNoAPIToken, "cannot call slack api", goerr.V(OrganizationIDKey, org.ID))
	}
	return nil
}

// ResolveOrganization returns the organization for teamID, which may be a
// team id or an enterprise id. Unknown workspaces are provisioned as foreign
// organizations using current's token for the team.info lookup.
func (r *Resolver) ResolveOrganization(ctx context.Context, teamID string, current *model.Organization) (*model.Organization, error) {
	if err := requireSlack(current); err != nil {
		return nil, err
	}
	if teamID == "" {
		return nil, goerr.New("team id is required", goerr.V(OrganizationIDKey, current.ID))
	}
	if teamID == current.PlatformID {
		return current, nil
	}

	existing, err := r.repo.Organization().GetByPlatformID(ctx, teamID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organization", goerr.V(TeamIDKey, teamID))
	}
	if existing != nil && existing.EnterpriseGridID != "" {
		return existing, nil
	}

	if err := requireToken(current); err != nil {
		if existing != nil {
			return existing, nil
		}
		return nil, err
	}

	info, err := r.slack.GetTeamInfo(ctx, current.Bot.APIToken, teamID)
	r.metrics.SlackAPICall("team.info", err)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get team info", goerr.V(TeamIDKey, teamID))
	}

	// team.info of an enterprise reports the enterprise itself in id
	enterpriseID := info.EnterpriseID
	if strings.HasPrefix(teamID, "E") {
		enterpriseID = info.ID
	}

	now := r.now()
	if existing != nil {
		if enterpriseID == "" || enterpriseID == existing.EnterpriseGridID {
			return existing, nil
		}
		existing.EnterpriseGridID = enterpriseID
		existing.UpdatedAt = now
		updated, err := r.repo.Organization().Update(ctx, existing)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to update enterprise grid id", goerr.V(TeamIDKey, teamID))
		}
		return updated, nil
	}

	foreign := &model.Organization{
		PlatformID:       teamID,
		PlatformType:     types.PlatformTypeSlack,
		EnterpriseGridID: enterpriseID,
		Domain:           info.Domain,
		Name:             info.Name,
		Avatar:           info.Icon,
		PlanType:         types.PlanTypeNone,
		Slug:             model.SlugFromDomain(info.Domain, teamID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	created, err := r.repo.Organization().Create(ctx, foreign)
	if errors.Is(err, interfaces.ErrConflict) {
		// another request provisioned it first
		return r.repo.Organization().GetByPlatformID(ctx, teamID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create foreign organization", goerr.V(TeamIDKey, teamID))
	}

	logging.From(ctx).Info("provisioned foreign organization",
		"team_id", teamID,
		"enterprise_id", enterpriseID,
		"via_organization", current.PlatformID,
	)
	return created, nil
}

// ResolveRoom returns the room for channelID, refreshing it from Slack when
// it is unknown, stale or forceRefresh is set. A channel Slack no longer
// knows is flagged deleted and returned; nil is returned if it was never
// stored.
func (r *Resolver) ResolveRoom(ctx context.Context, channelID string, org *model.Organization, forceRefresh bool) (*model.Room, error) {
	if err := requireSlack(org); err != nil {
		return nil, err
	}

	room, err := r.repo.Room().GetByPlatformRoomID(ctx, org.ID, channelID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get room", goerr.V(ChannelIDKey, channelID))
	}
	return r.refreshRoom(ctx, channelID, room, org, forceRefresh)
}

// ResolveRooms resolves several channels. Lookups are batched; refreshes are
// issued one at a time in input order.
func (r *Resolver) ResolveRooms(ctx context.Context, channelIDs []string, org *model.Organization, forceRefresh bool) ([]*model.Room, error) {
	if err := requireSlack(org); err != nil {
		return nil, err
	}
	if len(channelIDs) == 0 {
		return nil, nil
	}

	existing, err := r.repo.Room().GetByPlatformRoomIDs(ctx, org.ID, channelIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get rooms", goerr.V("count", len(channelIDs)))
	}

	rooms := make([]*model.Room, 0, len(channelIDs))
	seen := make(map[string]struct{}, len(channelIDs))
	for _, channelID := range channelIDs {
		if _, dup := seen[channelID]; dup {
			continue
		}
		seen[channelID] = struct{}{}

		room, err := r.refreshRoom(ctx, channelID, existing[channelID], org, forceRefresh)
		if err != nil {
			return nil, err
		}
		if room != nil {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

func (r *Resolver) refreshRoom(ctx context.Context, channelID string, room *model.Room, org *model.Organization, forceRefresh bool) (*model.Room, error) {
	if room != nil && !forceRefresh && !room.NeedsPlatformUpdate(r.now(), r.staleness) {
		return room, nil
	}
	if err := requireToken(org); err != nil {
		return nil, err
	}

	info, err := r.slack.GetConversationInfo(ctx, org.Bot.APIToken, channelID)
	r.metrics.SlackAPICall("conversations.info", err)
	if err != nil {
		if !slack.IsAPIErrorCode(err, slack.ErrCodeChannelNotFound) {
			return nil, goerr.Wrap(err, "failed to get conversation info",
				goerr.V(ChannelIDKey, channelID),
				goerr.V(OrganizationIDKey, org.ID))
		}

		if room == nil {
			return nil, nil
		}
		if !room.Deleted {
			room.Deleted = true
			updated, err := r.repo.Room().Update(ctx, room)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to mark room deleted", goerr.V(ChannelIDKey, channelID))
			}
			room = updated
		}
		logging.From(ctx).Info("room no longer exists in slack", "channel_id", channelID)
		return room, nil
	}

	return r.UpdateFromConversationInfo(ctx, room, info, org)
}

// ClassifyRoomType derives the room type from conversations.info flags
func ClassifyRoomType(info *slack.ConversationInfo) types.RoomType {
	switch {
	case info.IsMpIM:
		return types.RoomTypeMultiPartyDirectMessage
	case info.IsIM:
		return types.RoomTypeDirectMessage
	case info.IsGroup || (info.IsPrivate && info.IsChannel):
		return types.RoomTypePrivateChannel
	default:
		return types.RoomTypePublicChannel
	}
}

// UpdateFromConversationInfo applies conversations.info to room and stores
// it, creating the room when room is nil
func (r *Resolver) UpdateFromConversationInfo(ctx context.Context, room *model.Room, info *slack.ConversationInfo, org *model.Organization) (*model.Room, error) {
	if err := requireSlack(org); err != nil {
		return nil, err
	}

	now := r.now()
	creating := room == nil
	if creating {
		room = &model.Room{
			OrganizationID: org.ID,
			PlatformRoomID: info.ID,
			CreatedAt:      now,
		}
	}

	room.Name = info.Name
	room.RoomType = ClassifyRoomType(info)
	switch {
	case room.RoomType == types.RoomTypeDirectMessage:
		// the bot only sees DMs it is part of
		isMember := true
		room.BotIsMember = &isMember
	case info.IsMember != nil:
		isMember := *info.IsMember
		room.BotIsMember = &isMember
	}
	room.Archived = info.IsArchived
	room.Shared = info.IsShared
	room.Topic = info.Topic
	room.Purpose = info.Purpose
	room.Deleted = false
	room.LastPlatformUpdate = now

	if !creating {
		updated, err := r.repo.Room().Update(ctx, room)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to update room", goerr.V(ChannelIDKey, room.PlatformRoomID))
		}
		return updated, nil
	}

	created, err := r.repo.Room().Create(ctx, room)
	if errors.Is(err, interfaces.ErrConflict) {
		existing, getErr := r.repo.Room().GetByPlatformRoomID(ctx, org.ID, info.ID)
		if getErr != nil || existing == nil {
			return nil, goerr.Wrap(err, "room conflict without existing room", goerr.V(ChannelIDKey, info.ID))
		}
		room.ID = existing.ID
		room.CreatedAt = existing.CreatedAt
		room.LastMessageActivity = existing.LastMessageActivity
		return r.repo.Room().Update(ctx, room)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create room", goerr.V(ChannelIDKey, info.ID))
	}
	return created, nil
}

// ResolveMember returns the member for userID. A cached member with a known
// real name is returned without calling Slack unless forceRefresh is set.
// users.info failures are logged and the cached member, possibly nil, is
// returned. On success the member belongs to the user's own organization,
// which is provisioned if it is foreign.
func (r *Resolver) ResolveMember(ctx context.Context, userID string, org *model.Organization, forceRefresh bool) (*model.Member, error) {
	if err := requireSlack(org); err != nil {
		return nil, err
	}
	logger := logging.From(ctx)

	user, err := r.repo.User().GetByPlatformUserID(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V(UserIDKey, userID))
	}

	var member *model.Member
	if user != nil {
		member = user.MemberForPlatformID(user.SlackTeamID)
		if member == nil {
			member = user.MemberFor(org.ID)
		}
	}

	if member != nil {
		member, err = r.healAbbotMember(ctx, member, org)
		if err != nil {
			return nil, err
		}
		if !forceRefresh && member.User.RealName != "" {
			return member, nil
		}
	}

	if !org.HasAPIToken() {
		return member, nil
	}

	info, err := r.slack.GetUserInfo(ctx, org.Bot.APIToken, userID)
	r.metrics.SlackAPICall("users.info", err)
	if err != nil {
		logger.Warn("failed to get user info, using local member",
			"user_id", userID,
			"error", err.Error(),
		)
		return member, nil
	}
	if info.TeamID == "" && info.EnterpriseID == "" {
		logger.Warn("users.info returned no team, using local member", "user_id", userID)
		return member, nil
	}

	homeTeamID := info.TeamID
	if homeTeamID == "" {
		homeTeamID = info.EnterpriseID
	}
	userOrg, err := r.ResolveOrganization(ctx, homeTeamID, org)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve user's organization", goerr.V(UserIDKey, userID))
	}

	ensured, err := r.repo.User().EnsureMember(ctx, userOrg, &model.UserProfile{
		PlatformUserID: info.ID,
		TeamID:         info.TeamID,
		EnterpriseID:   info.EnterpriseID,
		Name:           info.Name,
		DisplayName:    info.DisplayName,
		RealName:       info.RealName,
		Email:          info.Email,
		Avatar:         info.Avatar,
		TimeZoneID:     info.TimeZone,
		IsBot:          info.IsBot,
		IsGuest:        info.IsRestricted,
		Deleted:        info.Deleted,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ensure member", goerr.V(UserIDKey, userID))
	}
	return r.healAbbotMember(ctx, ensured, org)
}

// ResolveMembers resolves user ids one at a time, skipping ids that cannot
// be resolved
func (r *Resolver) ResolveMembers(ctx context.Context, userIDs []string, org *model.Organization) ([]*model.Member, error) {
	members := make([]*model.Member, 0, len(userIDs))
	for _, userID := range userIDs {
		member, err := r.ResolveMember(ctx, userID, org, false)
		if err != nil {
			return nil, err
		}
		if member != nil {
			members = append(members, member)
		}
	}
	return members, nil
}

// healAbbotMember marks the org's own bot user as a bot without a sign-in
// identity, and its membership as Abbot
func (r *Resolver) healAbbotMember(ctx context.Context, member *model.Member, org *model.Organization) (*model.Member, error) {
	if org.Bot == nil || org.Bot.BotUserID == "" || member.PlatformUserID() != org.Bot.BotUserID {
		return member, nil
	}

	if user := member.User; !user.IsBot || user.NameIdentifier != "" {
		user.IsBot = true
		user.NameIdentifier = ""
		if _, err := r.repo.User().UpdateUser(ctx, user); err != nil {
			return nil, goerr.Wrap(err, "failed to mark bot user", goerr.V(UserIDKey, user.PlatformUserID))
		}
	}

	if !member.IsAbbot && member.OrganizationID == org.ID {
		member.IsAbbot = true
		updated, err := r.repo.User().UpdateMember(ctx, member)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to mark abbot member", goerr.V(UserIDKey, member.PlatformUserID()))
		}
		updated.User = member.User
		member = updated
	}
	return member, nil
}

func installError(step string, err error) error {
	return goerr.Wrap(errors.Join(ErrInstallFailed, err), "installation step failed", goerr.V("step", step))
}

// ResolveInstallEvent exchanges an OAuth code and assembles the installation
func (r *Resolver) ResolveInstallEvent(ctx context.Context, code, redirectURI string) (*model.InstallEvent, error) {
	grant, err := r.slack.ExchangeOAuthCode(ctx, code, redirectURI)
	r.metrics.SlackAPICall("oauth.v2.access", err)
	if err != nil {
		return nil, installError("oauth.v2.access", err)
	}
	return r.ResolveInstallEventFromOAuthResponse(ctx, grant)
}

// ResolveInstallEventFromOAuthResponse assembles the installation from an
// OAuth grant. Any failed call fails the whole installation.
func (r *Resolver) ResolveInstallEventFromOAuthResponse(ctx context.Context, grant *model.OAuthGrant) (*model.InstallEvent, error) {
	if grant == nil || grant.AccessToken.IsEmpty() {
		return nil, installError("oauth.v2.access", goerr.New("oauth response carries no bot token"))
	}
	token := grant.AccessToken

	auth, err := r.slack.AuthTest(ctx, token)
	r.metrics.SlackAPICall("auth.test", err)
	if err != nil {
		return nil, installError("auth.test", err)
	}

	team, err := r.slack.GetTeamInfoWithScopes(ctx, token)
	r.metrics.SlackAPICall("team.info", err)
	if err != nil {
		return nil, installError("team.info", err)
	}

	bot, err := r.slack.GetBotInfo(ctx, token, auth.BotID)
	r.metrics.SlackAPICall("bots.info", err)
	if err != nil {
		return nil, installError("bots.info", err)
	}

	botUser, err := r.slack.GetUserInfo(ctx, token, bot.UserID)
	r.metrics.SlackAPICall("users.info", err)
	if err != nil {
		return nil, installError("users.info", err)
	}

	platformID := team.ID
	if grant.IsEnterpriseInstall && grant.EnterpriseID != "" {
		platformID = grant.EnterpriseID
	}
	enterpriseID := team.EnterpriseID
	if enterpriseID == "" {
		enterpriseID = grant.EnterpriseID
	}
	scopes := team.Scopes
	if len(scopes) == 0 {
		scopes = model.ParseScopes(grant.Scope)
	}
	appID := grant.AppID
	if appID == "" {
		appID = bot.AppID
	}
	avatar := botUser.Avatar
	if avatar == "" {
		avatar = bot.Icon
	}

	return &model.InstallEvent{
		PlatformID:      platformID,
		EnterpriseID:    enterpriseID,
		Domain:          team.Domain,
		Name:            team.Name,
		Avatar:          team.Icon,
		URL:             auth.URL,
		InstallerUserID: grant.AuthedUserID,
		Bot: model.BotIdentity{
			AppID:     appID,
			BotID:     bot.ID,
			BotUserID: bot.UserID,
			BotName:   botUser.Name,
			BotAvatar: avatar,
			APIToken:  token,
			Scopes:    scopes,
		},
	}, nil
}
