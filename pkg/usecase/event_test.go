package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
	"github.com/aseriousbiz/abbot/pkg/repository/memory"
	"github.com/aseriousbiz/abbot/pkg/usecase"
)

// mockEventHandler records what it receives
type mockEventHandler struct {
	onEventFn func(ctx context.Context, ev *model.PlatformEvent) error
	messages  []*model.Message
	events    []*model.PlatformEvent
}

var _ interfaces.EventHandler = &mockEventHandler{}

func (m *mockEventHandler) OnMessage(ctx context.Context, msg *model.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockEventHandler) OnEvent(ctx context.Context, ev *model.PlatformEvent) error {
	m.events = append(m.events, ev)
	if m.onEventFn != nil {
		return m.onEventFn(ctx, ev)
	}
	return nil
}

func setupEventUseCase(t *testing.T, mock *mockSlackClient, handler *mockEventHandler) (*usecase.UseCases, *memory.Memory, *model.Organization) {
	t.Helper()
	repo := memory.New()
	org := createOrg(t, repo, testTeamID, testBot())
	uc := usecase.New(repo, mock, usecase.WithEventHandler(handler))
	return uc, repo, org
}

func TestHandleEnvelope(t *testing.T) {
	ctx := context.Background()

	t.Run("Message reaches the handler", func(t *testing.T) {
		handler := &mockEventHandler{}
		uc, _, _ := setupEventUseCase(t, &mockSlackClient{}, handler)

		err := uc.Event.HandleEnvelope(ctx, callback(&slack.MessageEvent{
			ChannelID: "C001",
			UserID:    "U100",
			Text:      "hello",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Array(t, handler.messages).Length(1).Required()
		gt.Array(t, handler.events).Length(0)
		gt.Value(t, handler.messages[0].Text).Equal("hello")
	})

	t.Run("App mention reaches the handler as a message", func(t *testing.T) {
		handler := &mockEventHandler{}
		uc, _, _ := setupEventUseCase(t, &mockSlackClient{}, handler)

		err := uc.Event.HandleEnvelope(ctx, callback(&slack.AppMentionEvent{ChannelID: "C001", UserID: "U100", Text: "<@U0BOT> hi", Timestamp: testTS}))
		gt.NoError(t, err).Required()
		gt.Array(t, handler.messages).Length(1).Required()
		gt.Bool(t, handler.messages[0].DirectMention).True()
	})

	t.Run("Platform event reaches the handler", func(t *testing.T) {
		handler := &mockEventHandler{}
		uc, _, _ := setupEventUseCase(t, &mockSlackClient{}, handler)

		err := uc.Event.HandleEnvelope(ctx, callback(&slack.ReactionEvent{
			Added:         true,
			UserID:        "U100",
			Reaction:      "eyes",
			ItemChannelID: "C001",
			ItemTimestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Array(t, handler.events).Length(1).Required()
		gt.Value(t, handler.events[0].Kind).Equal(types.EventKindReactionAdded)
	})

	t.Run("Removed notice is routed as an event", func(t *testing.T) {
		handler := &mockEventHandler{}
		uc, _, _ := setupEventUseCase(t, &mockSlackClient{}, handler)

		err := uc.Event.HandleEnvelope(ctx, callback(&slack.MessageEvent{
			ChannelID: "D0SLACKBOT",
			UserID:    "USLACKBOT",
			Text:      "You have been removed from <#C001|general> by <@U100>",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Array(t, handler.messages).Length(0)
		gt.Array(t, handler.events).Length(1).Required()
		gt.Value(t, handler.events[0].Kind).Equal(types.EventKindRoomMembershipRemoved)
	})

	t.Run("Dropped envelope is not an error", func(t *testing.T) {
		handler := &mockEventHandler{}
		uc, _, _ := setupEventUseCase(t, &mockSlackClient{}, handler)

		env := callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "hi", Timestamp: testTS})
		env.TeamID = "T404"
		env.Authorizations = nil
		gt.NoError(t, uc.Event.HandleEnvelope(ctx, env)).Required()
		gt.Array(t, handler.messages).Length(0)
		gt.Array(t, handler.events).Length(0)
	})

	t.Run("Handler error is returned", func(t *testing.T) {
		handlerErr := errors.New("handler failed")
		handler := &mockEventHandler{
			onEventFn: func(ctx context.Context, ev *model.PlatformEvent) error {
				return handlerErr
			},
		}
		uc, _, _ := setupEventUseCase(t, &mockSlackClient{}, handler)

		err := uc.Event.HandleEnvelope(ctx, callback(&slack.TeamChangeEvent{Domain: "renamed"}))
		gt.Bool(t, errors.Is(err, handlerErr)).True()
	})

	t.Run("Translation error is returned", func(t *testing.T) {
		mock := &mockSlackClient{
			exchangeOAuthCodeFn: func(ctx context.Context, code, redirectURI string) (*model.OAuthGrant, error) {
				return nil, &slack.APIError{Method: "oauth.v2.access", Code: "invalid_code"}
			},
		}
		handler := &mockEventHandler{}
		uc, _, _ := setupEventUseCase(t, mock, handler)

		err := uc.Event.HandleEnvelope(ctx, &slack.InstallEnvelope{Code: "bad"})
		gt.Bool(t, errors.Is(err, usecase.ErrInstallFailed)).True()
		gt.Array(t, handler.events).Length(0)
	})
}

func TestBookkeeper(t *testing.T) {
	ctx := context.Background()

	t.Run("Install stores the bot before handlers run", func(t *testing.T) {
		mock := &mockSlackClient{
			getUserInfoFn: func(ctx context.Context, token model.Secret, userID string) (*slack.UserInfo, error) {
				return &slack.UserInfo{ID: userID, TeamID: "T0INSTALL", Name: userID, RealName: userID}, nil
			},
		}
		var repo interfaces.Repository
		handler := &mockEventHandler{
			onEventFn: func(ctx context.Context, ev *model.PlatformEvent) error {
				org, err := repo.Organization().Get(ctx, ev.Organization.ID)
				gt.NoError(t, err).Required()
				gt.Bool(t, org.HasAPIToken()).True()
				return nil
			},
		}
		uc, mem, _ := setupEventUseCase(t, mock, handler)
		repo = mem

		gt.NoError(t, uc.Event.HandleEnvelope(ctx, &slack.InstallEnvelope{Code: "code"})).Required()
		gt.Array(t, handler.events).Length(1)

		org, err := mem.Organization().GetByPlatformID(ctx, "T0INSTALL")
		gt.NoError(t, err).Required()
		gt.Value(t, org.Bot.AppID).Equal("A0INSTALL")
		gt.Value(t, org.Bot.BotUserID).Equal("U0BOT")
		gt.Value(t, org.Bot.APIToken.Reveal()).Equal("xoxb-installed")
		gt.Value(t, org.Name).Equal("Installing Team")
		gt.Value(t, org.PlanType).Equal(types.PlanTypeFree)

		bot, err := mem.User().GetByPlatformUserID(ctx, "U0BOT")
		gt.NoError(t, err).Required()
		gt.Value(t, bot).NotNil()
		gt.Bool(t, bot.MemberFor(org.ID).IsAbbot).True()
	})

	t.Run("Install upgrades a foreign organization", func(t *testing.T) {
		repo := memory.New()
		foreign, err := repo.Organization().Create(ctx, &model.Organization{
			PlatformID:   "T900",
			PlatformType: types.PlatformTypeSlack,
			PlanType:     types.PlanTypeNone,
		})
		gt.NoError(t, err).Required()

		keeper := usecase.NewBookkeeper(repo)
		gt.NoError(t, keeper.OnEvent(ctx, &model.PlatformEvent{
			Kind:         types.EventKindAppInstalled,
			Organization: foreign,
			Payload: model.AppInstall{Install: &model.InstallEvent{
				PlatformID:   "T900",
				EnterpriseID: "E900",
				Name:         "Partner",
				Bot:          model.BotIdentity{AppID: testAppID, BotUserID: "U900BOT", APIToken: model.NewSecret("xoxb-900")},
			}},
		})).Required()

		got, err := repo.Organization().Get(ctx, foreign.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.PlanType).Equal(types.PlanTypeFree)
		gt.Value(t, got.EnterpriseGridID).Equal("E900")
		gt.Value(t, got.Name).Equal("Partner")
		gt.Bool(t, got.HasAPIToken()).True()
	})

	t.Run("Install without installation details is rejected", func(t *testing.T) {
		repo := memory.New()
		org := createOrg(t, repo, testTeamID, nil)

		err := usecase.NewBookkeeper(repo).OnEvent(ctx, &model.PlatformEvent{
			Kind:         types.EventKindAppInstalled,
			Organization: org,
			Payload:      model.AppInstall{},
		})
		gt.Bool(t, errors.Is(err, usecase.ErrUnexpectedPayload)).True()
	})

	t.Run("Uninstall clears the token", func(t *testing.T) {
		handler := &mockEventHandler{}
		uc, repo, org := setupEventUseCase(t, &mockSlackClient{}, handler)

		gt.NoError(t, uc.Event.HandleEnvelope(ctx, callback(&slack.AppUninstalledEvent{}))).Required()
		gt.Array(t, handler.events).Length(1)

		got, err := repo.Organization().Get(ctx, org.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, got.HasAPIToken()).False()
		gt.Value(t, got.Bot.AppID).Equal(testAppID)

		// a second uninstall finds no organization to act for
		gt.NoError(t, uc.Event.HandleEnvelope(ctx, callback(&slack.AppUninstalledEvent{}))).Required()
		gt.Array(t, handler.events).Length(1)
	})

	t.Run("Team change renames the organization", func(t *testing.T) {
		uc, repo, org := setupEventUseCase(t, &mockSlackClient{}, &mockEventHandler{})

		gt.NoError(t, uc.Event.HandleEnvelope(ctx, callback(&slack.TeamChangeEvent{Name: "Renamed"}))).Required()
		gt.NoError(t, uc.Event.HandleEnvelope(ctx, callback(&slack.TeamChangeEvent{Domain: "renamed"}))).Required()

		got, err := repo.Organization().Get(ctx, org.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("Renamed")
		gt.Value(t, got.Domain).Equal("renamed")
	})

	t.Run("Messages are ignored", func(t *testing.T) {
		gt.NoError(t, usecase.NewBookkeeper(memory.New()).OnMessage(ctx, &model.Message{})).Required()
	})
}
