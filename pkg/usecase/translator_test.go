package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
	"github.com/aseriousbiz/abbot/pkg/repository/memory"
	"github.com/aseriousbiz/abbot/pkg/usecase"
)

var (
	testTS       = slack.MustParseTimestamp("1700000000.000001")
	testThreadTS = slack.MustParseTimestamp("1699999000.000009")
)

type translatorFixture struct {
	mock       *mockSlackClient
	repo       *memory.Memory
	org        *model.Organization
	resolver   *usecase.Resolver
	translator *usecase.Translator
}

func newTranslatorFixture(t *testing.T, mock *mockSlackClient) *translatorFixture {
	t.Helper()
	repo := memory.New()
	org := createOrg(t, repo, testTeamID, testBot())
	resolver := usecase.NewResolver(repo, mock)
	return &translatorFixture{
		mock:       mock,
		repo:       repo,
		org:        org,
		resolver:   resolver,
		translator: usecase.NewTranslator(repo, resolver, mock),
	}
}

// callback wraps ev the way Slack delivers it to the installed app
func callback(ev slack.Event) *slack.EventEnvelope {
	return &slack.EventEnvelope{
		TeamID:    testTeamID,
		APIAppID:  testAppID,
		EventID:   "Ev001",
		EventTime: testTS.Time(),
		Authorizations: []slack.Authorization{
			{TeamID: testTeamID, UserID: testBotUserID, IsBot: true},
		},
		Event: ev,
	}
}

func TestTranslateMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("Message with mentions", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.MessageEvent{
			ChannelID: "C001",
			UserID:    "U100",
			Text:      "hey <@U0BOT>, ask <@U200> about *this*",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, msg).NotNil()
		gt.Value(t, msg.EventID).Equal("Ev001")
		gt.Value(t, msg.Organization.ID).Equal(f.org.ID)
		gt.Value(t, msg.Bot.AppID).Equal(testAppID)
		gt.Value(t, msg.From.PlatformUserID()).Equal("U100")
		gt.Value(t, msg.Room.PlatformRoomID).Equal("C001")
		gt.Array(t, msg.Mentions).Length(2).Required()
		gt.Value(t, msg.Mentions[0].PlatformUserID()).Equal(testBotUserID)
		gt.Bool(t, msg.Mentions[0].IsAbbot).True()
		gt.Value(t, msg.Mentions[1].PlatformUserID()).Equal("U200")
		gt.Bool(t, msg.DirectMention).True()
		gt.Value(t, msg.Text).Equal("hey <@U0BOT>, ask <@U200> about *this*")
		gt.Bool(t, len(msg.Spans) > 0).True()
		gt.Bool(t, msg.Timestamp.Equal(testTS)).True()
	})

	t.Run("Plain message is not a direct mention", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.MessageEvent{
			ChannelID: "C001",
			UserID:    "U100",
			Text:      "just chatting",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Bool(t, msg.DirectMention).False()
		gt.Array(t, msg.Mentions).Length(0)
	})

	t.Run("Room activity is recorded for humans", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.MessageEvent{
			ChannelID: "C001",
			UserID:    "U100",
			Text:      "hello",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Bool(t, msg.Room.LastMessageActivity.Equal(testTS.Time())).True()

		stored, err := f.repo.Room().GetByPlatformRoomID(ctx, f.org.ID, "C001")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.LastMessageActivity.Equal(testTS.Time())).True()
	})

	t.Run("Room activity falls back to the resolver clock", func(t *testing.T) {
		now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
		repo := memory.New()
		org := createOrg(t, repo, testTeamID, testBot())
		mock := &mockSlackClient{}
		resolver := usecase.NewResolver(repo, mock, usecase.WithClock(func() time.Time { return now }))
		translator := usecase.NewTranslator(repo, resolver, mock)

		msg, err := translator.TranslateMessage(ctx, callback(&slack.MessageEvent{
			ChannelID: "C001",
			UserID:    "U100",
			Text:      "no timestamp",
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, msg).NotNil()
		gt.Bool(t, msg.Room.LastMessageActivity.Equal(now)).True()

		stored, err := repo.Room().GetByPlatformRoomID(ctx, org.ID, "C001")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.LastMessageActivity.Equal(now)).True()
	})

	t.Run("App mention is a direct mention", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.AppMentionEvent{
			ChannelID: "C001",
			UserID:    "U100",
			Text:      "ping",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Bool(t, msg.DirectMention).True()
	})

	t.Run("Message in a DM is a direct mention", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{
			getConversationInfoFn: func(ctx context.Context, token model.Secret, channelID string) (*slack.ConversationInfo, error) {
				return &slack.ConversationInfo{ID: channelID, IsIM: true}, nil
			},
		})

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.MessageEvent{
			ChannelID:   "D001",
			ChannelType: "im",
			UserID:      "U100",
			Text:        "hi",
			Timestamp:   testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Bool(t, msg.IsDirectMessage()).True()
		gt.Bool(t, msg.DirectMention).True()
	})

	t.Run("Responder replies in the thread", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.MessageEvent{
			ChannelID:       "C001",
			UserID:          "U100",
			Text:            "in thread",
			Timestamp:       testTS,
			ThreadTimestamp: testThreadTS,
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, msg.Responder).NotNil()
		gt.NoError(t, msg.Responder.Reply(ctx, "reply")).Required()

		gt.Array(t, mock.posted).Length(1).Required()
		gt.Value(t, mock.posted[0].channelID).Equal("C001")
		gt.Value(t, mock.posted[0].text).Equal("reply")
		gt.Value(t, mock.posted[0].token).Equal(testToken)
		gt.Bool(t, mock.posted[0].threadTS.Equal(testThreadTS)).True()
	})

	t.Run("Top level message is replied to in a new thread", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.MessageEvent{
			ChannelID: "C001",
			UserID:    "U100",
			Text:      "top",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.NoError(t, msg.Responder.Reply(ctx, "reply")).Required()
		gt.Bool(t, mock.posted[0].threadTS.Equal(testTS)).True()
	})

	t.Run("Bot message without user falls back to the Abbot member", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{
			getUserInfoFn: func(ctx context.Context, token model.Secret, userID string) (*slack.UserInfo, error) {
				return nil, &slack.APIError{Method: "users.info", Code: slack.ErrCodeUserNotFound}
			},
		})

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.MessageEvent{
			Subtype:   slack.MessageSubtypeBotMessage,
			ChannelID: "C001",
			BotID:     "B001",
			Text:      "posted by the bot",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, msg).NotNil()
		gt.Bool(t, msg.From.IsAbbot).True()
		gt.Bool(t, msg.From.IsBot()).True()

		// bot messages do not count as activity
		stored, err := f.repo.Room().GetByPlatformRoomID(ctx, f.org.ID, "C001")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.LastMessageActivity.IsZero()).True()
	})

	t.Run("Integration app uses its own bot", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)
		gt.NoError(t, f.repo.Integration().Save(ctx, &model.Integration{
			AppID:          "A555",
			OrganizationID: f.org.ID,
			Enabled:        true,
			Bot: model.BotIdentity{
				AppID:     "A555",
				BotUserID: "U555",
				APIToken:  model.NewSecret("xoxb-custom"),
			},
		})).Required()

		env := callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "hi", Timestamp: testTS})
		env.APIAppID = "A555"
		msg, err := f.translator.TranslateMessage(ctx, env)
		gt.NoError(t, err).Required()
		gt.Value(t, msg).NotNil()
		gt.Value(t, msg.Bot.AppID).Equal("A555")
		gt.Value(t, msg.Organization.ID).Equal(f.org.ID)

		gt.NoError(t, msg.Responder.Reply(ctx, "custom")).Required()
		gt.Value(t, mock.posted[0].token).Equal("xoxb-custom")
	})

	dropped := []struct {
		name  string
		setup func(t *testing.T, f *translatorFixture) *slack.EventEnvelope
	}{
		{
			name: "unknown organization",
			setup: func(t *testing.T, f *translatorFixture) *slack.EventEnvelope {
				env := callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "hi", Timestamp: testTS})
				env.TeamID = "T404"
				env.Authorizations = []slack.Authorization{{TeamID: "T404", UserID: "U9"}}
				return env
			},
		},
		{
			name: "organization without token",
			setup: func(t *testing.T, f *translatorFixture) *slack.EventEnvelope {
				createOrg(t, f.repo, "T002", nil)
				env := callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "hi", Timestamp: testTS})
				env.TeamID = "T002"
				env.Authorizations = []slack.Authorization{{TeamID: "T002", UserID: "U9"}}
				return env
			},
		},
		{
			name: "another app than the active bot",
			setup: func(t *testing.T, f *translatorFixture) *slack.EventEnvelope {
				env := callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "hi", Timestamp: testTS})
				env.APIAppID = "A999"
				return env
			},
		},
		{
			name: "integration without token",
			setup: func(t *testing.T, f *translatorFixture) *slack.EventEnvelope {
				gt.NoError(t, f.repo.Integration().Save(context.Background(), &model.Integration{
					AppID:          "A556",
					OrganizationID: f.org.ID,
					Enabled:        true,
					Bot:            model.BotIdentity{AppID: "A556"},
				})).Required()
				env := callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "hi", Timestamp: testTS})
				env.APIAppID = "A556"
				return env
			},
		},
		{
			name: "non conversational subtype",
			setup: func(t *testing.T, f *translatorFixture) *slack.EventEnvelope {
				return callback(&slack.MessageEvent{Subtype: "channel_join", ChannelID: "C001", UserID: "U100", Timestamp: testTS})
			},
		},
		{
			name: "edited message",
			setup: func(t *testing.T, f *translatorFixture) *slack.EventEnvelope {
				return callback(&slack.MessageEvent{Subtype: slack.MessageSubtypeChanged, ChannelID: "C001", Timestamp: testTS})
			},
		},
		{
			name: "removed from room notice",
			setup: func(t *testing.T, f *translatorFixture) *slack.EventEnvelope {
				return callback(&slack.MessageEvent{ChannelID: "C001", UserID: "USLACKBOT", Text: "You have been removed from <#C001|general> by <@U100>", Timestamp: testTS})
			},
		},
		{
			name: "non message event",
			setup: func(t *testing.T, f *translatorFixture) *slack.EventEnvelope {
				return callback(&slack.ReactionEvent{Added: true, UserID: "U100", ItemChannelID: "C001"})
			},
		},
	}
	for _, tc := range dropped {
		t.Run("Drops "+tc.name, func(t *testing.T) {
			f := newTranslatorFixture(t, &mockSlackClient{})

			msg, err := f.translator.TranslateMessage(ctx, tc.setup(t, f))
			gt.NoError(t, err).Required()
			gt.Value(t, msg).Nil()
		})
	}

	t.Run("Drops message from an unresolvable user", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{
			getUserInfoFn: func(ctx context.Context, token model.Secret, userID string) (*slack.UserInfo, error) {
				return nil, &slack.APIError{Method: "users.info", Code: slack.ErrCodeUserNotFound}
			},
		})

		msg, err := f.translator.TranslateMessage(ctx, callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U404", Text: "hi", Timestamp: testTS}))
		gt.NoError(t, err).Required()
		gt.Value(t, msg).Nil()
	})

	t.Run("Non callback envelopes are dropped", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		msg, err := f.translator.TranslateMessage(ctx, &slack.InstallEnvelope{Code: "code"})
		gt.NoError(t, err).Required()
		gt.Value(t, msg).Nil()
	})
}

func TestTranslateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Message changed", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.MessageEvent{
			Subtype:   slack.MessageSubtypeChanged,
			ChannelID: "C001",
			Timestamp: slack.MustParseTimestamp("1700000100.000001"),
			Message:   &slack.MessageBody{UserID: "U100", Text: "after", Timestamp: testTS, ThreadTimestamp: testThreadTS},
			Previous:  &slack.MessageBody{UserID: "U100", Text: "before", Timestamp: testTS, ThreadTimestamp: testThreadTS},
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindMessageChanged)
		gt.Value(t, ev.From.PlatformUserID()).Equal("U100")
		gt.Value(t, ev.Room.PlatformRoomID).Equal("C001")

		change, ok := ev.Payload.(model.MessageChange)
		gt.Bool(t, ok).True()
		gt.Value(t, change.Text).Equal("after")
		gt.Value(t, change.PreviousText).Equal("before")
		gt.Bool(t, change.Timestamp.Equal(testTS)).True()
		gt.Bool(t, change.ThreadTimestamp.Equal(testThreadTS)).True()
	})

	t.Run("Message deleted", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.MessageEvent{
			Subtype:          slack.MessageSubtypeDeleted,
			ChannelID:        "C001",
			DeletedTimestamp: testTS,
			Previous:         &slack.MessageBody{UserID: "U100", Text: "gone", Timestamp: testTS},
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindMessageDeleted)
		change := ev.Payload.(model.MessageChange)
		gt.Value(t, change.PreviousText).Equal("gone")
		gt.Bool(t, change.Timestamp.Equal(testTS)).True()
	})

	t.Run("Reaction added", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.ReactionEvent{
			Added:         true,
			UserID:        "U100",
			Reaction:      "thumbsup",
			ItemUserID:    "U200",
			ItemChannelID: "C001",
			ItemTimestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindReactionAdded)
		gt.Value(t, ev.Room.PlatformRoomID).Equal("C001")
		gt.Value(t, ev.Payload).Equal(model.EventPayload(model.Reaction{Name: "thumbsup", ItemTimestamp: testTS, ItemUserID: "U200"}))

		gt.NoError(t, ev.Responder.Reply(ctx, "noted")).Required()
		gt.Bool(t, mock.posted[0].threadTS.Equal(testTS)).True()
	})

	t.Run("Channel lifecycle refreshes the room", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		_, err := f.resolver.ResolveRoom(ctx, "C001", f.org, false)
		gt.NoError(t, err).Required()

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.ChannelLifecycleEvent{
			Kind:      types.EventKindRoomRenamed,
			ChannelID: "C001",
			Name:      "renamed",
			UserID:    "U100",
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindRoomRenamed)
		gt.Value(t, ev.Payload).Equal(model.EventPayload(model.RoomChange{Name: "renamed"}))
		gt.Number(t, mock.callCount("conversations.info")).Equal(2)
	})

	t.Run("Bot joining a room refreshes it", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		_, err := f.resolver.ResolveRoom(ctx, "C001", f.org, false)
		gt.NoError(t, err).Required()

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.MembershipEvent{
			Joined:    true,
			UserID:    testBotUserID,
			ChannelID: "C001",
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindRoomMembershipAdded)
		gt.Bool(t, ev.From.IsAbbot).True()
		change := ev.Payload.(model.MembershipChange)
		gt.Value(t, change.Member.ID).Equal(ev.From.ID)
		gt.Number(t, mock.callCount("conversations.info")).Equal(2)
	})

	t.Run("Human leaving a room uses the cached room", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		_, err := f.resolver.ResolveRoom(ctx, "C001", f.org, false)
		gt.NoError(t, err).Required()

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.MembershipEvent{
			UserID:    "U100",
			ChannelID: "C001",
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindRoomMembershipRemoved)
		gt.Value(t, ev.From.PlatformUserID()).Equal("U100")
		gt.Number(t, mock.callCount("conversations.info")).Equal(1)
	})

	t.Run("User change updates the member", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.UserChangeEvent{
			User: slack.UserObject{
				ID:       "U100",
				TeamID:   testTeamID,
				Name:     "alice",
				RealName: "Alice Renamed",
				TimeZone: "Asia/Tokyo",
			},
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindUserChanged)
		change := ev.Payload.(model.UserChange)
		gt.Value(t, change.Member.User.RealName).Equal("Alice Renamed")
		gt.Value(t, change.Member.TimeZoneID).Equal("Asia/Tokyo")

		user, err := f.repo.User().GetByPlatformUserID(ctx, "U100")
		gt.NoError(t, err).Required()
		gt.Value(t, user.RealName).Equal("Alice Renamed")
	})

	t.Run("User change of a foreign user lands in its organization", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.UserChangeEvent{
			User: slack.UserObject{ID: "U900", TeamID: "T900", Name: "partner"},
		}))
		gt.NoError(t, err).Required()
		change := ev.Payload.(model.UserChange)
		gt.Value(t, change.Member.OrganizationPlatformID).Equal("T900")
	})

	t.Run("Team change", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.TeamChangeEvent{Name: "New Name"}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindTeamChanged)
		gt.Bool(t, ev.From.IsAbbot).True()
		gt.Value(t, ev.Payload).Equal(model.EventPayload(model.TeamChange{Name: "New Name"}))
	})

	t.Run("App home opened", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.AppHomeOpenedEvent{
			UserID:    "U100",
			ChannelID: "D001",
			Tab:       "home",
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindAppHomeOpened)
		gt.Value(t, ev.Room).Nil()
		gt.NoError(t, ev.Responder.Reply(ctx, "welcome")).Required()
		gt.Value(t, mock.posted[0].channelID).Equal("D001")
		gt.Number(t, mock.callCount("conversations.info")).Equal(0)
	})

	t.Run("Tokens revoked", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.TokensRevokedEvent{BotUserIDs: []string{testBotUserID}}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindTokensRevoked)
		gt.Bool(t, ev.From.IsAbbot).True()
		gt.Value(t, ev.Payload.(model.TokensRevoked).BotUserIDs).Equal([]string{testBotUserID})
	})

	t.Run("Removed from room notice", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.MessageEvent{
			ChannelID: "D0SLACKBOT",
			UserID:    "USLACKBOT",
			Text:      "You have been removed from <#C001|general> by <@U100>",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindRoomMembershipRemoved)
		gt.Value(t, ev.From.PlatformUserID()).Equal("U100")
		gt.Value(t, ev.Room.PlatformRoomID).Equal("C001")
		change := ev.Payload.(model.MembershipChange)
		gt.Bool(t, change.Member.IsAbbot).True()
	})

	t.Run("Removed from room notice with bare names", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.MessageEvent{
			ChannelID: "D0SLACKBOT",
			UserID:    "USLACKBOT",
			Text:      "You have been removed from #general by @alice.",
			Timestamp: testTS,
		}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Room).Nil()
		gt.Bool(t, ev.From.IsAbbot).True()
	})

	t.Run("Conversational message is not an event", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "hi", Timestamp: testTS}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev).Nil()
	})

	t.Run("Events from another app are dropped", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		env := callback(&slack.ReactionEvent{Added: true, UserID: "U100", ItemChannelID: "C001", ItemTimestamp: testTS})
		env.APIAppID = "A999"
		ev, err := f.translator.TranslateEvent(ctx, env)
		gt.NoError(t, err).Required()
		gt.Value(t, ev).Nil()
	})

	t.Run("Uninstall from another app is still handled", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		env := callback(&slack.AppUninstalledEvent{})
		env.APIAppID = "A999"
		ev, err := f.translator.TranslateEvent(ctx, env)
		gt.NoError(t, err).Required()
		gt.Value(t, ev).NotNil()
		gt.Value(t, ev.Kind).Equal(types.EventKindAppUninstalled)
	})
}

func TestTranslateInteraction(t *testing.T) {
	ctx := context.Background()

	t.Run("Block action in a thread", func(t *testing.T) {
		mock := &mockSlackClient{}
		f := newTranslatorFixture(t, mock)

		ev, err := f.translator.TranslateEvent(ctx, &slack.InteractionPayload{
			Kind:             types.EventKindBlockActions,
			TeamID:           testTeamID,
			APIAppID:         testAppID,
			User:             slack.InteractionUser{ID: "U100", TeamID: testTeamID},
			ChannelID:        "C001",
			MessageTimestamp: testTS,
			ThreadTimestamp:  testThreadTS,
			TriggerID:        "trigger",
			Actions:          []slack.Action{{ActionID: "approve", Value: "yes"}},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindBlockActions)
		gt.Value(t, ev.From.PlatformUserID()).Equal("U100")
		gt.Value(t, ev.Room.PlatformRoomID).Equal("C001")

		interaction := ev.Payload.(model.Interaction)
		gt.Value(t, interaction.TriggerID).Equal("trigger")
		gt.Array(t, interaction.Actions).Length(1)

		gt.NoError(t, ev.Responder.Reply(ctx, "done")).Required()
		gt.Bool(t, mock.posted[0].threadTS.Equal(testThreadTS)).True()
	})

	t.Run("View submission resolves the installing team", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, &slack.InteractionPayload{
			Kind:     types.EventKindViewSubmission,
			TeamID:   "T900",
			APIAppID: testAppID,
			User:     slack.InteractionUser{ID: "U100"},
			View:     &slack.View{ID: "V1", CallbackID: "cb", AppInstalledTeamID: testTeamID},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Organization.ID).Equal(f.org.ID)
		gt.Value(t, ev.Room).Nil()
		gt.Value(t, ev.Responder).Nil()
	})

	t.Run("Interactions ignore app mismatch", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, &slack.InteractionPayload{
			Kind:     types.EventKindShortcut,
			TeamID:   testTeamID,
			APIAppID: "A999",
			User:     slack.InteractionUser{ID: "U100"},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, ev).NotNil()
	})

	t.Run("Non interaction kind is dropped", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateEvent(ctx, &slack.InteractionPayload{
			Kind:   types.EventKindReactionAdded,
			TeamID: testTeamID,
			User:   slack.InteractionUser{ID: "U100"},
		})
		gt.NoError(t, err).Required()
		gt.Value(t, ev).Nil()
	})
}

func TestTranslateInstallEvent(t *testing.T) {
	ctx := context.Background()

	installMock := func() *mockSlackClient {
		return &mockSlackClient{
			getUserInfoFn: func(ctx context.Context, token model.Secret, userID string) (*slack.UserInfo, error) {
				return &slack.UserInfo{ID: userID, TeamID: "T0INSTALL", Name: "user-" + userID, RealName: "User " + userID}, nil
			},
		}
	}

	t.Run("First install creates the organization", func(t *testing.T) {
		f := newTranslatorFixture(t, installMock())

		ev, err := f.translator.TranslateInstallEvent(ctx, &slack.InstallEnvelope{Code: "code"})
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindAppInstalled)
		gt.Value(t, ev.Organization.PlatformID).Equal("T0INSTALL")
		gt.Value(t, ev.Organization.PlanType).Equal(types.PlanTypeFree)
		gt.Value(t, ev.Bot.APIToken.Reveal()).Equal("xoxb-installed")
		gt.Value(t, ev.From.PlatformUserID()).Equal("U0INSTALLER")

		install := ev.Payload.(model.AppInstall).Install
		gt.Value(t, install.Bot.BotUserID).Equal("U0BOT")

		stored, err := f.repo.Organization().GetByPlatformID(ctx, "T0INSTALL")
		gt.NoError(t, err).Required()
		gt.Value(t, stored.ID).Equal(ev.Organization.ID)
		// storing the bot is left to the handlers
		gt.Bool(t, stored.HasAPIToken()).False()
	})

	t.Run("Reinstall reuses the organization", func(t *testing.T) {
		f := newTranslatorFixture(t, installMock())
		existing := createOrg(t, f.repo, "T0INSTALL", nil)

		ev, err := f.translator.TranslateEvent(ctx, &slack.InstallEnvelope{Code: "code"})
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Organization.ID).Equal(existing.ID)
	})

	t.Run("Failed installation is an error", func(t *testing.T) {
		mock := installMock()
		mock.authTestFn = func(ctx context.Context, token model.Secret) (*slack.AuthTestResult, error) {
			return nil, &slack.APIError{Method: "auth.test", Code: "invalid_auth"}
		}
		f := newTranslatorFixture(t, mock)

		ev, err := f.translator.TranslateInstallEvent(ctx, &slack.InstallEnvelope{Code: "code"})
		gt.Value(t, ev).Nil()
		gt.Bool(t, errors.Is(err, usecase.ErrInstallFailed)).True()
	})

	t.Run("Wrong envelope is rejected", func(t *testing.T) {
		f := newTranslatorFixture(t, installMock())

		_, err := f.translator.TranslateInstallEvent(ctx, callback(&slack.AppUninstalledEvent{}))
		gt.Bool(t, errors.Is(err, usecase.ErrUnexpectedPayload)).True()
	})
}

func TestTranslateUninstallEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Uninstall comes from the bot", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		ev, err := f.translator.TranslateUninstallEvent(ctx, callback(&slack.AppUninstalledEvent{}))
		gt.NoError(t, err).Required()
		gt.Value(t, ev.Kind).Equal(types.EventKindAppUninstalled)
		gt.Value(t, ev.Payload).Equal(model.EventPayload(model.AppUninstall{}))
		gt.Bool(t, ev.From.IsAbbot).True()
	})

	t.Run("Other envelopes are rejected", func(t *testing.T) {
		f := newTranslatorFixture(t, &mockSlackClient{})

		_, err := f.translator.TranslateUninstallEvent(ctx, &slack.InstallEnvelope{Code: "code"})
		gt.Bool(t, errors.Is(err, usecase.ErrUnexpectedPayload)).True()

		_, err = f.translator.TranslateUninstallEvent(ctx, callback(&slack.TeamChangeEvent{Name: "x"}))
		gt.Bool(t, errors.Is(err, usecase.ErrUnexpectedPayload)).True()
	})
}

func TestParseRemovedFromRoom(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		ok       bool
		roomID   string
		roomName string
		userID   string
		userName string
	}{
		{
			name:     "encoded references",
			text:     "You have been removed from <#C001|general> by <@U100>",
			ok:       true,
			roomID:   "C001",
			roomName: "general",
			userID:   "U100",
		},
		{
			name:   "encoded without label",
			text:   "You have been removed from <#C001> by <@U100|alice>",
			ok:     true,
			roomID: "C001",
			userID: "U100", userName: "alice",
		},
		{
			name:     "bare names",
			text:     "You have been removed from #general by @alice.",
			ok:       true,
			roomName: "general",
			userName: "alice",
		},
		{name: "other text", text: "You have been added to #general", ok: false},
		{name: "missing remover", text: "You have been removed from #general", ok: false},
		{name: "broken token", text: "You have been removed from <#C001 by <@U100>", ok: false},
		{name: "empty", text: "", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			roomID, roomName, userID, userName, ok := usecase.ParseRemovedFromRoom(tc.text)
			gt.Value(t, ok).Equal(tc.ok)
			gt.Value(t, roomID).Equal(tc.roomID)
			gt.Value(t, roomName).Equal(tc.roomName)
			gt.Value(t, userID).Equal(tc.userID)
			gt.Value(t, userName).Equal(tc.userName)
		})
	}
}

func TestTranslatorUsesResolverClock(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	mock := &mockSlackClient{}
	repo := memory.New()
	createOrg(t, repo, testTeamID, testBot())
	resolver := usecase.NewResolver(repo, mock, usecase.WithClock(clock.Now))
	translator := usecase.NewTranslator(repo, resolver, mock)

	msg, err := translator.TranslateMessage(ctx, callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "hi", Timestamp: testTS}))
	gt.NoError(t, err).Required()
	gt.Bool(t, msg.Room.LastPlatformUpdate.Equal(clock.now)).True()

	clock.now = clock.now.Add(2 * time.Hour)
	_, err = translator.TranslateMessage(ctx, callback(&slack.MessageEvent{ChannelID: "C001", UserID: "U100", Text: "again", Timestamp: testTS}))
	gt.NoError(t, err).Required()
	gt.Number(t, mock.callCount("conversations.info")).Equal(2)
}
