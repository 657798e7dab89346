package usecase_test

import (
	"context"
	"sync"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
)

// mockSlackClient is a mock implementation of interfaces.SlackClient. Unset
// funcs answer with plausible defaults. Every call is recorded by method name.
type mockSlackClient struct {
	getConversationInfoFn   func(ctx context.Context, token model.Secret, channelID string) (*slack.ConversationInfo, error)
	getTeamInfoFn           func(ctx context.Context, token model.Secret, teamID string) (*slack.TeamInfo, error)
	getTeamInfoWithScopesFn func(ctx context.Context, token model.Secret) (*slack.TeamInfo, error)
	getBotInfoFn            func(ctx context.Context, token model.Secret, botID string) (*slack.BotInfo, error)
	getUserInfoFn           func(ctx context.Context, token model.Secret, userID string) (*slack.UserInfo, error)
	exchangeOAuthCodeFn     func(ctx context.Context, code, redirectURI string) (*model.OAuthGrant, error)
	authTestFn              func(ctx context.Context, token model.Secret) (*slack.AuthTestResult, error)

	mu          sync.Mutex
	calls       []string
	inFlight    int
	maxInFlight int
	posted      []postedMessage
}

type postedMessage struct {
	token     string
	channelID string
	text      string
	threadTS  slack.Timestamp
}

var _ interfaces.SlackClient = &mockSlackClient{}

func (m *mockSlackClient) enter(method string) func() {
	m.mu.Lock()
	m.calls = append(m.calls, method)
	m.inFlight++
	if m.inFlight > m.maxInFlight {
		m.maxInFlight = m.inFlight
	}
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}
}

func (m *mockSlackClient) callCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (m *mockSlackClient) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockSlackClient) GetConversationInfo(ctx context.Context, token model.Secret, channelID string) (*slack.ConversationInfo, error) {
	defer m.enter("conversations.info")()
	if m.getConversationInfoFn != nil {
		return m.getConversationInfoFn(ctx, token, channelID)
	}
	isMember := true
	return &slack.ConversationInfo{
		ID:        channelID,
		Name:      "channel-" + channelID,
		IsChannel: true,
		IsMember:  &isMember,
	}, nil
}

func (m *mockSlackClient) GetTeamInfo(ctx context.Context, token model.Secret, teamID string) (*slack.TeamInfo, error) {
	defer m.enter("team.info")()
	if m.getTeamInfoFn != nil {
		return m.getTeamInfoFn(ctx, token, teamID)
	}
	return &slack.TeamInfo{
		ID:     teamID,
		Name:   "Team " + teamID,
		Domain: "team-" + teamID,
	}, nil
}

func (m *mockSlackClient) GetTeamInfoWithScopes(ctx context.Context, token model.Secret) (*slack.TeamInfo, error) {
	defer m.enter("team.info")()
	if m.getTeamInfoWithScopesFn != nil {
		return m.getTeamInfoWithScopesFn(ctx, token)
	}
	return &slack.TeamInfo{
		ID:     "T0INSTALL",
		Name:   "Installing Team",
		Domain: "installing",
		Icon:   "https://example.com/team.png",
		Scopes: []string{"chat:write", "users:read"},
	}, nil
}

func (m *mockSlackClient) GetBotInfo(ctx context.Context, token model.Secret, botID string) (*slack.BotInfo, error) {
	defer m.enter("bots.info")()
	if m.getBotInfoFn != nil {
		return m.getBotInfoFn(ctx, token, botID)
	}
	return &slack.BotInfo{
		ID:     botID,
		AppID:  "A0INSTALL",
		UserID: "U0BOT",
		Name:   "abbot",
		Icon:   "https://example.com/bot.png",
	}, nil
}

func (m *mockSlackClient) GetUserInfo(ctx context.Context, token model.Secret, userID string) (*slack.UserInfo, error) {
	defer m.enter("users.info")()
	if m.getUserInfoFn != nil {
		return m.getUserInfoFn(ctx, token, userID)
	}
	return &slack.UserInfo{
		ID:          userID,
		TeamID:      "T001",
		Name:        "user-" + userID,
		RealName:    "User " + userID,
		DisplayName: "user-" + userID,
		TimeZone:    "UTC",
	}, nil
}

func (m *mockSlackClient) ExchangeOAuthCode(ctx context.Context, code, redirectURI string) (*model.OAuthGrant, error) {
	defer m.enter("oauth.v2.access")()
	if m.exchangeOAuthCodeFn != nil {
		return m.exchangeOAuthCodeFn(ctx, code, redirectURI)
	}
	return &model.OAuthGrant{
		AccessToken:  model.NewSecret("xoxb-installed"),
		AppID:        "A0INSTALL",
		BotUserID:    "U0BOT",
		Scope:        "chat:write,users:read",
		TeamID:       "T0INSTALL",
		TeamName:     "Installing Team",
		AuthedUserID: "U0INSTALLER",
	}, nil
}

func (m *mockSlackClient) AuthTest(ctx context.Context, token model.Secret) (*slack.AuthTestResult, error) {
	defer m.enter("auth.test")()
	if m.authTestFn != nil {
		return m.authTestFn(ctx, token)
	}
	return &slack.AuthTestResult{
		URL:    "https://installing.slack.com/",
		TeamID: "T0INSTALL",
		UserID: "U0BOT",
		BotID:  "B0BOT",
	}, nil
}

func (m *mockSlackClient) PostMessage(ctx context.Context, token model.Secret, channelID, text string, threadTS slack.Timestamp) (slack.Timestamp, error) {
	defer m.enter("chat.postMessage")()
	m.mu.Lock()
	m.posted = append(m.posted, postedMessage{
		token:     token.Reveal(),
		channelID: channelID,
		text:      text,
		threadTS:  threadTS,
	})
	m.mu.Unlock()
	return slack.MustParseTimestamp("1700000000.000100"), nil
}
