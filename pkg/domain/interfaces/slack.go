package interfaces

import (
	"context"

	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
)

// SlackClient is the narrow set of Slack Web API calls Abbot makes. Every
// call except ExchangeOAuthCode acts with the given bot token. Failures
// reported by Slack are returned as *slack.APIError.
type SlackClient interface {
	// GetConversationInfo calls conversations.info
	GetConversationInfo(ctx context.Context, token model.Secret, channelID string) (*slack.ConversationInfo, error)

	// GetTeamInfo calls team.info for any team or enterprise id
	GetTeamInfo(ctx context.Context, token model.Secret, teamID string) (*slack.TeamInfo, error)

	// GetTeamInfoWithScopes calls team.info for the token's own team and
	// returns the granted OAuth scopes as well
	GetTeamInfoWithScopes(ctx context.Context, token model.Secret) (*slack.TeamInfo, error)

	// GetBotInfo calls bots.info
	GetBotInfo(ctx context.Context, token model.Secret, botID string) (*slack.BotInfo, error)

	// GetUserInfo calls users.info
	GetUserInfo(ctx context.Context, token model.Secret, userID string) (*slack.UserInfo, error)

	// ExchangeOAuthCode calls oauth.v2.access with the app credentials
	ExchangeOAuthCode(ctx context.Context, code, redirectURI string) (*model.OAuthGrant, error)

	// AuthTest calls auth.test
	AuthTest(ctx context.Context, token model.Secret) (*slack.AuthTestResult, error)

	// PostMessage calls chat.postMessage, replying in thread when threadTS is set
	PostMessage(ctx context.Context, token model.Secret, channelID, text string, threadTS slack.Timestamp) (slack.Timestamp, error)
}
