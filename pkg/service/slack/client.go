package slack

import (
	"context"
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	slackmodel "github.com/aseriousbiz/abbot/pkg/domain/model/slack"
)

// DefaultAPIURL is the base URL of the Slack Web API
const DefaultAPIURL = "https://slack.com/api/"

// Client implements interfaces.SlackClient with slack-go. A slack-go client
// is built per call because every call acts with a different bot token.
type Client struct {
	apiURL       string
	httpClient   *http.Client
	clientID     string
	clientSecret model.Secret
}

var _ interfaces.SlackClient = &Client{}

// Option is a functional option for client configuration
type Option func(*Client)

// WithAPIURL overrides the Slack Web API base URL. It must end with a slash.
func WithAPIURL(apiURL string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(apiURL, "/") {
			apiURL += "/"
		}
		c.apiURL = apiURL
	}
}

// WithHTTPClient sets the HTTP client used for all calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithOAuthCredentials sets the app credentials used by ExchangeOAuthCode
func WithOAuthCredentials(clientID string, clientSecret model.Secret) Option {
	return func(c *Client) {
		c.clientID = clientID
		c.clientSecret = clientSecret
	}
}

// New creates a Slack Web API client
func New(opts ...Option) *Client {
	c := &Client{
		apiURL:     DefaultAPIURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) api(token model.Secret) *slack.Client {
	return slack.New(token.Reveal(),
		slack.OptionHTTPClient(c.httpClient),
		slack.OptionAPIURL(c.apiURL),
	)
}

// GetConversationInfo calls conversations.info
func (c *Client) GetConversationInfo(ctx context.Context, token model.Secret, channelID string) (*slackmodel.ConversationInfo, error) {
	ch, err := c.api(token).GetConversationInfoContext(ctx, &slack.GetConversationInfoInput{
		ChannelID: channelID,
	})
	if err != nil {
		return nil, wrapAPIError(err, "conversations.info", goerr.V("channel_id", channelID))
	}

	info := &slackmodel.ConversationInfo{
		ID:         ch.ID,
		Name:       ch.Name,
		IsChannel:  ch.IsChannel,
		IsGroup:    ch.IsGroup,
		IsIM:       ch.IsIM,
		IsMpIM:     ch.IsMpIM,
		IsPrivate:  ch.IsPrivate,
		IsArchived: ch.IsArchived,
		IsShared:   ch.IsShared || ch.IsExtShared || ch.IsOrgShared,
		Topic:      ch.Topic.Value,
		Purpose:    ch.Purpose.Value,
	}
	// conversations.info carries no is_member for IMs
	if !ch.IsIM {
		isMember := ch.IsMember
		info.IsMember = &isMember
	}
	return info, nil
}

// GetBotInfo calls bots.info
func (c *Client) GetBotInfo(ctx context.Context, token model.Secret, botID string) (*slackmodel.BotInfo, error) {
	bot, err := c.api(token).GetBotInfoContext(ctx, slack.GetBotInfoParameters{Bot: botID})
	if err != nil {
		return nil, wrapAPIError(err, "bots.info", goerr.V("bot_id", botID))
	}

	return &slackmodel.BotInfo{
		ID:      bot.ID,
		AppID:   bot.AppID,
		UserID:  bot.UserID,
		Name:    bot.Name,
		Icon:    bot.Icons.Image72,
		Deleted: bot.Deleted,
	}, nil
}

// GetUserInfo calls users.info
func (c *Client) GetUserInfo(ctx context.Context, token model.Secret, userID string) (*slackmodel.UserInfo, error) {
	user, err := c.api(token).GetUserInfoContext(ctx, userID)
	if err != nil {
		return nil, wrapAPIError(err, "users.info", goerr.V("user_id", userID))
	}

	return &slackmodel.UserInfo{
		ID:           user.ID,
		TeamID:       user.TeamID,
		EnterpriseID: user.Enterprise.EnterpriseID,
		Name:         user.Name,
		RealName:     user.RealName,
		DisplayName:  user.Profile.DisplayName,
		Email:        user.Profile.Email,
		Avatar:       user.Profile.Image192,
		TimeZone:     user.TZ,
		IsBot:        user.IsBot,
		IsRestricted: user.IsRestricted || user.IsUltraRestricted,
		Deleted:      user.Deleted,
	}, nil
}

// AuthTest calls auth.test
func (c *Client) AuthTest(ctx context.Context, token model.Secret) (*slackmodel.AuthTestResult, error) {
	resp, err := c.api(token).AuthTestContext(ctx)
	if err != nil {
		return nil, wrapAPIError(err, "auth.test")
	}

	return &slackmodel.AuthTestResult{
		URL:                 resp.URL,
		Team:                resp.Team,
		User:                resp.User,
		TeamID:              resp.TeamID,
		UserID:              resp.UserID,
		EnterpriseID:        resp.EnterpriseID,
		BotID:               resp.BotID,
		IsEnterpriseInstall: resp.TeamID == "" && resp.EnterpriseID != "",
	}, nil
}

// ExchangeOAuthCode calls oauth.v2.access
func (c *Client) ExchangeOAuthCode(ctx context.Context, code, redirectURI string) (*model.OAuthGrant, error) {
	if c.clientID == "" || c.clientSecret.IsEmpty() {
		return nil, goerr.New("slack OAuth credentials are not configured")
	}

	resp, err := slack.GetOAuthV2ResponseContext(ctx, c.httpClient, c.clientID, c.clientSecret.Reveal(), code, redirectURI)
	if err != nil {
		return nil, wrapAPIError(err, "oauth.v2.access")
	}

	return &model.OAuthGrant{
		AccessToken:         model.NewSecret(resp.AccessToken),
		AppID:               resp.AppID,
		BotUserID:           resp.BotUserID,
		Scope:               resp.Scope,
		TeamID:              resp.Team.ID,
		TeamName:            resp.Team.Name,
		EnterpriseID:        resp.Enterprise.ID,
		AuthedUserID:        resp.AuthedUser.ID,
		IsEnterpriseInstall: resp.IsEnterpriseInstall,
	}, nil
}

// PostMessage calls chat.postMessage
func (c *Client) PostMessage(ctx context.Context, token model.Secret, channelID, text string, threadTS slackmodel.Timestamp) (slackmodel.Timestamp, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if !threadTS.IsZero() {
		opts = append(opts, slack.MsgOptionTS(threadTS.String()))
	}

	_, ts, err := c.api(token).PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return slackmodel.Timestamp{}, wrapAPIError(err, "chat.postMessage", goerr.V("channel_id", channelID))
	}

	posted, err := slackmodel.ParseTimestamp(ts)
	if err != nil {
		return slackmodel.Timestamp{}, goerr.Wrap(err, "slack returned an invalid message timestamp")
	}
	return posted, nil
}
