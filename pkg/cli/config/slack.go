package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/aseriousbiz/abbot/pkg/domain/model"
	slacksvc "github.com/aseriousbiz/abbot/pkg/service/slack"
)

type Slack struct {
	clientID      string
	clientSecret  string
	signingSecret string
	apiURL        string
	redirectURI   string
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-client-id",
			Usage:       "Slack OAuth client ID (for app installation)",
			Category:    "Slack",
			Destination: &x.clientID,
			Sources:     cli.EnvVars("ABBOT_SLACK_CLIENT_ID"),
		},
		&cli.StringFlag{
			Name:        "slack-client-secret",
			Usage:       "Slack OAuth client secret",
			Category:    "Slack",
			Destination: &x.clientSecret,
			Sources:     cli.EnvVars("ABBOT_SLACK_CLIENT_SECRET"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack Signing Secret (for webhook verification)",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("ABBOT_SLACK_SIGNING_SECRET"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack Web API base URL",
			Category:    "Slack",
			Value:       slacksvc.DefaultAPIURL,
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("ABBOT_SLACK_API_URL"),
		},
		&cli.StringFlag{
			Name:        "slack-redirect-uri",
			Usage:       "OAuth redirect URI registered for the app (e.g. https://abbot.example.com/oauth/slack/callback)",
			Category:    "Slack",
			Destination: &x.redirectURI,
			Sources:     cli.EnvVars("ABBOT_SLACK_REDIRECT_URI"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("client-id", x.clientID),
		slog.Int("client-secret.len", len(x.clientSecret)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
		slog.String("api-url", x.apiURL),
		slog.String("redirect-uri", x.redirectURI),
	)
}

// Validate checks that the webhook can be verified
func (x *Slack) Validate() error {
	if x.signingSecret == "" {
		return goerr.New("--slack-signing-secret is required")
	}
	if (x.clientID == "") != (x.clientSecret == "") {
		return goerr.New("--slack-client-id and --slack-client-secret must be set together")
	}
	return nil
}

// Configure creates the Slack Web API client
func (x *Slack) Configure() *slacksvc.Client {
	opts := []slacksvc.Option{}
	if x.apiURL != "" {
		opts = append(opts, slacksvc.WithAPIURL(x.apiURL))
	}
	if x.clientID != "" {
		opts = append(opts, slacksvc.WithOAuthCredentials(x.clientID, model.NewSecret(x.clientSecret)))
	}
	return slacksvc.New(opts...)
}

// IsInstallConfigured reports whether OAuth installation is possible
func (x *Slack) IsInstallConfigured() bool {
	return x.clientID != "" && x.clientSecret != ""
}

// SigningSecret returns the Slack signing secret
func (x *Slack) SigningSecret() string {
	return x.signingSecret
}

// RedirectURI returns the OAuth redirect URI
func (x *Slack) RedirectURI() string {
	return x.redirectURI
}
