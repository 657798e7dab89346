package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
)

// threadResponder replies in a fixed conversation and thread with one bot token
type threadResponder struct {
	client    interfaces.SlackClient
	token     model.Secret
	channelID string
	threadTS  slack.Timestamp
}

var _ model.Responder = &threadResponder{}

func newResponder(client interfaces.SlackClient, bot *model.BotIdentity, channelID string, threadTS slack.Timestamp) model.Responder {
	if client == nil || bot == nil || channelID == "" {
		return nil
	}
	return &threadResponder{
		client:    client,
		token:     bot.APIToken,
		channelID: channelID,
		threadTS:  threadTS,
	}
}

func (x *threadResponder) Reply(ctx context.Context, text string) error {
	if _, err := x.client.PostMessage(ctx, x.token, x.channelID, text, x.threadTS); err != nil {
		return goerr.Wrap(err, "failed to reply", goerr.V(ChannelIDKey, x.channelID))
	}
	return nil
}
