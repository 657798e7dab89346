package slack

import (
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	slackmodel "github.com/aseriousbiz/abbot/pkg/domain/model/slack"
)

// wrapAPIError converts slack-go failures into *slackmodel.APIError so
// callers can branch on the Slack error code
func wrapAPIError(err error, method string, options ...goerr.Option) error {
	options = append(options, goerr.V("method", method))

	var resp slack.SlackErrorResponse
	if errors.As(err, &resp) {
		apiErr := &slackmodel.APIError{
			Method:   method,
			Code:     resp.Err,
			Messages: resp.ResponseMetadata.Messages,
		}
		return goerr.Wrap(apiErr, "slack api call failed", options...)
	}

	// older endpoints in slack-go report ok=false as a bare error code
	if isErrorCode(err.Error()) {
		apiErr := &slackmodel.APIError{Method: method, Code: err.Error()}
		return goerr.Wrap(apiErr, "slack api call failed", options...)
	}

	return goerr.Wrap(err, "failed to call slack api", options...)
}

func isErrorCode(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'a' && c <= 'z') && c != '_' && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
