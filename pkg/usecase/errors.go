package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	// ErrNotSlackOrganization is returned when Slack entities are resolved for
	// an organization on another platform
	ErrNotSlackOrganization = goerr.New("organization is not a slack organization")

	// ErrNoAPIToken is returned when a Slack API call is needed but the
	// organization has no bot token
	ErrNoAPIToken = goerr.New("organization has no slack api token")

	// ErrUnexpectedPayload is returned when an install or uninstall translation
	// receives another kind of envelope
	ErrUnexpectedPayload = goerr.New("unexpected payload")

	// ErrInstallFailed wraps every failure of the installation flow
	ErrInstallFailed = goerr.New("slack installation failed")
)

// Context keys for error values
const (
	TeamIDKey         = "team_id"
	ChannelIDKey      = "channel_id"
	UserIDKey         = "user_id"
	OrganizationIDKey = "organization_id"
	EventIDKey        = "event_id"
)
