package model

// OAuthGrant is the result of exchanging an OAuth code for a bot token
type OAuthGrant struct {
	AccessToken         Secret
	AppID               string
	BotUserID           string
	Scope               string
	TeamID              string
	TeamName            string
	EnterpriseID        string
	AuthedUserID        string
	IsEnterpriseInstall bool
}
