package model

// InstallEvent describes a completed Slack app installation. It is only ever
// built from a fully successful sequence of API calls.
type InstallEvent struct {
	PlatformID      string
	EnterpriseID    string
	Domain          string
	Name            string
	Avatar          string
	URL             string
	InstallerUserID string
	Bot             BotIdentity
}
