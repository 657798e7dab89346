package slack

import (
	"errors"
	"strings"
)

// Slack error codes with special meaning
const (
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeUserNotFound    = "user_not_found"
	ErrCodeTeamNotFound    = "team_not_found"
)

// APIError is a failure reported by the Slack Web API (ok=false)
type APIError struct {
	Method   string
	Code     string
	Messages []string
}

func (e *APIError) Error() string {
	msg := "slack api " + e.Method + " failed: " + e.Code
	if len(e.Messages) > 0 {
		msg += " (" + strings.Join(e.Messages, "; ") + ")"
	}
	return msg
}

// IsAPIErrorCode reports whether err is or wraps an APIError with code
func IsAPIErrorCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// ConversationInfo is the subset of conversations.info Abbot uses
type ConversationInfo struct {
	ID         string
	Name       string
	IsChannel  bool
	IsGroup    bool
	IsIM       bool
	IsMpIM     bool
	IsPrivate  bool
	IsArchived bool
	IsShared   bool
	IsMember   *bool // absent for IMs
	Topic      string
	Purpose    string
}

// TeamInfo is the subset of team.info Abbot uses
type TeamInfo struct {
	ID           string
	Name         string
	Domain       string
	EnterpriseID string
	Icon         string
	Scopes       []string
}

// BotInfo is the subset of bots.info Abbot uses
type BotInfo struct {
	ID      string
	AppID   string
	UserID  string
	Name    string
	Icon    string
	Deleted bool
}

// UserInfo is the subset of users.info Abbot uses
type UserInfo struct {
	ID           string
	TeamID       string
	EnterpriseID string
	Name         string
	RealName     string
	DisplayName  string
	Email        string
	Avatar       string
	TimeZone     string
	IsBot        bool
	IsRestricted bool
	Deleted      bool
}

// AuthTestResult is the response of auth.test
type AuthTestResult struct {
	URL                 string
	Team                string
	User                string
	TeamID              string
	UserID              string
	EnterpriseID        string
	BotID               string
	IsEnterpriseInstall bool
}
