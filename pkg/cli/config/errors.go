package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound        = goerr.New("configuration file not found")
	ErrInvalidConfig         = goerr.New("invalid configuration")
	ErrMissingField          = goerr.New("required field is missing")
	ErrDuplicateOrganization = goerr.New("duplicate organization")
	ErrDuplicateIntegration  = goerr.New("duplicate integration")
	ErrUnknownOrganization   = goerr.New("unknown organization")
)

// Context keys for error values
const (
	ConfigPathKey = "config_path"
	PlatformIDKey = "platform_id"
	AppIDKey      = "app_id"
)
