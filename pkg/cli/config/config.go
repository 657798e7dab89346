package config

import (
	"context"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
	"github.com/aseriousbiz/abbot/pkg/service/worker"
)

// Duration is a time.Duration written as "90s" or "1h" in TOML
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return goerr.Wrap(ErrInvalidConfig, "invalid duration", goerr.V("value", string(text)))
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// AppConfig represents the application configuration
type AppConfig struct {
	Resolver      ResolverConfig      `toml:"resolver"`
	Worker        WorkerConfig        `toml:"worker"`
	Organizations []OrganizationEntry `toml:"organization"`
	Integrations  []IntegrationEntry  `toml:"integration"`
}

// ResolverConfig tunes entity resolution
type ResolverConfig struct {
	RoomStaleness Duration `toml:"room_staleness"`
}

// WorkerConfig tunes the background room refresh
type WorkerConfig struct {
	RefreshInterval Duration `toml:"refresh_interval"`
	BatchSize       int      `toml:"batch_size"`
}

// BotEntry is the bot identity of a seeded organization or integration. The
// token is read from the environment variable named by TokenEnv so it never
// lives in the file.
type BotEntry struct {
	AppID     string   `toml:"app_id"`
	BotID     string   `toml:"bot_id"`
	BotUserID string   `toml:"bot_user_id"`
	BotName   string   `toml:"bot_name"`
	Scopes    []string `toml:"scopes"`
	TokenEnv  string   `toml:"token_env"`
}

// OrganizationEntry seeds an installed organization
type OrganizationEntry struct {
	PlatformID   string    `toml:"platform_id"`
	EnterpriseID string    `toml:"enterprise_id"`
	Name         string    `toml:"name"`
	Domain       string    `toml:"domain"`
	Plan         string    `toml:"plan"`
	Bot          *BotEntry `toml:"bot"`
}

// IntegrationEntry seeds a custom app of an organization
type IntegrationEntry struct {
	Organization string   `toml:"organization"`
	Enabled      bool     `toml:"enabled"`
	Bot          BotEntry `toml:"bot"`
}

// Validate checks the bot entry
func (b *BotEntry) Validate() error {
	if b.AppID == "" {
		return goerr.Wrap(ErrMissingField, "bot app_id is required")
	}
	if b.BotUserID == "" {
		return goerr.Wrap(ErrMissingField, "bot bot_user_id is required", goerr.V(AppIDKey, b.AppID))
	}
	return nil
}

func (b *BotEntry) identity() *model.BotIdentity {
	bot := &model.BotIdentity{
		AppID:     b.AppID,
		BotID:     b.BotID,
		BotUserID: b.BotUserID,
		BotName:   b.BotName,
		Scopes:    b.Scopes,
	}
	if b.TokenEnv != "" {
		bot.APIToken = model.NewSecret(os.Getenv(b.TokenEnv))
	}
	return bot
}

// Validate checks the organization entry
func (o *OrganizationEntry) Validate() error {
	if o.PlatformID == "" {
		return goerr.Wrap(ErrMissingField, "organization platform_id is required")
	}
	if o.Plan != "" {
		if _, err := types.ParsePlanType(o.Plan); err != nil {
			return goerr.Wrap(ErrInvalidConfig, "invalid organization plan",
				goerr.V(PlatformIDKey, o.PlatformID),
				goerr.V("plan", o.Plan))
		}
	}
	if o.Bot != nil {
		if err := o.Bot.Validate(); err != nil {
			return goerr.Wrap(err, "invalid organization bot", goerr.V(PlatformIDKey, o.PlatformID))
		}
	}
	return nil
}

// Validate checks if the AppConfig is valid
func (a *AppConfig) Validate() error {
	if a.Resolver.RoomStaleness < 0 {
		return goerr.Wrap(ErrInvalidConfig, "resolver.room_staleness must not be negative")
	}
	if a.Worker.RefreshInterval < 0 {
		return goerr.Wrap(ErrInvalidConfig, "worker.refresh_interval must not be negative")
	}
	if a.Worker.BatchSize < 0 {
		return goerr.Wrap(ErrInvalidConfig, "worker.batch_size must not be negative")
	}

	orgs := make(map[string]bool)
	for _, org := range a.Organizations {
		if err := org.Validate(); err != nil {
			return goerr.Wrap(err, "invalid organization")
		}
		if orgs[org.PlatformID] {
			return goerr.Wrap(ErrDuplicateOrganization, "duplicate organization", goerr.V(PlatformIDKey, org.PlatformID))
		}
		orgs[org.PlatformID] = true
	}

	apps := make(map[string]bool)
	for _, integration := range a.Integrations {
		if err := integration.Bot.Validate(); err != nil {
			return goerr.Wrap(err, "invalid integration")
		}
		if !orgs[integration.Organization] {
			return goerr.Wrap(ErrUnknownOrganization, "integration refers to an organization that is not configured",
				goerr.V(AppIDKey, integration.Bot.AppID),
				goerr.V(PlatformIDKey, integration.Organization))
		}
		if apps[integration.Bot.AppID] {
			return goerr.Wrap(ErrDuplicateIntegration, "duplicate integration", goerr.V(AppIDKey, integration.Bot.AppID))
		}
		apps[integration.Bot.AppID] = true
	}

	return nil
}

// RoomStaleness returns the configured staleness window or the default
func (a *AppConfig) RoomStaleness() time.Duration {
	if a.Resolver.RoomStaleness == 0 {
		return model.DefaultRoomStaleness
	}
	return time.Duration(a.Resolver.RoomStaleness)
}

// RefreshInterval returns the configured refresh interval or the default
func (a *AppConfig) RefreshInterval() time.Duration {
	if a.Worker.RefreshInterval == 0 {
		return 10 * time.Minute
	}
	return time.Duration(a.Worker.RefreshInterval)
}

// BatchSize returns the configured refresh batch size or the default
func (a *AppConfig) BatchSize() int {
	if a.Worker.BatchSize == 0 {
		return worker.DefaultRoomBatchSize
	}
	return a.Worker.BatchSize
}

// LoadAppConfiguration loads the application configuration from a TOML file.
// An empty path yields the defaults.
func LoadAppConfiguration(path string) (*AppConfig, error) {
	if path == "" {
		return &AppConfig{}, nil
	}

	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrConfigNotFound, "config file does not exist", goerr.V(ConfigPathKey, path))
		}
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V(ConfigPathKey, path))
	}

	var config AppConfig
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, goerr.Wrap(ErrInvalidConfig, "failed to parse TOML config",
			goerr.V(ConfigPathKey, path),
			goerr.V("cause", err.Error()))
	}

	if err := config.Validate(); err != nil {
		return nil, goerr.Wrap(err, "config validation failed", goerr.V(ConfigPathKey, path))
	}

	return &config, nil
}

// Seed stores the configured organizations and integrations. Existing
// organizations are updated in place so restarts are idempotent.
func (a *AppConfig) Seed(ctx context.Context, repo interfaces.Repository) error {
	ids := make(map[string]model.OrganizationID, len(a.Organizations))

	for _, entry := range a.Organizations {
		org, err := repo.Organization().GetByPlatformID(ctx, entry.PlatformID)
		if err != nil {
			return goerr.Wrap(err, "failed to look up organization", goerr.V(PlatformIDKey, entry.PlatformID))
		}

		isNew := org == nil
		if isNew {
			org = &model.Organization{
				PlatformID:   entry.PlatformID,
				PlatformType: types.PlatformTypeSlack,
				PlanType:     types.PlanTypeFree,
			}
		}
		org.EnterpriseGridID = entry.EnterpriseID
		if entry.Name != "" {
			org.Name = entry.Name
		}
		if entry.Domain != "" {
			org.Domain = entry.Domain
			org.Slug = model.SlugFromDomain(entry.Domain, entry.PlatformID)
		}
		if entry.Plan != "" {
			org.PlanType = types.PlanType(entry.Plan)
		}
		if entry.Bot != nil {
			org.Bot = entry.Bot.identity()
		}

		if isNew {
			org, err = repo.Organization().Create(ctx, org)
		} else {
			org, err = repo.Organization().Update(ctx, org)
		}
		if err != nil {
			return goerr.Wrap(err, "failed to store organization", goerr.V(PlatformIDKey, entry.PlatformID))
		}
		ids[entry.PlatformID] = org.ID
	}

	for _, entry := range a.Integrations {
		orgID, ok := ids[entry.Organization]
		if !ok {
			return goerr.Wrap(ErrUnknownOrganization, "integration refers to an unknown organization",
				goerr.V(AppIDKey, entry.Bot.AppID))
		}
		integration := &model.Integration{
			AppID:          entry.Bot.AppID,
			OrganizationID: orgID,
			Enabled:        entry.Enabled,
			Bot:            *entry.Bot.identity(),
		}
		if err := repo.Integration().Save(ctx, integration); err != nil {
			return goerr.Wrap(err, "failed to store integration", goerr.V(AppIDKey, entry.Bot.AppID))
		}
	}

	return nil
}
