package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/aseriousbiz/abbot/pkg/cli/config"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
	"github.com/aseriousbiz/abbot/pkg/repository/memory"
	"github.com/aseriousbiz/abbot/pkg/service/worker"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "abbot.toml")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

const fullConfig = `
[resolver]
room_staleness = "30m"

[worker]
refresh_interval = "5m"
batch_size = 20

[[organization]]
platform_id = "T001"
name = "Acme"
domain = "acme"
plan = "TEAM"

  [organization.bot]
  app_id = "A001"
  bot_id = "B001"
  bot_user_id = "U0BOT"
  bot_name = "abbot"
  scopes = ["chat:write", "users:read"]
  token_env = "ABBOT_TEST_T001_TOKEN"

[[organization]]
platform_id = "T002"
name = "Partner"

[[integration]]
organization = "T001"
enabled = true

  [integration.bot]
  app_id = "A900"
  bot_user_id = "U900"
  token_env = "ABBOT_TEST_A900_TOKEN"
`

func TestLoadAppConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{
			name:    "full configuration",
			content: fullConfig,
		},
		{
			name:    "empty file uses defaults",
			content: "",
		},
		{
			name: "invalid duration",
			content: `
[resolver]
room_staleness = "soon"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "negative batch size",
			content: `
[worker]
batch_size = -1
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "organization without platform id",
			content: `
[[organization]]
name = "Nameless"
`,
			wantErr: config.ErrMissingField,
		},
		{
			name: "unknown plan",
			content: `
[[organization]]
platform_id = "T001"
plan = "PLATINUM"
`,
			wantErr: config.ErrInvalidConfig,
		},
		{
			name: "bot without user id",
			content: `
[[organization]]
platform_id = "T001"
  [organization.bot]
  app_id = "A001"
`,
			wantErr: config.ErrMissingField,
		},
		{
			name: "duplicate organization",
			content: `
[[organization]]
platform_id = "T001"

[[organization]]
platform_id = "T001"
`,
			wantErr: config.ErrDuplicateOrganization,
		},
		{
			name: "integration for unknown organization",
			content: `
[[integration]]
organization = "T404"
  [integration.bot]
  app_id = "A900"
  bot_user_id = "U900"
`,
			wantErr: config.ErrUnknownOrganization,
		},
		{
			name: "duplicate integration",
			content: `
[[organization]]
platform_id = "T001"

[[integration]]
organization = "T001"
  [integration.bot]
  app_id = "A900"
  bot_user_id = "U900"

[[integration]]
organization = "T001"
  [integration.bot]
  app_id = "A900"
  bot_user_id = "U901"
`,
			wantErr: config.ErrDuplicateIntegration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.LoadAppConfiguration(writeConfig(t, tt.content))
			if tt.wantErr != nil {
				gt.Bool(t, errors.Is(err, tt.wantErr)).True()
				return
			}
			gt.NoError(t, err).Required()
			gt.Value(t, cfg).NotNil()
		})
	}
}

func TestLoadAppConfiguration_Values(t *testing.T) {
	cfg, err := config.LoadAppConfiguration(writeConfig(t, fullConfig))
	gt.NoError(t, err).Required()

	gt.Value(t, cfg.RoomStaleness()).Equal(30 * time.Minute)
	gt.Value(t, cfg.RefreshInterval()).Equal(5 * time.Minute)
	gt.Number(t, cfg.BatchSize()).Equal(20)
	gt.Array(t, cfg.Organizations).Length(2).Required()
	gt.Value(t, cfg.Organizations[0].Bot.Scopes).Equal([]string{"chat:write", "users:read"})
	gt.Array(t, cfg.Integrations).Length(1)
}

func TestLoadAppConfiguration_Defaults(t *testing.T) {
	cfg, err := config.LoadAppConfiguration("")
	gt.NoError(t, err).Required()

	gt.Value(t, cfg.RoomStaleness()).Equal(model.DefaultRoomStaleness)
	gt.Value(t, cfg.RefreshInterval()).Equal(10 * time.Minute)
	gt.Number(t, cfg.BatchSize()).Equal(worker.DefaultRoomBatchSize)
}

func TestLoadAppConfiguration_MissingFile(t *testing.T) {
	_, err := config.LoadAppConfiguration(filepath.Join(t.TempDir(), "missing.toml"))
	gt.Bool(t, errors.Is(err, config.ErrConfigNotFound)).True()
}

func TestAppConfigSeed(t *testing.T) {
	ctx := context.Background()
	t.Setenv("ABBOT_TEST_T001_TOKEN", "xoxb-seeded")
	t.Setenv("ABBOT_TEST_A900_TOKEN", "xoxb-custom")

	cfg, err := config.LoadAppConfiguration(writeConfig(t, fullConfig))
	gt.NoError(t, err).Required()

	repo := memory.New()
	gt.NoError(t, cfg.Seed(ctx, repo)).Required()

	org, err := repo.Organization().GetByPlatformID(ctx, "T001")
	gt.NoError(t, err).Required()
	gt.Value(t, org).NotNil()
	gt.Value(t, org.Name).Equal("Acme")
	gt.Value(t, org.Slug).Equal("acme")
	gt.Value(t, org.PlanType).Equal(types.PlanTypeTeam)
	gt.Value(t, org.Bot.BotUserID).Equal("U0BOT")
	gt.Value(t, org.Bot.APIToken.Reveal()).Equal("xoxb-seeded")

	partner, err := repo.Organization().GetByPlatformID(ctx, "T002")
	gt.NoError(t, err).Required()
	gt.Value(t, partner.PlanType).Equal(types.PlanTypeFree)
	gt.Bool(t, partner.HasAPIToken()).False()

	integration, err := repo.Integration().GetByAppID(ctx, "A900")
	gt.NoError(t, err).Required()
	gt.Value(t, integration).NotNil()
	gt.Value(t, integration.OrganizationID).Equal(org.ID)
	gt.Bool(t, integration.Enabled).True()
	gt.Value(t, integration.Bot.APIToken.Reveal()).Equal("xoxb-custom")

	t.Run("seeding again updates in place", func(t *testing.T) {
		cfg.Organizations[0].Name = "Acme Corp"
		gt.NoError(t, cfg.Seed(ctx, repo)).Required()

		orgs, err := repo.Organization().List(ctx)
		gt.NoError(t, err).Required()
		gt.Array(t, orgs).Length(2)

		got, err := repo.Organization().Get(ctx, org.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Name).Equal("Acme Corp")
	})
}
