package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
)

const organizationColumns = `id, platform_id, platform_type, enterprise_grid_id, domain, name, avatar,
	plan_type, slug, has_bot, bot_app_id, bot_id, bot_user_id, bot_name, bot_avatar, bot_api_token,
	bot_scopes, created_at, updated_at`

type organizationRepository struct {
	pool *pgxpool.Pool
}

var _ interfaces.OrganizationRepository = &organizationRepository{}

// botColumns flattens an optional bot identity into its columns
type botColumns struct {
	has      bool
	appID    string
	botID    string
	userID   string
	name     string
	avatar   string
	apiToken string
	scopes   []string
}

func toBotColumns(bot *model.BotIdentity) botColumns {
	if bot == nil {
		return botColumns{scopes: []string{}}
	}
	scopes := bot.Scopes
	if scopes == nil {
		scopes = []string{}
	}
	return botColumns{
		has:      true,
		appID:    bot.AppID,
		botID:    bot.BotID,
		userID:   bot.BotUserID,
		name:     bot.BotName,
		avatar:   bot.BotAvatar,
		apiToken: bot.APIToken.Reveal(),
		scopes:   scopes,
	}
}

func (c botColumns) identity() *model.BotIdentity {
	if !c.has {
		return nil
	}
	return &model.BotIdentity{
		AppID:     c.appID,
		BotID:     c.botID,
		BotUserID: c.userID,
		BotName:   c.name,
		BotAvatar: c.avatar,
		APIToken:  model.NewSecret(c.apiToken),
		Scopes:    c.scopes,
	}
}

func scanOrganization(row pgx.Row) (*model.Organization, error) {
	var (
		org          model.Organization
		platformType string
		planType     string
		bot          botColumns
	)
	err := row.Scan(
		&org.ID, &org.PlatformID, &platformType, &org.EnterpriseGridID, &org.Domain, &org.Name, &org.Avatar,
		&planType, &org.Slug, &bot.has, &bot.appID, &bot.botID, &bot.userID, &bot.name, &bot.avatar, &bot.apiToken,
		&bot.scopes, &org.CreatedAt, &org.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	org.PlatformType = types.PlatformType(platformType)
	org.PlanType = types.PlanType(planType)
	org.Bot = bot.identity()
	return &org, nil
}

func (r *organizationRepository) Get(ctx context.Context, id model.OrganizationID) (*model.Organization, error) {
	org, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, string(id)))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organization", goerr.V("id", id))
	}
	return org, nil
}

func (r *organizationRepository) GetByPlatformID(ctx context.Context, platformID string) (*model.Organization, error) {
	org, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE platform_id = $1`, platformID))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get organization", goerr.V("platform_id", platformID))
	}
	return org, nil
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	created := org.Clone()
	if created.ID == "" {
		created.ID = model.OrganizationID(uuid.NewString())
	}
	bot := toBotColumns(created.Bot)

	_, err := r.pool.Exec(ctx, `INSERT INTO organizations (`+organizationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		string(created.ID), created.PlatformID, created.PlatformType.String(), created.EnterpriseGridID,
		created.Domain, created.Name, created.Avatar, created.PlanType.String(), created.Slug,
		bot.has, bot.appID, bot.botID, bot.userID, bot.name, bot.avatar, bot.apiToken, bot.scopes,
		created.CreatedAt, created.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, goerr.Wrap(interfaces.ErrConflict, "organization already exists", goerr.V("platform_id", created.PlatformID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create organization", goerr.V("platform_id", created.PlatformID))
	}
	return created, nil
}

func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	bot := toBotColumns(org.Bot)

	updated, err := scanOrganization(r.pool.QueryRow(ctx, `UPDATE organizations SET
			platform_id = $2, platform_type = $3, enterprise_grid_id = $4, domain = $5, name = $6,
			avatar = $7, plan_type = $8, slug = $9, has_bot = $10, bot_app_id = $11, bot_id = $12,
			bot_user_id = $13, bot_name = $14, bot_avatar = $15, bot_api_token = $16, bot_scopes = $17,
			updated_at = $18
		WHERE id = $1
		RETURNING `+organizationColumns,
		string(org.ID), org.PlatformID, org.PlatformType.String(), org.EnterpriseGridID, org.Domain,
		org.Name, org.Avatar, org.PlanType.String(), org.Slug,
		bot.has, bot.appID, bot.botID, bot.userID, bot.name, bot.avatar, bot.apiToken, bot.scopes,
		org.UpdatedAt,
	))
	if isNoRows(err) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "organization not found", goerr.V("id", org.ID))
	}
	if isUniqueViolation(err) {
		return nil, goerr.Wrap(interfaces.ErrConflict, "platform id already taken", goerr.V("platform_id", org.PlatformID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update organization", goerr.V("id", org.ID))
	}
	return updated, nil
}

func (r *organizationRepository) List(ctx context.Context) ([]*model.Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY created_at, id`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list organizations")
	}
	defer rows.Close()

	orgs := make([]*model.Organization, 0)
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan organization")
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate organizations")
	}
	return orgs, nil
}

type integrationRepository struct {
	pool *pgxpool.Pool
}

var _ interfaces.IntegrationRepository = &integrationRepository{}

func (r *integrationRepository) GetByAppID(ctx context.Context, appID string) (*model.Integration, error) {
	var (
		integration model.Integration
		bot         = botColumns{has: true}
	)
	err := r.pool.QueryRow(ctx, `SELECT app_id, organization_id, enabled, bot_id, bot_user_id, bot_name,
			bot_avatar, bot_api_token, bot_scopes, created_at, updated_at
		FROM integrations WHERE app_id = $1`, appID).Scan(
		&integration.AppID, &integration.OrganizationID, &integration.Enabled, &bot.botID, &bot.userID,
		&bot.name, &bot.avatar, &bot.apiToken, &bot.scopes, &integration.CreatedAt, &integration.UpdatedAt,
	)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get integration", goerr.V("app_id", appID))
	}

	bot.appID = integration.AppID
	integration.Bot = *bot.identity()
	return &integration, nil
}

func (r *integrationRepository) Save(ctx context.Context, integration *model.Integration) error {
	if integration.AppID == "" {
		return goerr.New("integration app id is required", goerr.V("organization_id", integration.OrganizationID))
	}
	bot := toBotColumns(&integration.Bot)

	_, err := r.pool.Exec(ctx, `INSERT INTO integrations (app_id, organization_id, enabled, bot_id,
			bot_user_id, bot_name, bot_avatar, bot_api_token, bot_scopes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (app_id) DO UPDATE SET
			organization_id = EXCLUDED.organization_id, enabled = EXCLUDED.enabled,
			bot_id = EXCLUDED.bot_id, bot_user_id = EXCLUDED.bot_user_id, bot_name = EXCLUDED.bot_name,
			bot_avatar = EXCLUDED.bot_avatar, bot_api_token = EXCLUDED.bot_api_token,
			bot_scopes = EXCLUDED.bot_scopes, updated_at = EXCLUDED.updated_at`,
		integration.AppID, string(integration.OrganizationID), integration.Enabled, bot.botID, bot.userID,
		bot.name, bot.avatar, bot.apiToken, bot.scopes, integration.CreatedAt, integration.UpdatedAt,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to save integration", goerr.V("app_id", integration.AppID))
	}
	return nil
}
