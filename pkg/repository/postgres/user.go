package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
)

const userColumns = `id, COALESCE(platform_user_id, ''), slack_team_id, name, display_name, real_name,
	email, avatar, is_bot, name_identifier, created_at, updated_at`

const memberColumns = `id, organization_id, organization_platform_id, user_id, display_name,
	time_zone_id, is_guest, active, is_abbot`

type userRepository struct {
	pool *pgxpool.Pool
}

var _ interfaces.UserRepository = &userRepository{}

// loadUser reads a user and its memberships. where selects exactly one user.
func loadUser(ctx context.Context, q querier, where string, arg any) (*model.User, error) {
	var user model.User
	err := q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&user.ID, &user.PlatformUserID, &user.SlackTeamID, &user.Name, &user.DisplayName, &user.RealName,
		&user.Email, &user.Avatar, &user.IsBot, &user.NameIdentifier, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE user_id = $1 ORDER BY id`, string(user.ID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m model.Member
		if err := rows.Scan(
			&m.ID, &m.OrganizationID, &m.OrganizationPlatformID, &m.UserID, &m.DisplayName,
			&m.TimeZoneID, &m.IsGuest, &m.Active, &m.IsAbbot,
		); err != nil {
			return nil, err
		}
		m.User = &user
		user.Members = append(user.Members, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByPlatformUserID(ctx context.Context, platformUserID string) (*model.User, error) {
	if platformUserID == "" {
		return nil, nil
	}

	user, err := loadUser(ctx, r.pool, `platform_user_id = $1`, platformUserID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("platform_user_id", platformUserID))
	}
	return user, nil
}

// upsertMember writes the user described by profile and its membership in
// org, leaving is_abbot of an existing membership untouched
func upsertMember(ctx context.Context, tx pgx.Tx, org *model.Organization, profile *model.UserProfile) (*model.User, error) {
	now := time.Now().UTC()

	user := &model.User{ID: model.UserID(uuid.NewString())}
	user.ApplyProfile(profile)

	var userID string
	err := tx.QueryRow(ctx, `INSERT INTO users (id, platform_user_id, slack_team_id, name, display_name,
			real_name, email, avatar, is_bot, name_identifier, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT (platform_user_id) DO UPDATE SET
			slack_team_id = COALESCE(NULLIF(EXCLUDED.slack_team_id, ''), users.slack_team_id),
			name = EXCLUDED.name, display_name = EXCLUDED.display_name, real_name = EXCLUDED.real_name,
			email = EXCLUDED.email, avatar = EXCLUDED.avatar, is_bot = EXCLUDED.is_bot,
			name_identifier = EXCLUDED.name_identifier, updated_at = EXCLUDED.updated_at
		RETURNING id`,
		string(user.ID), user.PlatformUserID, user.SlackTeamID, user.Name, user.DisplayName,
		user.RealName, user.Email, user.Avatar, user.IsBot, user.NameIdentifier, now,
	).Scan(&userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert user", goerr.V("platform_user_id", profile.PlatformUserID))
	}

	member := &model.Member{}
	member.ApplyProfile(profile)
	_, err = tx.Exec(ctx, `INSERT INTO members (id, organization_id, organization_platform_id, user_id,
			display_name, time_zone_id, is_guest, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id, user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name, time_zone_id = EXCLUDED.time_zone_id,
			is_guest = EXCLUDED.is_guest, active = EXCLUDED.active`,
		uuid.NewString(), string(org.ID), org.PlatformID, userID,
		member.DisplayName, member.TimeZoneID, member.IsGuest, member.Active,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to upsert member", goerr.V("platform_user_id", profile.PlatformUserID))
	}

	return loadUser(ctx, tx, `id = $1`, userID)
}

func (r *userRepository) EnsureMember(ctx context.Context, org *model.Organization, profile *model.UserProfile) (*model.Member, error) {
	if profile.PlatformUserID == "" {
		return nil, goerr.New("platform user id is required", goerr.V("organization_id", org.ID))
	}

	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		user, err = upsertMember(ctx, tx, org, profile)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ensure member", goerr.V("platform_user_id", profile.PlatformUserID))
	}
	return user.MemberFor(org.ID), nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *model.User) (*model.User, error) {
	var platformUserID any
	if user.PlatformUserID != "" {
		platformUserID = user.PlatformUserID
	}

	tag, err := r.pool.Exec(ctx, `UPDATE users SET
			platform_user_id = $2, slack_team_id = $3, name = $4, display_name = $5, real_name = $6,
			email = $7, avatar = $8, is_bot = $9, name_identifier = $10, updated_at = $11
		WHERE id = $1`,
		string(user.ID), platformUserID, user.SlackTeamID, user.Name, user.DisplayName, user.RealName,
		user.Email, user.Avatar, user.IsBot, user.NameIdentifier, time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return nil, goerr.Wrap(interfaces.ErrConflict, "platform user id already taken", goerr.V("platform_user_id", user.PlatformUserID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update user", goerr.V("id", user.ID))
	}
	if tag.RowsAffected() == 0 {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("id", user.ID))
	}

	updated, err := loadUser(ctx, r.pool, `id = $1`, string(user.ID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to reload user", goerr.V("id", user.ID))
	}
	return updated, nil
}

func (r *userRepository) UpdateMember(ctx context.Context, member *model.Member) (*model.Member, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE members SET
			display_name = $2, time_zone_id = $3, is_guest = $4, active = $5, is_abbot = $6
		WHERE id = $1`,
		string(member.ID), member.DisplayName, member.TimeZoneID, member.IsGuest, member.Active, member.IsAbbot,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update member", goerr.V("id", member.ID))
	}
	if tag.RowsAffected() == 0 {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "member not found", goerr.V("id", member.ID))
	}

	user, err := loadUser(ctx, r.pool, `id = $1`, string(member.UserID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to reload member", goerr.V("id", member.ID))
	}
	return user.MemberFor(member.OrganizationID), nil
}

func (r *userRepository) EnsureAbbotMember(ctx context.Context, org *model.Organization) (*model.Member, error) {
	var user *model.User
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if profile := model.AbbotProfile(org); profile != nil {
			ensured, err := upsertMember(ctx, tx, org, profile)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE members SET is_abbot = TRUE, active = TRUE
				WHERE organization_id = $1 AND user_id = $2`, string(org.ID), string(ensured.ID)); err != nil {
				return goerr.Wrap(err, "failed to mark abbot member")
			}
			user, err = loadUser(ctx, tx, `id = $1`, string(ensured.ID))
			return err
		}

		var userID string
		err := tx.QueryRow(ctx, `SELECT user_id FROM members WHERE organization_id = $1 AND is_abbot
			ORDER BY id LIMIT 1`, string(org.ID)).Scan(&userID)
		if err == nil {
			user, err = loadUser(ctx, tx, `id = $1`, userID)
			return err
		}
		if !isNoRows(err) {
			return goerr.Wrap(err, "failed to find abbot member")
		}

		// the bot user is unknown until installation; stand in with a user
		// that has no platform id
		now := time.Now().UTC()
		userID = uuid.NewString()
		if _, err := tx.Exec(ctx, `INSERT INTO users (id, platform_user_id, slack_team_id, name,
				display_name, real_name, is_bot, created_at, updated_at)
			VALUES ($1, NULL, $2, 'abbot', 'abbot', 'Abbot', TRUE, $3, $3)`,
			userID, org.PlatformID, now); err != nil {
			return goerr.Wrap(err, "failed to create abbot stand-in")
		}
		if _, err := tx.Exec(ctx, `INSERT INTO members (id, organization_id, organization_platform_id,
				user_id, display_name, active, is_abbot)
			VALUES ($1, $2, $3, $4, 'abbot', TRUE, TRUE)`,
			uuid.NewString(), string(org.ID), org.PlatformID, userID); err != nil {
			return goerr.Wrap(err, "failed to create abbot stand-in member")
		}
		user, err = loadUser(ctx, tx, `id = $1`, userID)
		return err
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ensure abbot member", goerr.V("organization_id", org.ID))
	}
	return user.MemberFor(org.ID), nil
}
