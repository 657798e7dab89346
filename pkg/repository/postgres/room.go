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
	"github.com/aseriousbiz/abbot/pkg/domain/types"
)

const roomColumns = `id, organization_id, platform_room_id, name, room_type, bot_is_member, archived,
	deleted, shared, topic, purpose, last_platform_update, last_message_activity, created_at`

type roomRepository struct {
	pool *pgxpool.Pool
}

var _ interfaces.RoomRepository = &roomRepository{}

func scanRoom(row pgx.Row) (*model.Room, error) {
	var (
		room     model.Room
		roomType string
	)
	err := row.Scan(
		&room.ID, &room.OrganizationID, &room.PlatformRoomID, &room.Name, &roomType, &room.BotIsMember,
		&room.Archived, &room.Deleted, &room.Shared, &room.Topic, &room.Purpose,
		&room.LastPlatformUpdate, &room.LastMessageActivity, &room.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	room.RoomType = types.RoomType(roomType)
	return &room, nil
}

func (r *roomRepository) GetByPlatformRoomID(ctx context.Context, orgID model.OrganizationID, platformRoomID string) (*model.Room, error) {
	room, err := scanRoom(r.pool.QueryRow(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE organization_id = $1 AND platform_room_id = $2`,
		string(orgID), platformRoomID))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get room", goerr.V("platform_room_id", platformRoomID))
	}
	return room, nil
}

func (r *roomRepository) GetByPlatformRoomIDs(ctx context.Context, orgID model.OrganizationID, platformRoomIDs []string) (map[string]*model.Room, error) {
	result := make(map[string]*model.Room, len(platformRoomIDs))
	if len(platformRoomIDs) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+roomColumns+` FROM rooms WHERE organization_id = $1 AND platform_room_id = ANY($2)`,
		string(orgID), platformRoomIDs)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get rooms", goerr.V("count", len(platformRoomIDs)))
	}
	defer rows.Close()

	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan room")
		}
		result[room.PlatformRoomID] = room
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate rooms")
	}
	return result, nil
}

func (r *roomRepository) Create(ctx context.Context, room *model.Room) (*model.Room, error) {
	created := room.Clone()
	if created.ID == "" {
		created.ID = model.RoomID(uuid.NewString())
	}

	_, err := r.pool.Exec(ctx, `INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		string(created.ID), string(created.OrganizationID), created.PlatformRoomID, created.Name,
		created.RoomType.String(), created.BotIsMember, created.Archived, created.Deleted, created.Shared,
		created.Topic, created.Purpose, created.LastPlatformUpdate, created.LastMessageActivity, created.CreatedAt,
	)
	if isUniqueViolation(err) {
		return nil, goerr.Wrap(interfaces.ErrConflict, "room already exists",
			goerr.V("organization_id", created.OrganizationID),
			goerr.V("platform_room_id", created.PlatformRoomID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create room", goerr.V("platform_room_id", created.PlatformRoomID))
	}
	return created, nil
}

func (r *roomRepository) Update(ctx context.Context, room *model.Room) (*model.Room, error) {
	updated, err := scanRoom(r.pool.QueryRow(ctx, `UPDATE rooms SET
			name = $2, room_type = $3, bot_is_member = $4, archived = $5, deleted = $6, shared = $7,
			topic = $8, purpose = $9, last_platform_update = $10, last_message_activity = $11
		WHERE id = $1
		RETURNING `+roomColumns,
		string(room.ID), room.Name, room.RoomType.String(), room.BotIsMember, room.Archived, room.Deleted,
		room.Shared, room.Topic, room.Purpose, room.LastPlatformUpdate, room.LastMessageActivity,
	))
	if isNoRows(err) {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "room not found", goerr.V("id", room.ID))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update room", goerr.V("id", room.ID))
	}
	return updated, nil
}

func (r *roomRepository) UpdateLastMessageActivity(ctx context.Context, roomID model.RoomID, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms SET last_message_activity = GREATEST(last_message_activity, $2) WHERE id = $1`,
		string(roomID), at)
	if err != nil {
		return goerr.Wrap(err, "failed to update last message activity", goerr.V("id", roomID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(interfaces.ErrNotFound, "room not found", goerr.V("id", roomID))
	}
	return nil
}

func (r *roomRepository) ListStale(ctx context.Context, orgID model.OrganizationID, before time.Time, limit int) ([]*model.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms
		WHERE organization_id = $1 AND NOT deleted AND last_platform_update < $2
		ORDER BY last_platform_update`
	args := []any{string(orgID), before}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list stale rooms", goerr.V("organization_id", orgID))
	}
	defer rows.Close()

	var rooms []*model.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan room")
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate stale rooms")
	}
	return rooms, nil
}
