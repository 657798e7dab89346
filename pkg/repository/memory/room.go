package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
)

type roomKey struct {
	orgID          model.OrganizationID
	platformRoomID string
}

type roomRepository struct {
	mu    sync.RWMutex
	rooms map[model.RoomID]*model.Room
	byKey map[roomKey]model.RoomID
}

func newRoomRepository() *roomRepository {
	return &roomRepository{
		rooms: make(map[model.RoomID]*model.Room),
		byKey: make(map[roomKey]model.RoomID),
	}
}

func (r *roomRepository) GetByPlatformRoomID(ctx context.Context, orgID model.OrganizationID, platformRoomID string) (*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[roomKey{orgID, platformRoomID}]
	if !ok {
		return nil, nil
	}
	return r.rooms[id].Clone(), nil
}

func (r *roomRepository) GetByPlatformRoomIDs(ctx context.Context, orgID model.OrganizationID, platformRoomIDs []string) (map[string]*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*model.Room, len(platformRoomIDs))
	for _, platformRoomID := range platformRoomIDs {
		if id, ok := r.byKey[roomKey{orgID, platformRoomID}]; ok {
			result[platformRoomID] = r.rooms[id].Clone()
		}
	}
	return result, nil
}

func (r *roomRepository) Create(ctx context.Context, room *model.Room) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := roomKey{room.OrganizationID, room.PlatformRoomID}
	if _, exists := r.byKey[key]; exists {
		return nil, goerr.Wrap(interfaces.ErrConflict, "room already exists",
			goerr.V("organization_id", room.OrganizationID),
			goerr.V("platform_room_id", room.PlatformRoomID))
	}

	created := room.Clone()
	if created.ID == "" {
		created.ID = model.RoomID(uuid.NewString())
	}
	r.rooms[created.ID] = created
	r.byKey[key] = created.ID

	return created.Clone(), nil
}

func (r *roomRepository) Update(ctx context.Context, room *model.Room) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.rooms[room.ID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "room not found", goerr.V("id", room.ID))
	}

	updated := room.Clone()
	// a room never moves between organizations or channels
	updated.OrganizationID = existing.OrganizationID
	updated.PlatformRoomID = existing.PlatformRoomID
	updated.CreatedAt = existing.CreatedAt
	r.rooms[room.ID] = updated

	return updated.Clone(), nil
}

func (r *roomRepository) UpdateLastMessageActivity(ctx context.Context, roomID model.RoomID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return goerr.Wrap(interfaces.ErrNotFound, "room not found", goerr.V("id", roomID))
	}
	if at.After(room.LastMessageActivity) {
		room.LastMessageActivity = at
	}
	return nil
}

func (r *roomRepository) ListStale(ctx context.Context, orgID model.OrganizationID, before time.Time, limit int) ([]*model.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stale []*model.Room
	for _, room := range r.rooms {
		if room.OrganizationID != orgID || room.Deleted || !room.LastPlatformUpdate.Before(before) {
			continue
		}
		stale = append(stale, room.Clone())
	}

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].LastPlatformUpdate.Before(stale[j].LastPlatformUpdate)
	})
	if limit > 0 && len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}
