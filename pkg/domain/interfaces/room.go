package interfaces

import (
	"context"
	"time"

	"github.com/aseriousbiz/abbot/pkg/domain/model"
)

// RoomRepository defines the interface for Room data access. Rooms are
// unique per (organization, platform room id).
type RoomRepository interface {
	// GetByPlatformRoomID retrieves a room by its Slack channel id.
	// Returns nil, nil if not found.
	GetByPlatformRoomID(ctx context.Context, orgID model.OrganizationID, platformRoomID string) (*model.Room, error)

	// GetByPlatformRoomIDs retrieves several rooms at once.
	// Missing rooms are not included in the map.
	GetByPlatformRoomIDs(ctx context.Context, orgID model.OrganizationID, platformRoomIDs []string) (map[string]*model.Room, error)

	// Create stores a new room with an auto-generated ID.
	// Returns ErrConflict if the room already exists in the organization.
	Create(ctx context.Context, room *model.Room) (*model.Room, error)

	// Update replaces an existing room
	Update(ctx context.Context, room *model.Room) (*model.Room, error)

	// UpdateLastMessageActivity sets the last message activity of a room
	UpdateLastMessageActivity(ctx context.Context, roomID model.RoomID, at time.Time) error

	// ListStale returns up to limit non-deleted rooms of the organization whose
	// platform data was last refreshed before the given time, oldest first
	ListStale(ctx context.Context, orgID model.OrganizationID, before time.Time, limit int) ([]*model.Room, error)
}
