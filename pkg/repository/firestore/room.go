package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
)

type roomRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.RoomRepository = &roomRepository{}

func newRoomRepository(client *firestore.Client) *roomRepository {
	return &roomRepository{
		client: client,
	}
}

// roomDoc is the Firestore persistence model
type roomDoc struct {
	ID                  string    `firestore:"id"`
	OrganizationID      string    `firestore:"organization_id"`
	PlatformRoomID      string    `firestore:"platform_room_id"`
	Name                string    `firestore:"name"`
	RoomType            string    `firestore:"room_type"`
	BotIsMember         *bool     `firestore:"bot_is_member"`
	Archived            bool      `firestore:"archived"`
	Deleted             bool      `firestore:"deleted"`
	Shared              bool      `firestore:"shared"`
	Topic               string    `firestore:"topic"`
	Purpose             string    `firestore:"purpose"`
	LastPlatformUpdate  time.Time `firestore:"last_platform_update"`
	LastMessageActivity time.Time `firestore:"last_message_activity"`
	CreatedAt           time.Time `firestore:"created_at"`
}

func (r *roomRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, roomsCollection))
}

func roomDocID(orgID model.OrganizationID, platformRoomID string) string {
	return string(orgID) + "_" + platformRoomID
}

func (r *roomRepository) toDoc(room *model.Room) *roomDoc {
	return &roomDoc{
		ID:                  string(room.ID),
		OrganizationID:      string(room.OrganizationID),
		PlatformRoomID:      room.PlatformRoomID,
		Name:                room.Name,
		RoomType:            room.RoomType.String(),
		BotIsMember:         room.BotIsMember,
		Archived:            room.Archived,
		Deleted:             room.Deleted,
		Shared:              room.Shared,
		Topic:               room.Topic,
		Purpose:             room.Purpose,
		LastPlatformUpdate:  room.LastPlatformUpdate,
		LastMessageActivity: room.LastMessageActivity,
		CreatedAt:           room.CreatedAt,
	}
}

func (r *roomRepository) fromDoc(doc *roomDoc) *model.Room {
	return &model.Room{
		ID:                  model.RoomID(doc.ID),
		OrganizationID:      model.OrganizationID(doc.OrganizationID),
		PlatformRoomID:      doc.PlatformRoomID,
		Name:                doc.Name,
		RoomType:            types.RoomType(doc.RoomType),
		BotIsMember:         doc.BotIsMember,
		Archived:            doc.Archived,
		Deleted:             doc.Deleted,
		Shared:              doc.Shared,
		Topic:               doc.Topic,
		Purpose:             doc.Purpose,
		LastPlatformUpdate:  doc.LastPlatformUpdate,
		LastMessageActivity: doc.LastMessageActivity,
		CreatedAt:           doc.CreatedAt,
	}
}

func (r *roomRepository) GetByPlatformRoomID(ctx context.Context, orgID model.OrganizationID, platformRoomID string) (*model.Room, error) {
	snap, err := r.collection().Doc(roomDocID(orgID, platformRoomID)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get room", goerr.V("platform_room_id", platformRoomID))
	}

	var doc roomDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode room", goerr.V("platform_room_id", platformRoomID))
	}
	return r.fromDoc(&doc), nil
}

// GetByPlatformRoomIDs splits the lookup into GetAll batches of
// firestoreGetAllLimit documents
func (r *roomRepository) GetByPlatformRoomIDs(ctx context.Context, orgID model.OrganizationID, platformRoomIDs []string) (map[string]*model.Room, error) {
	result := make(map[string]*model.Room, len(platformRoomIDs))

	for i := 0; i < len(platformRoomIDs); i += firestoreGetAllLimit {
		end := min(i+firestoreGetAllLimit, len(platformRoomIDs))
		batch := platformRoomIDs[i:end]

		refs := make([]*firestore.DocumentRef, len(batch))
		for j, id := range batch {
			refs[j] = r.collection().Doc(roomDocID(orgID, id))
		}

		snaps, err := r.client.GetAll(ctx, refs)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to batch get rooms", goerr.V("count", len(batch)))
		}

		for _, snap := range snaps {
			if !snap.Exists() {
				continue
			}
			var doc roomDoc
			if err := snap.DataTo(&doc); err != nil {
				return nil, goerr.Wrap(err, "failed to decode room", goerr.V("doc_id", snap.Ref.ID))
			}
			result[doc.PlatformRoomID] = r.fromDoc(&doc)
		}
	}

	return result, nil
}

func (r *roomRepository) Create(ctx context.Context, room *model.Room) (*model.Room, error) {
	created := room.Clone()
	if created.ID == "" {
		created.ID = model.RoomID(uuid.NewString())
	}

	docRef := r.collection().Doc(roomDocID(created.OrganizationID, created.PlatformRoomID))
	if _, err := docRef.Create(ctx, r.toDoc(created)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(interfaces.ErrConflict, "room already exists",
				goerr.V("organization_id", created.OrganizationID),
				goerr.V("platform_room_id", created.PlatformRoomID))
		}
		return nil, goerr.Wrap(err, "failed to create room", goerr.V("platform_room_id", created.PlatformRoomID))
	}
	return created, nil
}

func (r *roomRepository) Update(ctx context.Context, room *model.Room) (*model.Room, error) {
	docRef := r.collection().Doc(roomDocID(room.OrganizationID, room.PlatformRoomID))
	updated := room.Clone()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "room not found", goerr.V("id", room.ID))
			}
			return goerr.Wrap(err, "failed to get room", goerr.V("id", room.ID))
		}

		var existing roomDoc
		if err := snap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode room", goerr.V("id", room.ID))
		}
		if existing.ID != string(room.ID) {
			return goerr.Wrap(interfaces.ErrNotFound, "room not found under its channel id", goerr.V("id", room.ID))
		}

		updated.CreatedAt = existing.CreatedAt
		return tx.Set(docRef, r.toDoc(updated))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update room", goerr.V("id", room.ID))
	}
	return updated, nil
}

func (r *roomRepository) UpdateLastMessageActivity(ctx context.Context, roomID model.RoomID, at time.Time) error {
	iter := r.collection().Where("id", "==", string(roomID)).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return goerr.Wrap(interfaces.ErrNotFound, "room not found", goerr.V("id", roomID))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to query room", goerr.V("id", roomID))
	}

	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := tx.Get(snap.Ref)
		if err != nil {
			return goerr.Wrap(err, "failed to get room", goerr.V("id", roomID))
		}
		var doc roomDoc
		if err := current.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode room", goerr.V("id", roomID))
		}
		if !at.After(doc.LastMessageActivity) {
			return nil
		}
		return tx.Update(snap.Ref, []firestore.Update{
			{Path: "last_message_activity", Value: at},
		})
	})
	if err != nil {
		return goerr.Wrap(err, "failed to update last message activity", goerr.V("id", roomID))
	}
	return nil
}

// ListStale needs the composite index on (organization_id, deleted,
// last_platform_update) created by `abbot migrate firestore`
func (r *roomRepository) ListStale(ctx context.Context, orgID model.OrganizationID, before time.Time, limit int) ([]*model.Room, error) {
	query := r.collection().
		Where("organization_id", "==", string(orgID)).
		Where("deleted", "==", false).
		Where("last_platform_update", "<", before).
		OrderBy("last_platform_update", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var rooms []*model.Room
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate stale rooms", goerr.V("organization_id", orgID))
		}

		var doc roomDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode room", goerr.V("doc_id", snap.Ref.ID))
		}
		rooms = append(rooms, r.fromDoc(&doc))
	}
	return rooms, nil
}
