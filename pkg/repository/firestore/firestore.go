package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
)

const (
	organizationsCollection = "organizations"
	integrationsCollection  = "integrations"
	roomsCollection         = "rooms"
	usersCollection         = "users"

	// Firestore batch operation limits
	// Reference: https://cloud.google.com/firestore/docs/query-data/get-data#go
	firestoreGetAllLimit = 30 // Maximum document references per GetAll
)

// Firestore stores entities in documents keyed by their platform identity:
// organizations by team id, rooms by organization and channel id, users by
// Slack user id and integrations by app id. Create relies on the document
// not existing yet, which makes uniqueness a single write.
type Firestore struct {
	client           *firestore.Client
	databaseID       string
	collectionPrefix string
	organization     *organizationRepository
	integration      *integrationRepository
	room             *roomRepository
	user             *userRepository
}

var _ interfaces.Repository = &Firestore{}

type Option func(*Firestore)

func WithCollectionPrefix(prefix string) Option {
	return func(f *Firestore) {
		f.collectionPrefix = prefix
	}
}

// WithDatabaseID selects a named database instead of (default)
func WithDatabaseID(databaseID string) Option {
	return func(f *Firestore) {
		f.databaseID = databaseID
	}
}

func New(ctx context.Context, projectID string, opts ...Option) (*Firestore, error) {
	f := &Firestore{}
	for _, opt := range opts {
		opt(f)
	}

	var (
		client *firestore.Client
		err    error
	)
	if f.databaseID != "" {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, f.databaseID)
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("projectID", projectID),
			goerr.V("databaseID", f.databaseID))
	}

	f.client = client
	f.organization = newOrganizationRepository(client)
	f.integration = newIntegrationRepository(client)
	f.room = newRoomRepository(client)
	f.user = newUserRepository(client)

	f.organization.collectionPrefix = f.collectionPrefix
	f.integration.collectionPrefix = f.collectionPrefix
	f.room.collectionPrefix = f.collectionPrefix
	f.user.collectionPrefix = f.collectionPrefix

	return f, nil
}

func (f *Firestore) Organization() interfaces.OrganizationRepository {
	return f.organization
}

func (f *Firestore) Integration() interfaces.IntegrationRepository {
	return f.integration
}

func (f *Firestore) Room() interfaces.RoomRepository {
	return f.room
}

func (f *Firestore) User() interfaces.UserRepository {
	return f.user
}

func (f *Firestore) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func collectionName(prefix, name string) string {
	if prefix != "" {
		return prefix + "_" + name
	}
	return name
}
