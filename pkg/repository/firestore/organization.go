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

type organizationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.OrganizationRepository = &organizationRepository{}

func newOrganizationRepository(client *firestore.Client) *organizationRepository {
	return &organizationRepository{
		client: client,
	}
}

// botDoc is the persisted form of model.BotIdentity
type botDoc struct {
	AppID     string   `firestore:"app_id"`
	BotID     string   `firestore:"bot_id"`
	BotUserID string   `firestore:"bot_user_id"`
	BotName   string   `firestore:"bot_name"`
	BotAvatar string   `firestore:"bot_avatar"`
	APIToken  string   `firestore:"api_token"`
	Scopes    []string `firestore:"scopes"`
}

// organizationDoc is the Firestore persistence model
type organizationDoc struct {
	ID               string    `firestore:"id"`
	PlatformID       string    `firestore:"platform_id"`
	PlatformType     string    `firestore:"platform_type"`
	EnterpriseGridID string    `firestore:"enterprise_grid_id"`
	Domain           string    `firestore:"domain"`
	Name             string    `firestore:"name"`
	Avatar           string    `firestore:"avatar"`
	PlanType         string    `firestore:"plan_type"`
	Slug             string    `firestore:"slug"`
	Bot              *botDoc   `firestore:"bot"`
	CreatedAt        time.Time `firestore:"created_at"`
	UpdatedAt        time.Time `firestore:"updated_at"`
}

func (r *organizationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, organizationsCollection))
}

func toBotDoc(bot *model.BotIdentity) *botDoc {
	if bot == nil {
		return nil
	}
	return &botDoc{
		AppID:     bot.AppID,
		BotID:     bot.BotID,
		BotUserID: bot.BotUserID,
		BotName:   bot.BotName,
		BotAvatar: bot.BotAvatar,
		APIToken:  bot.APIToken.Reveal(),
		Scopes:    bot.Scopes,
	}
}

func fromBotDoc(doc *botDoc) *model.BotIdentity {
	if doc == nil {
		return nil
	}
	return &model.BotIdentity{
		AppID:     doc.AppID,
		BotID:     doc.BotID,
		BotUserID: doc.BotUserID,
		BotName:   doc.BotName,
		BotAvatar: doc.BotAvatar,
		APIToken:  model.NewSecret(doc.APIToken),
		Scopes:    doc.Scopes,
	}
}

func (r *organizationRepository) toDoc(org *model.Organization) *organizationDoc {
	return &organizationDoc{
		ID:               string(org.ID),
		PlatformID:       org.PlatformID,
		PlatformType:     org.PlatformType.String(),
		EnterpriseGridID: org.EnterpriseGridID,
		Domain:           org.Domain,
		Name:             org.Name,
		Avatar:           org.Avatar,
		PlanType:         org.PlanType.String(),
		Slug:             org.Slug,
		Bot:              toBotDoc(org.Bot),
		CreatedAt:        org.CreatedAt,
		UpdatedAt:        org.UpdatedAt,
	}
}

func (r *organizationRepository) fromDoc(doc *organizationDoc) *model.Organization {
	return &model.Organization{
		ID:               model.OrganizationID(doc.ID),
		PlatformID:       doc.PlatformID,
		PlatformType:     types.PlatformType(doc.PlatformType),
		EnterpriseGridID: doc.EnterpriseGridID,
		Domain:           doc.Domain,
		Name:             doc.Name,
		Avatar:           doc.Avatar,
		PlanType:         types.PlanType(doc.PlanType),
		Slug:             doc.Slug,
		Bot:              fromBotDoc(doc.Bot),
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
	}
}

func (r *organizationRepository) Get(ctx context.Context, id model.OrganizationID) (*model.Organization, error) {
	iter := r.collection().Where("id", "==", string(id)).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query organization", goerr.V("id", id))
	}

	var doc organizationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode organization", goerr.V("id", id))
	}
	return r.fromDoc(&doc), nil
}

func (r *organizationRepository) GetByPlatformID(ctx context.Context, platformID string) (*model.Organization, error) {
	if platformID == "" {
		return nil, nil
	}

	snap, err := r.collection().Doc(platformID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get organization", goerr.V("platform_id", platformID))
	}

	var doc organizationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode organization", goerr.V("platform_id", platformID))
	}
	return r.fromDoc(&doc), nil
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	created := org.Clone()
	if created.ID == "" {
		created.ID = model.OrganizationID(uuid.NewString())
	}

	if _, err := r.collection().Doc(created.PlatformID).Create(ctx, r.toDoc(created)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(interfaces.ErrConflict, "organization already exists", goerr.V("platform_id", created.PlatformID))
		}
		return nil, goerr.Wrap(err, "failed to create organization", goerr.V("platform_id", created.PlatformID))
	}
	return created, nil
}

func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	docRef := r.collection().Doc(org.PlatformID)
	updated := org.Clone()

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "organization not found", goerr.V("id", org.ID))
			}
			return goerr.Wrap(err, "failed to get organization", goerr.V("id", org.ID))
		}

		var existing organizationDoc
		if err := snap.DataTo(&existing); err != nil {
			return goerr.Wrap(err, "failed to decode organization", goerr.V("id", org.ID))
		}
		// the platform id is the document key and cannot change
		if existing.ID != string(org.ID) {
			return goerr.Wrap(interfaces.ErrNotFound, "organization not found under its platform id",
				goerr.V("id", org.ID),
				goerr.V("platform_id", org.PlatformID))
		}

		updated.CreatedAt = existing.CreatedAt
		return tx.Set(docRef, r.toDoc(updated))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update organization", goerr.V("id", org.ID))
	}
	return updated, nil
}

func (r *organizationRepository) List(ctx context.Context) ([]*model.Organization, error) {
	iter := r.collection().OrderBy("created_at", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	orgs := make([]*model.Organization, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate organizations")
		}

		var doc organizationDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode organization", goerr.V("doc_id", snap.Ref.ID))
		}
		orgs = append(orgs, r.fromDoc(&doc))
	}
	return orgs, nil
}

type integrationRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.IntegrationRepository = &integrationRepository{}

func newIntegrationRepository(client *firestore.Client) *integrationRepository {
	return &integrationRepository{
		client: client,
	}
}

// integrationDoc is the Firestore persistence model
type integrationDoc struct {
	AppID          string    `firestore:"app_id"`
	OrganizationID string    `firestore:"organization_id"`
	Enabled        bool      `firestore:"enabled"`
	Bot            *botDoc   `firestore:"bot"`
	CreatedAt      time.Time `firestore:"created_at"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

func (r *integrationRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, integrationsCollection))
}

func (r *integrationRepository) GetByAppID(ctx context.Context, appID string) (*model.Integration, error) {
	if appID == "" {
		return nil, nil
	}

	snap, err := r.collection().Doc(appID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get integration", goerr.V("app_id", appID))
	}

	var doc integrationDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode integration", goerr.V("app_id", appID))
	}

	integration := &model.Integration{
		AppID:          doc.AppID,
		OrganizationID: model.OrganizationID(doc.OrganizationID),
		Enabled:        doc.Enabled,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	if bot := fromBotDoc(doc.Bot); bot != nil {
		integration.Bot = *bot
	}
	return integration, nil
}

func (r *integrationRepository) Save(ctx context.Context, integration *model.Integration) error {
	if integration.AppID == "" {
		return goerr.New("integration app id is required", goerr.V("organization_id", integration.OrganizationID))
	}

	doc := &integrationDoc{
		AppID:          integration.AppID,
		OrganizationID: string(integration.OrganizationID),
		Enabled:        integration.Enabled,
		Bot:            toBotDoc(&integration.Bot),
		CreatedAt:      integration.CreatedAt,
		UpdatedAt:      integration.UpdatedAt,
	}
	if _, err := r.collection().Doc(integration.AppID).Set(ctx, doc); err != nil {
		return goerr.Wrap(err, "failed to save integration", goerr.V("app_id", integration.AppID))
	}
	return nil
}
