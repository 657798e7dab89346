package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
)

type organizationRepository struct {
	mu         sync.RWMutex
	orgs       map[model.OrganizationID]*model.Organization
	byPlatform map[string]model.OrganizationID
}

func newOrganizationRepository() *organizationRepository {
	return &organizationRepository{
		orgs:       make(map[model.OrganizationID]*model.Organization),
		byPlatform: make(map[string]model.OrganizationID),
	}
}

func (r *organizationRepository) Get(ctx context.Context, id model.OrganizationID) (*model.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	org, ok := r.orgs[id]
	if !ok {
		return nil, nil
	}
	return org.Clone(), nil
}

func (r *organizationRepository) GetByPlatformID(ctx context.Context, platformID string) (*model.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPlatform[platformID]
	if !ok {
		return nil, nil
	}
	return r.orgs[id].Clone(), nil
}

func (r *organizationRepository) Create(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPlatform[org.PlatformID]; exists {
		return nil, goerr.Wrap(interfaces.ErrConflict, "organization already exists", goerr.V("platform_id", org.PlatformID))
	}

	created := org.Clone()
	if created.ID == "" {
		created.ID = model.OrganizationID(uuid.NewString())
	}
	r.orgs[created.ID] = created
	r.byPlatform[created.PlatformID] = created.ID

	return created.Clone(), nil
}

func (r *organizationRepository) Update(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.orgs[org.ID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "organization not found", goerr.V("id", org.ID))
	}
	if existing.PlatformID != org.PlatformID {
		if _, taken := r.byPlatform[org.PlatformID]; taken {
			return nil, goerr.Wrap(interfaces.ErrConflict, "platform id already taken", goerr.V("platform_id", org.PlatformID))
		}
		delete(r.byPlatform, existing.PlatformID)
		r.byPlatform[org.PlatformID] = org.ID
	}

	updated := org.Clone()
	updated.CreatedAt = existing.CreatedAt
	r.orgs[org.ID] = updated
	return updated.Clone(), nil
}

func (r *organizationRepository) List(ctx context.Context) ([]*model.Organization, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orgs := make([]*model.Organization, 0, len(r.orgs))
	for _, org := range r.orgs {
		orgs = append(orgs, org.Clone())
	}
	sort.Slice(orgs, func(i, j int) bool {
		if orgs[i].CreatedAt.Equal(orgs[j].CreatedAt) {
			return orgs[i].ID < orgs[j].ID
		}
		return orgs[i].CreatedAt.Before(orgs[j].CreatedAt)
	})
	return orgs, nil
}

type integrationRepository struct {
	mu           sync.RWMutex
	integrations map[string]*model.Integration
}

func newIntegrationRepository() *integrationRepository {
	return &integrationRepository{
		integrations: make(map[string]*model.Integration),
	}
}

func (r *integrationRepository) GetByAppID(ctx context.Context, appID string) (*model.Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	integration, ok := r.integrations[appID]
	if !ok {
		return nil, nil
	}
	return integration.Clone(), nil
}

func (r *integrationRepository) Save(ctx context.Context, integration *model.Integration) error {
	if integration.AppID == "" {
		return goerr.New("integration app id is required", goerr.V("organization_id", integration.OrganizationID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.integrations[integration.AppID] = integration.Clone()
	return nil
}
