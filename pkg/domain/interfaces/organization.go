package interfaces

import (
	"context"

	"github.com/aseriousbiz/abbot/pkg/domain/model"
)

// OrganizationRepository defines the interface for Organization data access
type OrganizationRepository interface {
	// Get retrieves an organization by internal ID.
	// Returns nil, nil if not found.
	Get(ctx context.Context, id model.OrganizationID) (*model.Organization, error)

	// GetByPlatformID retrieves an organization by Slack team id or enterprise id.
	// Returns nil, nil if not found.
	GetByPlatformID(ctx context.Context, platformID string) (*model.Organization, error)

	// Create stores a new organization with an auto-generated ID.
	// Returns ErrConflict if the platform id is already taken.
	Create(ctx context.Context, org *model.Organization) (*model.Organization, error)

	// Update replaces an existing organization
	Update(ctx context.Context, org *model.Organization) (*model.Organization, error)

	// List retrieves all organizations ordered by creation time
	List(ctx context.Context) ([]*model.Organization, error)
}

// IntegrationRepository defines the interface for custom Slack app registrations
type IntegrationRepository interface {
	// GetByAppID retrieves an integration by Slack API app id.
	// Returns nil, nil if not found.
	GetByAppID(ctx context.Context, appID string) (*model.Integration, error)

	// Save creates or replaces an integration keyed by its app id
	Save(ctx context.Context, integration *model.Integration) error
}
