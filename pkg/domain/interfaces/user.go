package interfaces

import (
	"context"

	"github.com/aseriousbiz/abbot/pkg/domain/model"
)

// UserRepository defines the interface for User and Member data access.
// Users are unique per platform user id; a user has at most one Member per
// organization.
type UserRepository interface {
	// GetByPlatformUserID retrieves a user with all of its memberships.
	// Returns nil, nil if not found.
	GetByPlatformUserID(ctx context.Context, platformUserID string) (*model.User, error)

	// EnsureMember creates or updates the user described by profile and its
	// membership in org, returning the member with User populated
	EnsureMember(ctx context.Context, org *model.Organization, profile *model.UserProfile) (*model.Member, error)

	// UpdateUser replaces user fields. Memberships are not touched.
	UpdateUser(ctx context.Context, user *model.User) (*model.User, error)

	// UpdateMember replaces member fields
	UpdateMember(ctx context.Context, member *model.Member) (*model.Member, error)

	// EnsureAbbotMember returns the synthetic member representing Abbot itself
	// in org, creating it on first use
	EnsureAbbotMember(ctx context.Context, org *model.Organization) (*model.Member, error)
}
