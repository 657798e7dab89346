package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
)

type userRepository struct {
	mu         sync.RWMutex
	users      map[model.UserID]*model.User
	byPlatform map[string]model.UserID
}

func newUserRepository() *userRepository {
	return &userRepository{
		users:      make(map[model.UserID]*model.User),
		byPlatform: make(map[string]model.UserID),
	}
}

func (r *userRepository) GetByPlatformUserID(ctx context.Context, platformUserID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byPlatform[platformUserID]
	if !ok {
		return nil, nil
	}
	return r.users[id].Clone(), nil
}

func (r *userRepository) EnsureMember(ctx context.Context, org *model.Organization, profile *model.UserProfile) (*model.Member, error) {
	if profile.PlatformUserID == "" {
		return nil, goerr.New("platform user id is required", goerr.V("organization_id", org.ID))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.ensureMember(org, profile).clone(), nil
}

// storedMember is a member whose User is the stored user
type storedMember struct {
	*model.Member
}

// clone returns a detached copy of the member and its user
func (m storedMember) clone() *model.Member {
	return m.User.Clone().MemberFor(m.OrganizationID)
}

func (r *userRepository) ensureMember(org *model.Organization, profile *model.UserProfile) storedMember {
	now := time.Now().UTC()

	var user *model.User
	if id, ok := r.byPlatform[profile.PlatformUserID]; ok {
		user = r.users[id]
	} else {
		user = &model.User{
			ID:        model.UserID(uuid.NewString()),
			CreatedAt: now,
		}
		r.users[user.ID] = user
		r.byPlatform[profile.PlatformUserID] = user.ID
	}
	user.ApplyProfile(profile)
	user.UpdatedAt = now

	member := user.MemberFor(org.ID)
	if member == nil {
		member = &model.Member{
			ID:                     model.MemberID(uuid.NewString()),
			OrganizationID:         org.ID,
			OrganizationPlatformID: org.PlatformID,
			UserID:                 user.ID,
			User:                   user,
		}
		user.Members = append(user.Members, member)
	}
	member.ApplyProfile(profile)

	return storedMember{member}
}

func (r *userRepository) UpdateUser(ctx context.Context, user *model.User) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.users[user.ID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("id", user.ID))
	}
	if existing.PlatformUserID != user.PlatformUserID {
		if _, taken := r.byPlatform[user.PlatformUserID]; taken {
			return nil, goerr.Wrap(interfaces.ErrConflict, "platform user id already taken", goerr.V("platform_user_id", user.PlatformUserID))
		}
		delete(r.byPlatform, existing.PlatformUserID)
		if user.PlatformUserID != "" {
			r.byPlatform[user.PlatformUserID] = user.ID
		}
	}

	members := existing.Members
	createdAt := existing.CreatedAt
	*existing = *user
	existing.Members = members
	existing.CreatedAt = createdAt
	existing.UpdatedAt = time.Now().UTC()

	return existing.Clone(), nil
}

func (r *userRepository) UpdateMember(ctx context.Context, member *model.Member) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[member.UserID]
	if !ok {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("id", member.UserID))
	}
	for _, existing := range user.Members {
		if existing.ID != member.ID {
			continue
		}
		existing.DisplayName = member.DisplayName
		existing.TimeZoneID = member.TimeZoneID
		existing.IsGuest = member.IsGuest
		existing.Active = member.Active
		existing.IsAbbot = member.IsAbbot
		return storedMember{existing}.clone(), nil
	}
	return nil, goerr.Wrap(interfaces.ErrNotFound, "member not found", goerr.V("id", member.ID))
}

func (r *userRepository) EnsureAbbotMember(ctx context.Context, org *model.Organization) (*model.Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if profile := model.AbbotProfile(org); profile != nil {
		member := r.ensureMember(org, profile)
		member.IsAbbot = true
		member.Active = true
		return member.clone(), nil
	}

	for _, user := range r.users {
		if m := user.MemberFor(org.ID); m != nil && m.IsAbbot {
			return storedMember{m}.clone(), nil
		}
	}

	// the bot user is unknown until installation; stand in with a user that
	// has no platform id
	now := time.Now().UTC()
	user := &model.User{
		ID:          model.UserID(uuid.NewString()),
		SlackTeamID: org.PlatformID,
		Name:        "abbot",
		DisplayName: "abbot",
		RealName:    "Abbot",
		IsBot:       true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	member := &model.Member{
		ID:                     model.MemberID(uuid.NewString()),
		OrganizationID:         org.ID,
		OrganizationPlatformID: org.PlatformID,
		UserID:                 user.ID,
		DisplayName:            "abbot",
		Active:                 true,
		IsAbbot:                true,
		User:                   user,
	}
	user.Members = []*model.Member{member}
	r.users[user.ID] = user

	return storedMember{member}.clone(), nil
}
