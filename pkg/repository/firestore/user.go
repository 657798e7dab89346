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
)

// abbotDocPrefix keys the stand-in Abbot user of organizations whose bot
// user is not known yet. Slack user ids never contain '-'.
const abbotDocPrefix = "abbot-"

type userRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

var _ interfaces.UserRepository = &userRepository{}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{
		client: client,
	}
}

// memberDoc is embedded in userDoc; a user has few memberships
type memberDoc struct {
	ID                     string `firestore:"id"`
	OrganizationID         string `firestore:"organization_id"`
	OrganizationPlatformID string `firestore:"organization_platform_id"`
	DisplayName            string `firestore:"display_name"`
	TimeZoneID             string `firestore:"time_zone_id"`
	IsGuest                bool   `firestore:"is_guest"`
	Active                 bool   `firestore:"active"`
	IsAbbot                bool   `firestore:"is_abbot"`
}

// userDoc is the Firestore persistence model
type userDoc struct {
	ID             string      `firestore:"id"`
	PlatformUserID string      `firestore:"platform_user_id"`
	SlackTeamID    string      `firestore:"slack_team_id"`
	Name           string      `firestore:"name"`
	DisplayName    string      `firestore:"display_name"`
	RealName       string      `firestore:"real_name"`
	Email          string      `firestore:"email"`
	Avatar         string      `firestore:"avatar"`
	IsBot          bool        `firestore:"is_bot"`
	NameIdentifier string      `firestore:"name_identifier"`
	Members        []memberDoc `firestore:"members"`
	CreatedAt      time.Time   `firestore:"created_at"`
	UpdatedAt      time.Time   `firestore:"updated_at"`
}

func (r *userRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(collectionName(r.collectionPrefix, usersCollection))
}

func (r *userRepository) toDoc(user *model.User) *userDoc {
	doc := &userDoc{
		ID:             string(user.ID),
		PlatformUserID: user.PlatformUserID,
		SlackTeamID:    user.SlackTeamID,
		Name:           user.Name,
		DisplayName:    user.DisplayName,
		RealName:       user.RealName,
		Email:          user.Email,
		Avatar:         user.Avatar,
		IsBot:          user.IsBot,
		NameIdentifier: user.NameIdentifier,
		Members:        make([]memberDoc, 0, len(user.Members)),
		CreatedAt:      user.CreatedAt,
		UpdatedAt:      user.UpdatedAt,
	}
	for _, m := range user.Members {
		doc.Members = append(doc.Members, memberDoc{
			ID:                     string(m.ID),
			OrganizationID:         string(m.OrganizationID),
			OrganizationPlatformID: m.OrganizationPlatformID,
			DisplayName:            m.DisplayName,
			TimeZoneID:             m.TimeZoneID,
			IsGuest:                m.IsGuest,
			Active:                 m.Active,
			IsAbbot:                m.IsAbbot,
		})
	}
	return doc
}

func (r *userRepository) fromDoc(doc *userDoc) *model.User {
	user := &model.User{
		ID:             model.UserID(doc.ID),
		PlatformUserID: doc.PlatformUserID,
		SlackTeamID:    doc.SlackTeamID,
		Name:           doc.Name,
		DisplayName:    doc.DisplayName,
		RealName:       doc.RealName,
		Email:          doc.Email,
		Avatar:         doc.Avatar,
		IsBot:          doc.IsBot,
		NameIdentifier: doc.NameIdentifier,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
	for _, m := range doc.Members {
		user.Members = append(user.Members, &model.Member{
			ID:                     model.MemberID(m.ID),
			OrganizationID:         model.OrganizationID(m.OrganizationID),
			OrganizationPlatformID: m.OrganizationPlatformID,
			UserID:                 user.ID,
			DisplayName:            m.DisplayName,
			TimeZoneID:             m.TimeZoneID,
			IsGuest:                m.IsGuest,
			Active:                 m.Active,
			IsAbbot:                m.IsAbbot,
			User:                   user,
		})
	}
	return user
}

func (r *userRepository) GetByPlatformUserID(ctx context.Context, platformUserID string) (*model.User, error) {
	if platformUserID == "" {
		return nil, nil
	}

	snap, err := r.collection().Doc(platformUserID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("platform_user_id", platformUserID))
	}

	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("platform_user_id", platformUserID))
	}
	return r.fromDoc(&doc), nil
}

// modify reads the user document docID inside a transaction, hands it to fn
// and writes it back. fn receives nil when the document does not exist.
func (r *userRepository) modify(ctx context.Context, docID string, fn func(user *model.User) (*model.User, error)) (*model.User, error) {
	docRef := r.collection().Doc(docID)

	var result *model.User
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var current *model.User
		snap, err := tx.Get(docRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return goerr.Wrap(err, "failed to get user", goerr.V("doc_id", docID))
		default:
			var doc userDoc
			if err := snap.DataTo(&doc); err != nil {
				return goerr.Wrap(err, "failed to decode user", goerr.V("doc_id", docID))
			}
			current = r.fromDoc(&doc)
		}

		next, err := fn(current)
		if err != nil {
			return err
		}
		result = next
		return tx.Set(docRef, r.toDoc(next))
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func ensureMemberOf(user *model.User, org *model.Organization, profile *model.UserProfile, now time.Time) (*model.User, *model.Member) {
	if user == nil {
		user = &model.User{
			ID:        model.UserID(uuid.NewString()),
			CreatedAt: now,
		}
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
	return user, member
}

func (r *userRepository) EnsureMember(ctx context.Context, org *model.Organization, profile *model.UserProfile) (*model.Member, error) {
	if profile.PlatformUserID == "" {
		return nil, goerr.New("platform user id is required", goerr.V("organization_id", org.ID))
	}

	user, err := r.modify(ctx, profile.PlatformUserID, func(user *model.User) (*model.User, error) {
		user, _ = ensureMemberOf(user, org, profile, time.Now().UTC())
		return user, nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ensure member", goerr.V("platform_user_id", profile.PlatformUserID))
	}
	return user.MemberFor(org.ID), nil
}

// docIDByUserID finds the document of a user by internal id
func (r *userRepository) docIDByUserID(ctx context.Context, id model.UserID) (string, error) {
	iter := r.collection().Where("id", "==", string(id)).Limit(1).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return "", goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("id", id))
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to query user", goerr.V("id", id))
	}
	return snap.Ref.ID, nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *model.User) (*model.User, error) {
	docID, err := r.docIDByUserID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	updated, err := r.modify(ctx, docID, func(current *model.User) (*model.User, error) {
		if current == nil {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("id", user.ID))
		}
		if current.PlatformUserID != user.PlatformUserID {
			return nil, goerr.New("platform user id is the document key and cannot change", goerr.V("id", user.ID))
		}

		next := user.Clone()
		next.Members = current.Members
		for _, m := range next.Members {
			m.User = next
		}
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()
		return next, nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update user", goerr.V("id", user.ID))
	}
	return updated, nil
}

func (r *userRepository) UpdateMember(ctx context.Context, member *model.Member) (*model.Member, error) {
	docID, err := r.docIDByUserID(ctx, member.UserID)
	if err != nil {
		return nil, err
	}

	updated, err := r.modify(ctx, docID, func(current *model.User) (*model.User, error) {
		if current == nil {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "user not found", goerr.V("id", member.UserID))
		}
		for _, existing := range current.Members {
			if existing.ID != member.ID {
				continue
			}
			existing.DisplayName = member.DisplayName
			existing.TimeZoneID = member.TimeZoneID
			existing.IsGuest = member.IsGuest
			existing.Active = member.Active
			existing.IsAbbot = member.IsAbbot
			return current, nil
		}
		return nil, goerr.Wrap(interfaces.ErrNotFound, "member not found", goerr.V("id", member.ID))
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update member", goerr.V("id", member.ID))
	}
	return updated.MemberFor(member.OrganizationID), nil
}

func (r *userRepository) EnsureAbbotMember(ctx context.Context, org *model.Organization) (*model.Member, error) {
	now := time.Now().UTC()

	if profile := model.AbbotProfile(org); profile != nil {
		user, err := r.modify(ctx, profile.PlatformUserID, func(user *model.User) (*model.User, error) {
			user, member := ensureMemberOf(user, org, profile, now)
			member.IsAbbot = true
			member.Active = true
			return user, nil
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to ensure abbot member", goerr.V("organization_id", org.ID))
		}
		return user.MemberFor(org.ID), nil
	}

	user, err := r.modify(ctx, abbotDocPrefix+string(org.ID), func(user *model.User) (*model.User, error) {
		if user != nil {
			return user, nil
		}
		user = &model.User{
			ID:          model.UserID(uuid.NewString()),
			SlackTeamID: org.PlatformID,
			Name:        "abbot",
			DisplayName: "abbot",
			RealName:    "Abbot",
			IsBot:       true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		user.Members = []*model.Member{{
			ID:                     model.MemberID(uuid.NewString()),
			OrganizationID:         org.ID,
			OrganizationPlatformID: org.PlatformID,
			UserID:                 user.ID,
			DisplayName:            "abbot",
			Active:                 true,
			IsAbbot:                true,
			User:                   user,
		}}
		return user, nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to ensure abbot stand-in", goerr.V("organization_id", org.ID))
	}
	return user.MemberFor(org.ID), nil
}
