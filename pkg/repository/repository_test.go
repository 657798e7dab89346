package repository_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/domain/model"
	"github.com/aseriousbiz/abbot/pkg/domain/types"
	"github.com/aseriousbiz/abbot/pkg/repository/firestore"
	"github.com/aseriousbiz/abbot/pkg/repository/memory"
	"github.com/aseriousbiz/abbot/pkg/repository/postgres"
)

type repositoryFactory func(t *testing.T) interfaces.Repository

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	opts := []firestore.Option{
		// each run writes to its own collections
		firestore.WithCollectionPrefix("test_" + strings.ReplaceAll(uuid.NewString()[:8], "-", "")),
	}
	if databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID"); databaseID != "" {
		opts = append(opts, firestore.WithDatabaseID(databaseID))
	}

	repo, err := firestore.New(context.Background(), projectID, opts...)
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newPostgresRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}

	repo, err := postgres.New(context.Background(), url)
	gt.NoError(t, err).Required()
	_, err = postgres.Migrate(repo.Pool())
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

// runOnAllBackends runs fn against every repository implementation
func runOnAllBackends(t *testing.T, fn func(t *testing.T, newRepo repositoryFactory)) {
	t.Run("memory", func(t *testing.T) { fn(t, newMemoryRepository) })
	t.Run("firestore", func(t *testing.T) { fn(t, newFirestoreRepository) })
	t.Run("postgres", func(t *testing.T) { fn(t, newPostgresRepository) })
}

// randomID returns a Slack style id that does not collide across runs
func randomID(prefix string) string {
	return prefix + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// now is truncated to what every backend stores
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

func createOrganization(t *testing.T, repo interfaces.Repository, bot *model.BotIdentity) *model.Organization {
	t.Helper()

	platformID := randomID("T")
	created, err := repo.Organization().Create(context.Background(), &model.Organization{
		PlatformID:   platformID,
		PlatformType: types.PlatformTypeSlack,
		Domain:       strings.ToLower(platformID),
		Name:         "Workspace " + platformID,
		PlanType:     types.PlanTypeFree,
		Slug:         strings.ToLower(platformID),
		Bot:          bot,
		CreatedAt:    now(),
		UpdatedAt:    now(),
	})
	gt.NoError(t, err).Required()
	return created
}
