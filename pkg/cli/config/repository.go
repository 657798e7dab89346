package config

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
	"github.com/aseriousbiz/abbot/pkg/repository/firestore"
	"github.com/aseriousbiz/abbot/pkg/repository/memory"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
)

// Repository backends
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend          string
	projectID        string
	databaseID       string
	collectionPrefix string
	postgres         Postgres
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (memory, firestore or postgres)",
			Value:       BackendMemory,
			Sources:     cli.EnvVars("ABBOT_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Firestore",
			Sources:     cli.EnvVars("ABBOT_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Firestore",
			Sources:     cli.EnvVars("ABBOT_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix for Firestore collection names",
			Category:    "Firestore",
			Sources:     cli.EnvVars("ABBOT_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
	}
	return append(flags, r.postgres.Flags()...)
}

func (r Repository) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("backend", r.backend)}
	switch r.backend {
	case BackendFirestore:
		attrs = append(attrs,
			slog.String("project_id", r.projectID),
			slog.String("database_id", r.databaseID),
		)
	case BackendPostgres:
		attrs = append(attrs, slog.Any("postgres", r.postgres))
	}
	return slog.GroupValue(attrs...)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.New("firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID,
			firestore.WithDatabaseID(r.databaseID),
			firestore.WithCollectionPrefix(r.collectionPrefix),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendPostgres:
		repo, err := r.postgres.Configure(ctx)
		if err != nil {
			return nil, err
		}
		logging.Default().Info("Using PostgreSQL repository", "postgres", r.postgres)
		return repo, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.New("invalid repository backend", goerr.V("backend", r.backend))
	}
}
