package cli

import (
	"context"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/aseriousbiz/abbot/pkg/cli/config"
	"github.com/aseriousbiz/abbot/pkg/repository/firestore"
	"github.com/aseriousbiz/abbot/pkg/utils/logging"
)

func cmdMigrate() *cli.Command {
	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate repository schema and indexes",
		Commands: []*cli.Command{
			cmdMigrateFirestore(),
			cmdMigratePostgres(),
		},
	}
}

func cmdMigrateFirestore() *cli.Command {
	var projectID string
	var databaseID string
	var collectionPrefix string
	var dryRun bool

	return &cli.Command{
		Name:  "firestore",
		Usage: "Create the Firestore composite indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("ABBOT_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Sources:     cli.EnvVars("ABBOT_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix for Firestore collection names",
				Sources:     cli.EnvVars("ABBOT_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &collectionPrefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"collectionPrefix", collectionPrefix,
				"dryRun", dryRun)

			client, err := fireconf.New(ctx, projectID, firestoreDatabaseID(databaseID),
				firestore.IndexConfig(collectionPrefix),
				fireconf.WithLogger(logger),
				fireconf.WithDryRun(dryRun),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				logger.Info("Dry run mode - previewing changes")
			} else {
				logger.Info("Applying migrations")
			}
			if err := client.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply migrations", goerr.V("dry_run", dryRun))
			}
			logger.Info("Migrations completed", "dryRun", dryRun)
			return nil
		},
	}
}

// firestoreDatabaseID names the default database explicitly, which fireconf
// requires
func firestoreDatabaseID(id string) string {
	if id == "" {
		return "(default)"
	}
	return id
}

func cmdMigratePostgres() *cli.Command {
	var pgCfg config.Postgres

	return &cli.Command{
		Name:  "postgres",
		Usage: "Apply pending PostgreSQL schema migrations",
		Flags: pgCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			applied, err := pgCfg.Migrate(ctx)
			if err != nil {
				return err
			}
			if applied {
				logging.Default().Info("Migrations applied successfully", "postgres", pgCfg)
			} else {
				logging.Default().Info("No changes required", "postgres", pgCfg)
			}
			return nil
		},
	}
}
