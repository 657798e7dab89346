package postgres

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/m-mizutani/goerr/v2"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate applies pending schema migrations. It reports whether anything
// was applied.
func Migrate(pool *pgxpool.Pool) (bool, error) {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return false, goerr.Wrap(err, "failed to open embedded migrations")
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return false, goerr.Wrap(err, "failed to create migration driver")
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return false, goerr.Wrap(err, "failed to create migrator")
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to run migrations")
	}
	return true, nil
}
