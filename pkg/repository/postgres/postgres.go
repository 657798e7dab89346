package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aseriousbiz/abbot/pkg/domain/interfaces"
)

// uniqueViolation is the SQLSTATE of a unique constraint violation
const uniqueViolation = "23505"

type Postgres struct {
	pool         *pgxpool.Pool
	maxConns     int32
	organization *organizationRepository
	integration  *integrationRepository
	room         *roomRepository
	user         *userRepository
}

var _ interfaces.Repository = &Postgres{}

type Option func(*Postgres)

// WithMaxConns limits the size of the connection pool
func WithMaxConns(n int32) Option {
	return func(p *Postgres) {
		p.maxConns = n
	}
}

// New connects to databaseURL. The schema is not migrated; call Migrate.
func New(ctx context.Context, databaseURL string, opts ...Option) (*Postgres, error) {
	p := &Postgres{}
	for _, opt := range opts {
		opt(p)
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres url")
	}
	if p.maxConns > 0 {
		cfg.MaxConns = p.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}

	p.pool = pool
	p.organization = &organizationRepository{pool: pool}
	p.integration = &integrationRepository{pool: pool}
	p.room = &roomRepository{pool: pool}
	p.user = &userRepository{pool: pool}
	return p, nil
}

// Pool exposes the connection pool for migrations
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *Postgres) Organization() interfaces.OrganizationRepository {
	return p.organization
}

func (p *Postgres) Integration() interfaces.IntegrationRepository {
	return p.integration
}

func (p *Postgres) Room() interfaces.RoomRepository {
	return p.room
}

func (p *Postgres) User() interfaces.UserRepository {
	return p.user
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var (
	_ querier = &pgxpool.Pool{}
	_ querier = pgx.Tx(nil)
)
