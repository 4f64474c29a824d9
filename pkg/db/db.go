// Package db owns the Postgres connection pool and the embedded goose
// migrations for the session schema. The query helpers here serve the
// maintenance paths, the stats endpoint, the paused-session sweep and the
// operator listing, which bypass the ORM and read raw SQL through scany.
package db

import (
	"context"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	_ "focusd/pkg/db/migrations"
)

// queryTimeout bounds every helper so a hung Postgres cannot pin a request
// or a CLI invocation forever.
const queryTimeout = 5 * time.Second

func withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// Open parses the DSN, connects a pgx pool and verifies it with a ping.
// Simple protocol keeps the pool compatible with goose, which shares the
// same connection string in Migrate.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies the embedded migrations registered by pkg/db/migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("nil pool provided")
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB, err := goose.OpenDBWithDriver("pgx", pool.Config().ConnConfig.ConnString())
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	return goose.UpContext(ctx, sqlDB, "migrations")
}

// Exec runs a statement under the query timeout.
func Exec(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (pgconn.CommandTag, error) {
	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return pool.Exec(ctx, query, args...)
}

// Select scans all result rows into dest under the query timeout.
func Select(ctx context.Context, pool *pgxpool.Pool, dest any, query string, args ...any) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return pgxscan.Select(ctx, pool, dest, query, args...)
}

// Ping reports whether the database is reachable. The health endpoint calls
// this on every check.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := withDeadline(ctx)
	defer cancel()
	return pool.Ping(ctx)
}
