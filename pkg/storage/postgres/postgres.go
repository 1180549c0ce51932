// Package postgres provides a PostgreSQL implementation of search.Store.
// It uses pgx/v5 for connection pooling; source queries are generated by
// the sqlquery package and matched with ILIKE.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/debug"
	"github.com/rhuss/coursesearch/pkg/search"
	"github.com/rhuss/coursesearch/pkg/storage"
	"github.com/rhuss/coursesearch/pkg/storage/sqlquery"
)

// Pool is the subset of *pgxpool.Pool the store uses.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// Store is a PostgreSQL-backed search.Store.
type Store struct {
	pool Pool
}

// Ensure Store implements search.Store at compile time.
var _ search.Store = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration. The
// first connection is retried with exponential backoff for up to
// ConnectTimeout. If MigrateOnStart is true, schema migrations are applied.
func New(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := connect(ctx, pool, cfg.ConnectTimeout); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if _, err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool Pool) *Store {
	return &Store{pool: pool}
}

// connect pings until the database answers or the timeout elapses.
func connect(ctx context.Context, pool Pool, timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = timeout

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := pool.Ping(ctx)
		if err != nil {
			slog.Warn("database not reachable, retrying", "attempt", attempt, "error", err.Error())
		}
		return err
	}, backoff.WithContext(bo, ctx))
}

// Course implements search.Store.
func (s *Store) Course(ctx context.Context, id int64) (api.Course, error) {
	st := sqlquery.Course(sqlquery.Postgres, id)

	var c api.Course
	err := s.pool.QueryRow(ctx, st.SQL, st.Args...).Scan(&c.ID, &c.FullName, &c.ShortName)
	if errors.Is(err, pgx.ErrNoRows) {
		return api.Course{}, storage.ErrNotFound
	}
	if err != nil {
		return api.Course{}, fmt.Errorf("querying course: %w", err)
	}
	return c, nil
}

// Placements implements search.Store.
func (s *Store) Placements(ctx context.Context, courseID int64) ([]search.Placement, error) {
	st := sqlquery.Placements(sqlquery.Postgres, courseID)

	rows, err := s.pool.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("querying placements: %w", err)
	}
	defer rows.Close()

	var out []search.Placement
	for rows.Next() {
		var (
			p                 search.Placement
			visible, deleting int32
		)
		if err := rows.Scan(&p.ID, &p.CourseID, &p.Module, &p.Instance, &visible, &deleting); err != nil {
			return nil, fmt.Errorf("scanning placement: %w", err)
		}
		p.Visible = visible != 0
		p.DeletionInProgress = deleting != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// ModuleEnabled implements search.Store.
func (s *Store) ModuleEnabled(ctx context.Context, name string) (bool, error) {
	st := sqlquery.ModuleEnabled(sqlquery.Postgres, name)

	var visible int32
	err := s.pool.QueryRow(ctx, st.SQL, st.Args...).Scan(&visible)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying module %s: %w", name, err)
	}
	return visible != 0, nil
}

// Search implements search.Store.
func (s *Store) Search(ctx context.Context, q search.Query) ([]search.Row, error) {
	st, err := sqlquery.Build(sqlquery.Postgres, q)
	if err != nil {
		return nil, err
	}
	debug.Trace("storage", "source query", "source", q.Source, "args", st.Args)
	debug.Raw("storage", st.SQL)

	rows, err := s.pool.Query(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", q.Source, err)
	}
	defer rows.Close()

	var out []search.Row
	for rows.Next() {
		var r search.Row
		if err := rows.Scan(&r.ID, &r.CMID, &r.Kind, &r.Title, &r.Body, &r.Parent, &r.Ref); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", q.Source, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Seed inserts a fixture in a single transaction and returns the number of
// rows written.
func (s *Store) Seed(ctx context.Context, f *storage.Fixture) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback(ctx)

	inserts := f.Inserts(sqlquery.Postgres.Placeholder)
	for _, ins := range inserts {
		if _, err := tx.Exec(ctx, ins.SQL, ins.Args...); err != nil {
			return 0, fmt.Errorf("seeding %s: %w", ins.Table, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	return len(inserts), nil
}

// Ping verifies the database connection is functional.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
