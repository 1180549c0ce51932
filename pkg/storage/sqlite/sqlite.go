// Package sqlite provides a SQLite implementation of search.Store using the
// pure-Go modernc.org/sqlite driver. It suits single-node deployments,
// demos, and tests against an in-memory database.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/debug"
	"github.com/rhuss/coursesearch/pkg/search"
	"github.com/rhuss/coursesearch/pkg/storage"
	"github.com/rhuss/coursesearch/pkg/storage/schema"
	"github.com/rhuss/coursesearch/pkg/storage/sqlquery"
)

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(sqlquery.CaseFold, 1, caseFold); err != nil {
		panic(fmt.Sprintf("registering %s: %v", sqlquery.CaseFold, err))
	}
}

// caseFold lowers text with Unicode rules, so "ÉTUDE" and "étude" compare
// equal under LIKE. NULL stays NULL.
func caseFold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Config holds SQLite settings.
type Config struct {
	// DSN is a file path or ":memory:" (default: ":memory:").
	DSN string

	// MaxOpenConns caps open connections (default: 4). In-memory
	// databases always use a single connection so every query sees the
	// same database.
	MaxOpenConns int

	// MigrateOnStart runs schema migrations when the store opens.
	MigrateOnStart bool
}

func (c *Config) defaults() {
	if c.DSN == "" {
		c.DSN = ":memory:"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 4
	}
	if isMemory(c.DSN) {
		c.MaxOpenConns = 1
	}
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory") || strings.HasPrefix(dsn, "file::memory:")
}

// Store is a SQLite-backed search.Store.
type Store struct {
	db *sql.DB
}

// Ensure Store implements search.Store at compile time.
var _ search.Store = (*Store)(nil)

// Open opens the database described by cfg.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to sqlite: %w", err)
	}

	s := &Store{db: db}

	if cfg.MigrateOnStart {
		if _, err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Migrate applies pending schema migrations.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	return schema.Migrate(ctx, runner{db: s.db})
}

// Seed inserts a fixture in a single transaction and returns the number of
// rows written.
func (s *Store) Seed(ctx context.Context, f *storage.Fixture) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning seed: %w", err)
	}
	defer tx.Rollback()

	inserts := f.Inserts(sqlquery.SQLite.Placeholder)
	for _, ins := range inserts {
		if _, err := tx.ExecContext(ctx, ins.SQL, ins.Args...); err != nil {
			return 0, fmt.Errorf("seeding %s: %w", ins.Table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed: %w", err)
	}
	return len(inserts), nil
}

// Course implements search.Store.
func (s *Store) Course(ctx context.Context, id int64) (api.Course, error) {
	st := sqlquery.Course(sqlquery.SQLite, id)

	var c api.Course
	err := s.db.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&c.ID, &c.FullName, &c.ShortName)
	if errors.Is(err, sql.ErrNoRows) {
		return api.Course{}, storage.ErrNotFound
	}
	if err != nil {
		return api.Course{}, fmt.Errorf("querying course: %w", err)
	}
	return c, nil
}

// Placements implements search.Store.
func (s *Store) Placements(ctx context.Context, courseID int64) ([]search.Placement, error) {
	st := sqlquery.Placements(sqlquery.SQLite, courseID)

	rows, err := s.db.QueryContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, fmt.Errorf("querying placements: %w", err)
	}
	defer rows.Close()

	var out []search.Placement
	for rows.Next() {
		var (
			p                 search.Placement
			visible, deleting int64
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
	st := sqlquery.ModuleEnabled(sqlquery.SQLite, name)

	var visible int64
	err := s.db.QueryRowContext(ctx, st.SQL, st.Args...).Scan(&visible)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying module %s: %w", name, err)
	}
	return visible != 0, nil
}

// Search implements search.Store.
func (s *Store) Search(ctx context.Context, q search.Query) ([]search.Row, error) {
	st, err := sqlquery.Build(sqlquery.SQLite, q)
	if err != nil {
		return nil, err
	}
	debug.Trace("storage", "source query", "source", q.Source, "args", st.Args)
	debug.Raw("storage", st.SQL)

	rows, err := s.db.QueryContext(ctx, st.SQL, st.Args...)
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

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

type runner struct {
	db *sql.DB
}

// Applied reports false before the first migration has created the
// tracking table. Any other failure is returned.
func (r runner) Applied(ctx context.Context, version int) (bool, error) {
	var tables int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'",
	).Scan(&tables); err != nil {
		return false, fmt.Errorf("looking up schema_migrations: %w", err)
	}
	if tables == 0 {
		return false, nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return exists, nil
}

func (r runner) Apply(ctx context.Context, m schema.Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version) VALUES (?) ON CONFLICT DO NOTHING", m.Version,
	); err != nil {
		return err
	}
	return tx.Commit()
}
