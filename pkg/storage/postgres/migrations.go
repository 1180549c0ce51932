package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rhuss/coursesearch/pkg/storage/schema"
)

// Migrate applies pending schema migrations and returns how many ran.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	return schema.Migrate(ctx, runner{pool: s.pool})
}

// runner tracks applied versions in the schema_migrations table.
type runner struct {
	pool Pool
}

func (r runner) Applied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
		version,
	).Scan(&exists)
	if err != nil {
		// Before the first migration the tracking table does not exist.
		if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
			return false, nil
		}
		return false, fmt.Errorf("checking migration %d: %w", version, err)
	}
	return exists, nil
}

// undefinedTable is the SQLSTATE for a missing relation.
const undefinedTable = "42P01"

func (r runner) Apply(ctx context.Context, m schema.Migration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning migration: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING",
		m.Version,
	); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return tx.Commit(ctx)
}
