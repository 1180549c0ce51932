// Package schema embeds the course content schema as versioned SQL
// migrations and applies them through a store-specific Runner.
//
// The DDL is portable between PostgreSQL and SQLite: ids are BIGINT,
// flags are INTEGER 0/1, and text columns are TEXT.
package schema

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Runner applies migrations to a concrete database.
type Runner interface {
	// Applied reports whether the migration version has been recorded.
	// It must report false, not an error, before the tracking table exists.
	Applied(ctx context.Context, version int) (bool, error)

	// Apply executes the migration and records its version.
	Apply(ctx context.Context, m Migration) error
}

// Load reads the embedded migrations ordered by version. File names start
// with the version number ("002_create_courses.sql").
func Load() ([]Migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		parts := strings.SplitN(entry.Name(), "_", 2)
		if len(parts) < 2 {
			continue
		}
		version, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		content, err := migrationFiles.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		out = append(out, Migration{Version: version, Name: entry.Name(), SQL: string(content)})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Migrate applies every pending migration in version order and returns how
// many were applied.
func Migrate(ctx context.Context, r Runner) (int, error) {
	migrations, err := Load()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		done, err := r.Applied(ctx, m.Version)
		if err != nil {
			return applied, fmt.Errorf("checking migration %s: %w", m.Name, err)
		}
		if done {
			continue
		}

		slog.Info("applying migration", "file", m.Name, "version", m.Version)

		if err := r.Apply(ctx, m); err != nil {
			return applied, fmt.Errorf("applying migration %s: %w", m.Name, err)
		}
		applied++
	}
	return applied, nil
}
