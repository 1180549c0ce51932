package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/auth"
	"github.com/rhuss/coursesearch/pkg/auth/apikey"
	"github.com/rhuss/coursesearch/pkg/auth/jwt"
	"github.com/rhuss/coursesearch/pkg/auth/noop"
	"github.com/rhuss/coursesearch/pkg/config"
	"github.com/rhuss/coursesearch/pkg/search"
	"github.com/rhuss/coursesearch/pkg/storage"
	"github.com/rhuss/coursesearch/pkg/storage/postgres"
	"github.com/rhuss/coursesearch/pkg/storage/sqlite"
)

// backend is a search store that can also be migrated, seeded and probed.
type backend interface {
	search.Store
	Migrate(ctx context.Context) (int, error)
	Seed(ctx context.Context, f *storage.Fixture) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ backend = (*postgres.Store)(nil)
	_ backend = (*sqlite.Store)(nil)
)

// openStore connects to the configured database. When migrate is set,
// pending migrations are applied regardless of storage.migrate_on_start.
func openStore(ctx context.Context, cfg config.StorageConfig, migrate bool) (backend, error) {
	migrate = migrate || cfg.MigrateOnStart

	var (
		store backend
		err   error
	)
	switch cfg.Type {
	case "postgres":
		store, err = postgres.New(ctx, postgres.Config{
			DSN:            cfg.DSN,
			MaxConns:       cfg.MaxConns,
			ConnectTimeout: cfg.ConnectTimeout,
			MigrateOnStart: migrate,
		})
	case "sqlite":
		store, err = sqlite.Open(ctx, sqlite.Config{
			DSN:            cfg.DSN,
			MigrateOnStart: migrate,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", cfg.Type, err)
	}

	slog.Info("storage connected", "type", cfg.Type, "migrated", migrate)
	return store, nil
}

// seedStore loads the fixture at path into store.
func seedStore(ctx context.Context, store backend, path string) (int, error) {
	fixture, err := storage.LoadFixture(path)
	if err != nil {
		return 0, err
	}
	n, err := store.Seed(ctx, fixture)
	if err != nil {
		return 0, fmt.Errorf("seeding %s: %w", path, err)
	}
	slog.Info("fixture loaded", "path", path, "rows", n)
	return n, nil
}

// seedOnce loads the fixture at path unless the store already holds its
// first course, so a persistent database can keep storage.seed_file set
// across restarts. It returns the number of rows written.
func seedOnce(ctx context.Context, store backend, path string) (int, error) {
	fixture, err := storage.LoadFixture(path)
	if err != nil {
		return 0, err
	}
	if ids := fixture.CourseIDs(); len(ids) > 0 {
		_, err := store.Course(ctx, ids[0])
		switch {
		case err == nil:
			slog.Info("fixture already loaded", "path", path, "course_id", ids[0])
			return 0, nil
		case !errors.Is(err, storage.ErrNotFound):
			return 0, fmt.Errorf("checking seed state: %w", err)
		}
	}
	n, err := store.Seed(ctx, fixture)
	if err != nil {
		return 0, fmt.Errorf("seeding %s: %w", path, err)
	}
	slog.Info("fixture loaded", "path", path, "rows", n)
	return n, nil
}

// newAggregator builds the default source registry behind a cached
// availability gate and the aggregator over it.
func newAggregator(store search.Store, cfg *config.Config) (*search.Aggregator, error) {
	gate := search.NewCachedGate(search.NewRegistryGate(store), cfg.Search.GateCacheTTL)

	registry, err := search.NewDefaultRegistry(store, gate, cfg.Search.DisabledSources...)
	if err != nil {
		return nil, fmt.Errorf("building source registry: %w", err)
	}

	return search.NewAggregator(store, registry, search.Config{
		AdapterTimeout: cfg.Search.AdapterTimeout,
		Concurrency:    cfg.Search.Concurrency,
		Breaker: search.BreakerConfig{
			Enabled:             cfg.Search.Breaker.Enabled,
			ConsecutiveFailures: cfg.Search.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Search.Breaker.OpenTimeout,
		},
		Validation: api.ValidationConfig{MaxQueryLength: cfg.Server.MaxQueryLength},
	}), nil
}

// newAuthChain builds the authenticator chain for cfg.Type. For "none" every
// request is admitted under a per-client anonymous identity.
func newAuthChain(cfg config.AuthConfig) (*auth.Chain, error) {
	switch cfg.Type {
	case "none":
		return &auth.Chain{Authenticators: []auth.Authenticator{noop.Authenticator{}}}, nil

	case "apikey":
		keys := make([]apikey.Key, 0, len(cfg.APIKeys))
		for _, k := range cfg.APIKeys {
			keys = append(keys, apikey.Key{
				Secret: k.Key,
				Identity: auth.Identity{
					Subject: k.Subject,
					Role:    k.Role,
					Courses: k.Courses,
				},
			})
		}
		return &auth.Chain{Authenticators: []auth.Authenticator{apikey.New(keys...)}}, nil

	case "jwt":
		return &auth.Chain{Authenticators: []auth.Authenticator{jwt.New(jwt.Config{
			Secret:       []byte(cfg.JWT.Secret),
			JWKSURL:      cfg.JWT.JWKSURL,
			Issuer:       cfg.JWT.Issuer,
			Audience:     cfg.JWT.Audience,
			RoleClaim:    cfg.JWT.RoleClaim,
			CoursesClaim: cfg.JWT.CoursesClaim,
		})}}, nil

	default:
		return nil, fmt.Errorf("unknown auth type %q", cfg.Type)
	}
}

// newAuthMiddleware builds the authentication and rate limiting middleware
// around chain. It returns nil when auth is off and no role is rate limited.
func newAuthMiddleware(cfg config.AuthConfig, chain *auth.Chain, public []string) func(http.Handler) http.Handler {
	limiter := newRateLimiter(cfg.RateLimit)
	if cfg.Type == "none" && limiter == nil {
		return nil
	}

	slog.Info("authentication enabled", "type", cfg.Type, "rate_limited", limiter != nil)

	// Keep a nil *InProcessLimiter out of the interface.
	var rl auth.RateLimiter
	if limiter != nil {
		rl = limiter
	}
	return auth.Middleware(chain, rl, public)
}

// newRateLimiter returns nil when no role has a limit.
func newRateLimiter(cfg config.RateLimitConfig) *auth.InProcessLimiter {
	limited := cfg.RequestsPerMinute > 0
	roles := make(map[string]auth.Limit, len(cfg.Roles))
	for role, l := range cfg.Roles {
		roles[role] = auth.Limit{RequestsPerMinute: l.RequestsPerMinute, Burst: l.Burst}
		limited = limited || l.RequestsPerMinute > 0
	}
	if !limited {
		return nil
	}
	return auth.NewInProcessLimiter(roles, auth.Limit{
		RequestsPerMinute: cfg.RequestsPerMinute,
		Burst:             cfg.Burst,
	})
}
