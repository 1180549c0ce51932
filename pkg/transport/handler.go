package transport

import (
	"context"

	"github.com/rhuss/coursesearch/pkg/api"
)

// Searcher runs a course-scoped search. An invalid course or query is
// reported as an *api.APIError; an empty query is not an error.
type Searcher interface {
	Search(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error)
}

// SearcherFunc is an adapter that allows using an ordinary function
// as a Searcher.
type SearcherFunc func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error)

// Search calls f(ctx, req).
func (f SearcherFunc) Search(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
	return f(ctx, req)
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckerFunc adapts a function to the HealthChecker interface.
type HealthCheckerFunc func(ctx context.Context) error

// Ping calls f(ctx).
func (f HealthCheckerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}
