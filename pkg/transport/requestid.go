package transport

import (
	"context"

	"github.com/google/uuid"

	"github.com/rhuss/coursesearch/pkg/api"
)

type requestIDKey struct{}

// ContextWithRequestID returns ctx carrying id.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID in ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID makes sure every search has a request ID. The HTTP adapter
// supplies one from X-Request-ID; searches arriving without one (CLI, MCP)
// get a random UUID.
func RequestID() Middleware {
	return func(next Searcher) Searcher {
		return SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
			if RequestIDFromContext(ctx) == "" {
				ctx = ContextWithRequestID(ctx, NewRequestID())
			}
			return next.Search(ctx, req)
		})
	}
}

// NewRequestID returns a fresh request ID.
func NewRequestID() string {
	return uuid.NewString()
}
