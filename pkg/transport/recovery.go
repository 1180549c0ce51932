package transport

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rhuss/coursesearch/pkg/api"
)

// Recovery returns middleware that catches panics in the searcher and
// converts them to server error responses. The server continues to
// accept new requests after a panic is recovered.
func Recovery() Middleware {
	return func(next Searcher) Searcher {
		return SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (resp *api.SearchResponse, retErr error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("search panicked",
						"request_id", RequestIDFromContext(ctx),
						"course_id", req.CourseID,
						"panic", fmt.Sprint(r),
					)
					resp = nil
					retErr = api.NewServerError(fmt.Sprintf("internal server error: %v", r))
				}
			}()
			return next.Search(ctx, req)
		})
	}
}
