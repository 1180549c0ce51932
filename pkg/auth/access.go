package auth

import (
	"context"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/debug"
	"github.com/rhuss/coursesearch/pkg/transport"
)

// CourseAccess is searcher middleware that refuses courses the caller's
// identity was not granted. A refused course is reported as not found, the
// same answer an unknown course id gets.
func CourseAccess() transport.Middleware {
	return func(next transport.Searcher) transport.Searcher {
		return transport.SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
			if id := IdentityFrom(ctx); !id.CanSearch(req.CourseID) {
				debug.Log("auth", "course not granted", "subject", id.Subject, "course_id", req.CourseID)
				return nil, api.NewCourseNotFoundError(req.CourseID)
			}
			return next.Search(ctx, req)
		})
	}
}
