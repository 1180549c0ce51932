package transport

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/debug"
)

// Logging logs one record per search with request ID, course, query
// length, state, count and duration. The query text is only logged under
// the "search" debug category.
func Logging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Searcher) Searcher {
		return SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
			start := time.Now()
			debug.Log("search", "search started",
				"request_id", RequestIDFromContext(ctx),
				"q", debug.Truncate(req.Query, 64))

			resp, err := next.Search(ctx, req)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(ctx)),
				slog.Int64("course_id", req.CourseID),
				slog.Int("query_len", utf8.RuneCountInString(req.Query)),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
				logger.LogAttrs(ctx, errorLevel(err), "search failed", attrs...)
				return resp, err
			}

			attrs = append(attrs, slog.String("state", string(resp.State)), slog.Int("count", resp.Count))
			logger.LogAttrs(ctx, slog.LevelInfo, "search completed", attrs...)
			return resp, nil
		})
	}
}

// errorLevel logs client mistakes (bad course id, unknown course) at WARN
// and everything else at ERROR.
func errorLevel(err error) slog.Level {
	if AsAPIError(err).Status() < 500 {
		return slog.LevelWarn
	}
	return slog.LevelError
}
