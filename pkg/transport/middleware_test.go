package transport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/rhuss/coursesearch/pkg/api"
)

func okSearcher(count int) Searcher {
	return SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
		results := make([]api.Result, count)
		return api.NewSearchResponse(api.Course{ID: req.CourseID}, req.Query, results), nil
	})
}

func TestChainAppliesMiddlewareInOrder(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Searcher) Searcher {
			return SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
				order = append(order, name+":before")
				resp, err := next.Search(ctx, req)
				order = append(order, name+":after")
				return resp, err
			})
		}
	}

	handler := SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
		order = append(order, "handler")
		return nil, nil
	})

	wrapped := Chain(mw("first"), mw("second"), mw("third"))(handler)
	wrapped.Search(context.Background(), &api.SearchRequest{CourseID: 1})

	expected := []string{
		"first:before", "second:before", "third:before",
		"handler",
		"third:after", "second:after", "first:after",
	}

	if len(order) != len(expected) {
		t.Fatalf("execution order length = %d, want %d: %v", len(order), len(expected), order)
	}
	for i, got := range order {
		if got != expected[i] {
			t.Errorf("order[%d] = %q, want %q", i, got, expected[i])
		}
	}
}

func TestRecoveryCatchesPanic(t *testing.T) {
	handler := SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
		panic("test panic")
	})

	resp, err := Recovery()(handler).Search(context.Background(), &api.SearchRequest{CourseID: 1, Query: "x"})
	if resp != nil {
		t.Errorf("expected nil response after panic, got %+v", resp)
	}

	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *api.APIError, got %T: %v", err, err)
	}
	if apiErr.Type != api.ErrorTypeServerError {
		t.Errorf("error type = %q, want %q", apiErr.Type, api.ErrorTypeServerError)
	}
	if !strings.Contains(apiErr.Message, "test panic") {
		t.Errorf("error message = %q, want to contain %q", apiErr.Message, "test panic")
	}
}

func TestRecoveryPassesThrough(t *testing.T) {
	resp, err := Recovery()(okSearcher(2)).Search(context.Background(), &api.SearchRequest{CourseID: 1, Query: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("Count = %d, want 2", resp.Count)
	}
}

func TestRequestIDGeneratesID(t *testing.T) {
	var captured string
	handler := SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
		captured = RequestIDFromContext(ctx)
		return nil, nil
	})

	RequestID()(handler).Search(context.Background(), &api.SearchRequest{})

	if len(captured) != 36 {
		t.Errorf("generated request ID %q is not a UUID", captured)
	}
}

func TestRequestIDPreservesExisting(t *testing.T) {
	var captured string
	handler := SearcherFunc(func(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
		captured = RequestIDFromContext(ctx)
		return nil, nil
	})

	ctx := ContextWithRequestID(context.Background(), "client-id-123")
	RequestID()(handler).Search(ctx, &api.SearchRequest{})

	if captured != "client-id-123" {
		t.Errorf("request ID = %q, want %q", captured, "client-id-123")
	}
}

func TestRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewRequestID()
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestLoggingSuccess(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := ContextWithRequestID(context.Background(), "req-1")
	Logging(logger)(okSearcher(3)).Search(ctx, &api.SearchRequest{CourseID: 7, Query: "midterm"})

	out := buf.String()
	for _, want := range []string{`"msg":"search completed"`, `"request_id":"req-1"`, `"course_id":7`, `"query_len":7`, `"count":3`, `"state":"results"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "midterm") {
		t.Errorf("query text must not be logged: %s", out)
	}
}

func TestLoggingFailureLevel(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		level string
	}{
		{"unknown course", api.NewCourseNotFoundError(5), "WARN"},
		{"bad course id", api.NewInvalidRequestError("courseid", "courseid must be a positive integer"), "WARN"},
		{"store failure", errors.New("connection reset"), "ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))
			failing := SearcherFunc(func(context.Context, *api.SearchRequest) (*api.SearchResponse, error) {
				return nil, tt.err
			})

			if _, err := Logging(logger)(failing).Search(context.Background(), &api.SearchRequest{CourseID: 5}); err != tt.err {
				t.Fatalf("err = %v, want it passed through", err)
			}

			out := buf.String()
			if !strings.Contains(out, `"msg":"search failed"`) || !strings.Contains(out, `"level":"`+tt.level+`"`) {
				t.Errorf("log output = %s, want level %s", out, tt.level)
			}
		})
	}
}

func TestLoggingNilLoggerUsesDefault(t *testing.T) {
	if _, err := Logging(nil)(okSearcher(0)).Search(context.Background(), &api.SearchRequest{CourseID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
