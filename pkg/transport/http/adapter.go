package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/debug"
	"github.com/rhuss/coursesearch/pkg/preview"
	"github.com/rhuss/coursesearch/pkg/transport"
)

// Adapter serves course search over HTTP: a JSON API, an HTML results page,
// and health endpoints.
type Adapter struct {
	searcher transport.Searcher
	health   transport.HealthChecker // nil if readiness is not checked
	inflight *transport.InFlightRegistry
	mux      *http.ServeMux
	config   Config

	// routeMW wraps the mux directly, inside request ID propagation.
	routeMW []func(http.Handler) http.Handler
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	// BaseURL is the site root result links are resolved against. Empty
	// keeps links site-relative.
	BaseURL string

	// PagePath is where the HTML results page is served.
	PagePath string
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		PagePath: "/search",
	}
}

// NewAdapter creates an HTTP adapter around searcher. The health checker is
// optional; when nil, /readyz always reports ready.
// Middleware is applied to the searcher in the given order.
func NewAdapter(searcher transport.Searcher, health transport.HealthChecker, cfg Config, middlewares ...transport.Middleware) *Adapter {
	if len(middlewares) > 0 {
		searcher = transport.Chain(middlewares...)(searcher)
	}
	if cfg.PagePath == "" {
		cfg.PagePath = DefaultConfig().PagePath
	}

	a := &Adapter{
		searcher: searcher,
		health:   health,
		inflight: transport.NewInFlightRegistry(),
		mux:      http.NewServeMux(),
		config:   cfg,
	}

	a.mux.HandleFunc("GET /v1/courses/{id}/search", a.handleSearchJSON)
	a.mux.HandleFunc("GET "+cfg.PagePath, a.handleSearchPage)
	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)

	return a
}

// Handle registers an additional handler (metrics, MCP) on the adapter's mux.
func (a *Adapter) Handle(pattern string, h http.Handler) {
	a.mux.Handle(pattern, h)
}

// Use wraps the route mux with mw. Route middleware sees the matched
// pattern in r.Pattern once the wrapped handler returns.
func (a *Adapter) Use(mw func(http.Handler) http.Handler) {
	a.routeMW = append(a.routeMW, mw)
}

// InFlight returns the registry of running searches.
func (a *Adapter) InFlight() *transport.InFlightRegistry {
	return a.inflight
}

// Handler returns the http.Handler for this adapter. Use this to integrate
// with an http.Server or test with httptest. The returned handler includes
// HTTP-level middleware for request ID propagation.
func (a *Adapter) Handler() http.Handler {
	var h http.Handler = a.mux
	for _, mw := range a.routeMW {
		h = mw(h)
	}
	return httpRequestIDMiddleware(h)
}

// httpRequestIDMiddleware propagates the X-Request-ID header. A client
// supplied ID is kept; otherwise a new one is assigned. The ID is placed in
// the request context and echoed in the response headers.
func httpRequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = transport.NewRequestID()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(transport.ContextWithRequestID(r.Context(), id)))
	})
}

// searchResponseJSON is the JSON body of a search.
type searchResponseJSON struct {
	*api.SearchResponse
	Data []api.ResultView `json:"data"`
}

// handleSearchJSON handles GET /v1/courses/{id}/search?q=.
func (a *Adapter) handleSearchJSON(w http.ResponseWriter, r *http.Request) {
	courseID, apiErr := api.ParseCourseID(r.PathValue("id"))
	if apiErr != nil {
		transport.WriteAPIError(w, apiErr)
		return
	}

	resp, err := a.search(r.Context(), &api.SearchRequest{CourseID: courseID, Query: r.URL.Query().Get("q")})
	if err != nil {
		transport.WriteAPIError(w, transport.AsAPIError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(searchResponseJSON{
		SearchResponse: resp,
		Data:           preview.Views(resp.Results, a.config.BaseURL),
	})
}

// handleSearchPage handles GET /search?courseid=&q=.
func (a *Adapter) handleSearchPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{Query: q.Get("q"), Action: a.config.PagePath}

	courseID, apiErr := api.ParseCourseID(q.Get("courseid"))
	if apiErr != nil {
		a.writePage(w, transport.HTTPStatusFromError(apiErr), withError(data, apiErr))
		return
	}
	data.CourseID = courseID

	resp, err := a.search(r.Context(), &api.SearchRequest{CourseID: courseID, Query: data.Query})
	if err != nil {
		apiErr := transport.AsAPIError(err)
		a.writePage(w, transport.HTTPStatusFromError(apiErr), withError(data, apiErr))
		return
	}

	data.Course = resp.Course
	data.State = resp.State
	data.Count = resp.Count
	data.Results = preview.Views(resp.Results, a.config.BaseURL)
	a.writePage(w, http.StatusOK, data)
}

func withError(data pageData, apiErr *api.APIError) pageData {
	data.Error = apiErr.Message
	return data
}

func (a *Adapter) writePage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := renderPage(w, data); err != nil {
		debug.Log("http", "rendering page failed", "error", err.Error())
	}
}

// search runs the searcher with the request registered as in flight.
func (a *Adapter) search(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
	ctx, done := a.inflight.Track(ctx)
	defer done()
	return a.searcher.Search(ctx, req)
}

// handleHealthz reports liveness.
func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// handleReadyz reports whether the data store is reachable.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health.Ping(r.Context()); err != nil {
			http.Error(w, "not ready: "+strings.TrimSpace(err.Error())+"\n", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready\n"))
}
