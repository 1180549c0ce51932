package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/debug"
	"github.com/rhuss/coursesearch/pkg/observability"
	"github.com/rhuss/coursesearch/pkg/storage"
)

// Config holds aggregator settings.
type Config struct {
	// AdapterTimeout bounds each adapter call (default: 5s). An adapter
	// that runs past it contributes no results.
	AdapterTimeout time.Duration

	// Concurrency caps the adapters running at once. Zero runs all
	// adapters in parallel.
	Concurrency int

	Breaker BreakerConfig

	Validation api.ValidationConfig
}

func (c *Config) defaults() {
	if c.AdapterTimeout == 0 {
		c.AdapterTimeout = 5 * time.Second
	}
	if c.Validation == (api.ValidationConfig{}) {
		c.Validation = api.DefaultValidationConfig()
	}
	c.Breaker.defaults()
}

// Aggregator fans a search term out to every registered adapter and
// concatenates their results in registration order.
type Aggregator struct {
	store    Store
	registry *Registry
	cfg      Config

	// breakers is keyed by adapter name and fixed at construction.
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewAggregator creates an aggregator over the adapters currently in
// registry. Adapters registered later run without a circuit breaker.
func NewAggregator(store Store, registry *Registry, cfg Config) *Aggregator {
	cfg.defaults()

	a := &Aggregator{
		store:    store,
		registry: registry,
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
	if cfg.Breaker.Enabled {
		for _, name := range registry.Names() {
			a.breakers[name] = newBreaker(name, cfg.Breaker)
		}
	}
	return a
}

// Course resolves a course id. A missing course is reported as a not-found
// APIError; any other failure is returned wrapped.
func (a *Aggregator) Course(ctx context.Context, id int64) (api.Course, error) {
	course, err := a.store.Course(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return api.Course{}, api.NewCourseNotFoundError(id)
	}
	if err != nil {
		return api.Course{}, fmt.Errorf("loading course %d: %w", id, err)
	}
	return course, nil
}

// PerformSearch returns every result for term in the course. A blank term
// returns no results without touching the store or any adapter. An unknown
// course fails before any adapter runs; adapter failures never fail the call.
func (a *Aggregator) PerformSearch(ctx context.Context, courseID int64, term string) ([]api.Result, error) {
	if strings.TrimSpace(term) == "" {
		return nil, nil
	}
	course, err := a.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, course, term)
}

// Search resolves the request's course and runs the search, reporting which
// page state the outcome is in. The course is checked even for a blank query.
func (a *Aggregator) Search(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
	if apiErr := api.ValidateSearchRequest(req, a.cfg.Validation); apiErr != nil {
		return nil, apiErr
	}

	course, err := a.Course(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}

	var results []api.Result
	if strings.TrimSpace(req.Query) != "" {
		results, err = a.run(ctx, course, req.Query)
		if err != nil {
			return nil, err
		}
	}

	resp := api.NewSearchResponse(course, req.Query, results)
	observability.SearchesTotal.WithLabelValues(string(resp.State)).Inc()
	return resp, nil
}

func (a *Aggregator) run(ctx context.Context, course api.Course, term string) ([]api.Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "search.aggregate",
		trace.WithAttributes(
			attribute.Int64("course_id", course.ID),
			attribute.Int("term_length", len(term)),
		))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.SearchDuration.Observe(time.Since(start).Seconds())
	}()

	placements, err := a.store.Placements(ctx, course.ID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("loading placements of course %d: %w", course.ID, err)
	}
	scope := &Scope{Course: course, Placements: NewPlacementSet(course.ID, placements)}

	adapters := a.registry.Adapters()
	outputs := make([][]api.Result, len(adapters))

	var g errgroup.Group
	if a.cfg.Concurrency > 0 {
		g.SetLimit(a.cfg.Concurrency)
	}
	for i, ad := range adapters {
		g.Go(func() error {
			outputs[i] = a.invoke(ctx, scope, ad, term)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	total := 0
	for _, out := range outputs {
		total += len(out)
	}
	results := make([]api.Result, 0, total)
	for _, out := range outputs {
		results = append(results, out...)
	}

	span.SetAttributes(attribute.Int("results", len(results)))
	debug.Log("search", "search complete",
		"course_id", course.ID,
		"placements", scope.Placements.Len(),
		"adapters", len(adapters),
		"results", len(results),
		"duration", time.Since(start),
	)
	return results, nil
}

type outcome struct {
	results []api.Result
	err     error
}

// invoke runs one adapter under its timeout and breaker. Failures are logged
// and counted, and yield nil.
func (a *Aggregator) invoke(ctx context.Context, scope *Scope, ad Adapter, term string) []api.Result {
	name := ad.Name()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.AdapterTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		results, err := a.call(ctx, scope, ad, term)
		done <- outcome{results: results, err: err}
	}()

	// Stop waiting at the deadline even if the adapter ignores cancellation.
	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}

	observability.SourceLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if out.err != nil {
		status := failureStatus(out.err)
		slog.Warn("content source failed",
			"source", name,
			"course_id", scope.Course.ID,
			"status", status,
			"error", out.err.Error(),
		)
		observability.SourceQueriesTotal.WithLabelValues(name, status).Inc()
		return nil
	}
	return out.results
}

func (a *Aggregator) call(ctx context.Context, scope *Scope, ad Adapter, term string) ([]api.Result, error) {
	cb, ok := a.breakers[ad.Name()]
	if !ok {
		return ad.Search(ctx, scope, term)
	}
	v, err := cb.Execute(func() (interface{}, error) {
		return ad.Search(ctx, scope, term)
	})
	if err != nil {
		return nil, err
	}
	results, _ := v.([]api.Result)
	return results, nil
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return observability.StatusBreakerOpen
	case errors.Is(err, context.DeadlineExceeded):
		return observability.StatusTimeout
	default:
		return observability.StatusError
	}
}
