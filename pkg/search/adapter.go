package search

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/debug"
	"github.com/rhuss/coursesearch/pkg/observability"
)

// Adapter searches one content type within a course.
type Adapter interface {
	// Name identifies the adapter. Names are unique within a Registry.
	Name() string

	// Search returns the results for term in the scope's course. An
	// unavailable content type yields no results and no error.
	Search(ctx context.Context, scope *Scope, term string) ([]api.Result, error)
}

// ErrInvalidSource is returned by NewSourceAdapter for incomplete sources.
var ErrInvalidSource = errors.New("invalid source")

// SourceAdapter is the Adapter for a declared Source. It gates on the
// module registry, runs the source query through the store, and shapes the
// rows whose placement is viewable.
type SourceAdapter struct {
	source Source
	store  Store
	gate   Gate
}

// Ensure SourceAdapter implements Adapter at compile time.
var _ Adapter = (*SourceAdapter)(nil)

// NewSourceAdapter returns an adapter for src reading from store. A nil gate
// queries the module registry in store on every call.
func NewSourceAdapter(src Source, store Store, gate Gate) (*SourceAdapter, error) {
	switch {
	case src.Name == "":
		return nil, fmt.Errorf("%w: missing name", ErrInvalidSource)
	case src.Type == nil || src.Title == nil:
		return nil, fmt.Errorf("%w: source %s needs type and title functions", ErrInvalidSource, src.Name)
	case store == nil:
		return nil, fmt.Errorf("%w: source %s has no store", ErrInvalidSource, src.Name)
	}
	if gate == nil {
		gate = NewRegistryGate(store)
	}
	return &SourceAdapter{source: src, store: store, gate: gate}, nil
}

// Name implements Adapter.
func (a *SourceAdapter) Name() string {
	return a.source.Name
}

// Source returns the declaration the adapter was built from.
func (a *SourceAdapter) Source() Source {
	return a.source
}

// Search implements Adapter.
func (a *SourceAdapter) Search(ctx context.Context, scope *Scope, term string) ([]api.Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "search.source",
		trace.WithAttributes(
			attribute.String("source", a.source.Name),
			attribute.Int64("course_id", scope.Course.ID),
		))
	defer span.End()

	module := a.source.Schema.Module
	ok, err := a.gate.Available(ctx, module)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("checking availability of %s: %w", module, err)
	}
	if !ok {
		debug.Log("sources", "content type unavailable", "source", a.source.Name, "module", module)
		observability.SourceQueriesTotal.WithLabelValues(a.source.Name, observability.StatusUnavailable).Inc()
		span.SetAttributes(attribute.Bool("available", false))
		return nil, nil
	}

	rows, err := a.store.Search(ctx, Query{
		Source:   a.source.Name,
		Schema:   a.source.Schema,
		CourseID: scope.Course.ID,
		Term:     term,
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s: %w", a.source.Name, err)
	}

	results := make([]api.Result, 0, len(rows))
	for _, row := range rows {
		p, reason := scope.Placements.Resolve(row.CMID)
		if reason != "" {
			debug.Log("sources", "skipping row", "source", a.source.Name, "id", row.ID, "cmid", row.CMID, "reason", reason)
			observability.RowsSkippedTotal.WithLabelValues(a.source.Name, reason).Inc()
			continue
		}
		results = append(results, a.result(scope, row, p))
	}

	observability.SourceQueriesTotal.WithLabelValues(a.source.Name, observability.StatusOK).Inc()
	observability.SourceResultsTotal.WithLabelValues(a.source.Name).Add(float64(len(results)))
	span.SetAttributes(attribute.Int("rows", len(rows)), attribute.Int("results", len(results)))
	debug.Log("sources", "source searched", "source", a.source.Name, "rows", len(rows), "results", len(results))

	return results, nil
}

// result shapes a row. Title and type are never empty.
func (a *SourceAdapter) result(scope *Scope, row Row, p Placement) api.Result {
	typ := a.source.Type(row)
	if typ == "" {
		typ = ModuleLabel(p.Module)
	}
	title := a.source.Title(row)
	if title == "" {
		title = typ
	}

	link := p.Link()
	if a.source.Link != nil {
		if l := a.source.Link(row, p); !l.IsZero() {
			link = l
		}
	}

	return api.Result{
		Title:    title,
		Type:     typ,
		Content:  row.Body,
		URL:      link,
		Source:   a.source.Name,
		CourseID: scope.Course.ID,
	}
}
