package search_test

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/search"
	"github.com/rhuss/coursesearch/pkg/storage/memory"
)

// fakeAdapter is a scripted Adapter.
type fakeAdapter struct {
	name    string
	results []api.Result
	err     error

	// delay holds the call; with ignoreCtx the adapter sleeps through
	// cancellation.
	delay     time.Duration
	ignoreCtx bool
	panics    bool

	calls  atomic.Int32
	active *atomic.Int32
	peak   *atomic.Int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Search(ctx context.Context, _ *search.Scope, _ string) ([]api.Result, error) {
	f.calls.Add(1)
	if f.active != nil {
		n := f.active.Add(1)
		defer f.active.Add(-1)
		for {
			p := f.peak.Load()
			if n <= p || f.peak.CompareAndSwap(p, n) {
				break
			}
		}
	}
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return f.results, f.err
}

func result(source, title string) api.Result {
	return api.Result{Title: title, Type: "Test", Source: source, CourseID: 1}
}

// newCourseStore returns a memory store holding course 1 ("Biology 101")
// and course 2 ("Chemistry").
func newCourseStore() *memory.Store {
	s := memory.New()
	s.AddCourse(api.Course{ID: 1, FullName: "Biology 101", ShortName: "BIO101"})
	s.AddCourse(api.Course{ID: 2, FullName: "Chemistry", ShortName: "CHEM"})
	return s
}

func registryOf(t interface{ Fatalf(string, ...any) }, adapters ...search.Adapter) *search.Registry {
	r := search.NewRegistry()
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			t.Fatalf("Register(%s): %v", a.Name(), err)
		}
	}
	return r
}

func titles(results []api.Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Title
	}
	return out
}
