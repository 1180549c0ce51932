package search_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/search"
	"github.com/rhuss/coursesearch/pkg/storage/memory"
)

func forum() search.Source {
	return search.DefaultSources()[1]
}

// forumStore holds one visible forum placement (cm 10) in course 1 with a
// single matching post.
func forumStore() *memory.Store {
	s := newCourseStore()
	s.SetModule("forum", true)
	s.AddPlacement(search.Placement{ID: 10, CourseID: 1, Module: "forum", Instance: 1, Visible: true})
	s.AddItem("forum", memory.Item{Row: search.Row{
		ID: 5, CMID: 10, Title: "Exam dates", Body: "<p>Midterm on Friday</p>", Parent: "General", Ref: 3,
	}})
	return s
}

func scopeOf(t *testing.T, s search.Store, courseID int64) *search.Scope {
	t.Helper()
	ctx := context.Background()
	course, err := s.Course(ctx, courseID)
	if err != nil {
		t.Fatalf("Course: %v", err)
	}
	placements, err := s.Placements(ctx, courseID)
	if err != nil {
		t.Fatalf("Placements: %v", err)
	}
	return &search.Scope{Course: course, Placements: search.NewPlacementSet(courseID, placements)}
}

func TestSourceAdapterShapesResult(t *testing.T) {
	store := forumStore()
	a, err := search.NewSourceAdapter(forum(), store, nil)
	if err != nil {
		t.Fatalf("NewSourceAdapter: %v", err)
	}

	got, err := a.Search(context.Background(), scopeOf(t, store, 1), "exam")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
	r := got[0]
	if r.Title != "Exam dates (General)" {
		t.Errorf("Title = %q", r.Title)
	}
	if r.Type != "Forum - Post" {
		t.Errorf("Type = %q", r.Type)
	}
	if r.URL.String() != "/mod/forum/discuss.php?d=3" {
		t.Errorf("URL = %q", r.URL.String())
	}
	if r.Source != "forum" || r.CourseID != 1 {
		t.Errorf("Source/CourseID = %q/%d", r.Source, r.CourseID)
	}
	if r.Content != "<p>Midterm on Friday</p>" {
		t.Errorf("Content = %q; raw content is kept for the presenter", r.Content)
	}
}

func TestSourceAdapterUnavailableModule(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*memory.Store)
	}{
		{"disabled", func(s *memory.Store) { s.SetModule("forum", false) }},
		{"not installed", func(s *memory.Store) { s.RemoveModule("forum") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := forumStore()
			tt.setup(store)
			a, err := search.NewSourceAdapter(forum(), store, nil)
			if err != nil {
				t.Fatalf("NewSourceAdapter: %v", err)
			}

			got, err := a.Search(context.Background(), scopeOf(t, store, 1), "exam")
			if err != nil || got != nil {
				t.Errorf("Search = %v, %v; want nil, nil", got, err)
			}
			if n := store.Searches("forum"); n != 0 {
				t.Errorf("store queried %d times for an unavailable module", n)
			}
		})
	}
}

func TestSourceAdapterGateError(t *testing.T) {
	store := forumStore()
	gate := search.GateFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("registry offline")
	})
	a, err := search.NewSourceAdapter(forum(), store, gate)
	if err != nil {
		t.Fatalf("NewSourceAdapter: %v", err)
	}
	if _, err := a.Search(context.Background(), scopeOf(t, store, 1), "exam"); err == nil {
		t.Fatal("expected gate error to surface")
	}
}

func TestSourceAdapterStoreError(t *testing.T) {
	store := forumStore()
	store.FailSource("forum", errors.New("no such table: forum_posts"))
	a, err := search.NewSourceAdapter(forum(), store, nil)
	if err != nil {
		t.Fatalf("NewSourceAdapter: %v", err)
	}
	if _, err := a.Search(context.Background(), scopeOf(t, store, 1), "exam"); err == nil {
		t.Fatal("expected store error to surface")
	}
}

// rowStore returns fixed rows for every source query.
type rowStore struct {
	*memory.Store
	rows []search.Row
}

func (s rowStore) Search(context.Context, search.Query) ([]search.Row, error) {
	return s.rows, nil
}

func TestSourceAdapterSkipsUnviewablePlacements(t *testing.T) {
	store := rowStore{
		Store: newCourseStore(),
		rows: []search.Row{
			{ID: 1, CMID: 10, Title: "kept", Ref: 1},
			{ID: 2, CMID: 99, Title: "missing placement", Ref: 1},
			{ID: 3, CMID: 11, Title: "hidden placement", Ref: 1},
			{ID: 4, CMID: 12, Title: "being deleted", Ref: 1},
			{ID: 5, CMID: 20, Title: "other course", Ref: 1},
		},
	}
	store.SetModule("forum", true)

	scope := &search.Scope{
		Course: api.Course{ID: 1, FullName: "Biology 101"},
		Placements: search.NewPlacementSet(1, []search.Placement{
			{ID: 10, CourseID: 1, Module: "forum", Visible: true},
			{ID: 11, CourseID: 1, Module: "forum", Visible: false},
			{ID: 12, CourseID: 1, Module: "forum", Visible: true, DeletionInProgress: true},
			{ID: 20, CourseID: 2, Module: "forum", Visible: true},
		}),
	}

	a, err := search.NewSourceAdapter(forum(), store, nil)
	if err != nil {
		t.Fatalf("NewSourceAdapter: %v", err)
	}
	got, err := a.Search(context.Background(), scope, "x")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Title != "kept" {
		t.Errorf("titles = %v, want [kept]", titles(got))
	}
}

func TestSourceAdapterFallbacks(t *testing.T) {
	store := rowStore{Store: newCourseStore(), rows: []search.Row{{ID: 1, CMID: 10}}}
	src := search.Source{
		Name:   "bare",
		Schema: search.Schema{From: "page p"},
		Type:   func(search.Row) string { return "" },
		Title:  func(search.Row) string { return "" },
	}
	scope := &search.Scope{
		Course:     api.Course{ID: 1},
		Placements: search.NewPlacementSet(1, []search.Placement{{ID: 10, CourseID: 1, Module: "page", Visible: true}}),
	}

	a, err := search.NewSourceAdapter(src, store, nil)
	if err != nil {
		t.Fatalf("NewSourceAdapter: %v", err)
	}
	got, err := a.Search(context.Background(), scope, "x")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
	if got[0].Type != "Page" || got[0].Title != "Page" {
		t.Errorf("Type/Title = %q/%q, want Page/Page", got[0].Type, got[0].Title)
	}
	if got[0].URL.String() != "/mod/page/view.php?id=10" {
		t.Errorf("URL = %q", got[0].URL.String())
	}
}

func TestNewSourceAdapterValidates(t *testing.T) {
	store := newCourseStore()
	tests := []struct {
		name  string
		src   search.Source
		store search.Store
	}{
		{"no name", search.Source{Type: func(search.Row) string { return "" }, Title: func(search.Row) string { return "" }}, store},
		{"no functions", search.Source{Name: "x"}, store},
		{"no store", forum(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := search.NewSourceAdapter(tt.src, tt.store, nil); !errors.Is(err, search.ErrInvalidSource) {
				t.Errorf("expected ErrInvalidSource, got %v", err)
			}
		})
	}
}
