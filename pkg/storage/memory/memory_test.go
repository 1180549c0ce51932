package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/search"
	"github.com/rhuss/coursesearch/pkg/storage"
)

func seeded() *Store {
	s := New()
	s.AddCourse(api.Course{ID: 1, FullName: "Biology 101"})
	s.AddCourse(api.Course{ID: 2, FullName: "Chemistry"})
	s.SetModule("forum", true)
	s.AddPlacement(search.Placement{ID: 10, CourseID: 1, Module: "forum", Instance: 1, Visible: true})
	s.AddPlacement(search.Placement{ID: 11, CourseID: 1, Module: "forum", Instance: 2, Visible: false})
	s.AddPlacement(search.Placement{ID: 12, CourseID: 2, Module: "forum", Instance: 3, Visible: true})
	s.AddPlacement(search.Placement{ID: 13, CourseID: 1, Module: "forum", Instance: 4, Visible: true, DeletionInProgress: true})

	s.AddItem("forum", Item{Row: search.Row{ID: 1, CMID: 10, Title: "Midterm dates", Body: "<p>Exam is Friday</p>"}})
	s.AddItem("forum", Item{Row: search.Row{ID: 2, CMID: 11, Title: "Midterm hidden"}})
	s.AddItem("forum", Item{Row: search.Row{ID: 3, CMID: 12, Title: "Midterm elsewhere"}})
	s.AddItem("forum", Item{Row: search.Row{ID: 4, CMID: 13, Title: "Midterm deleting"}})
	s.AddItem("forum", Item{Row: search.Row{ID: 5, CMID: 10, Title: "Midterm draft"}, Hidden: true})
	return s
}

func forumQuery(course int64, term string) search.Query {
	return search.Query{Source: "forum", CourseID: course, Term: term, Schema: search.Schema{Module: "forum"}}
}

func TestCourse(t *testing.T) {
	s := seeded()
	c, err := s.Course(context.Background(), 1)
	if err != nil {
		t.Fatalf("Course: %v", err)
	}
	if c.FullName != "Biology 101" {
		t.Errorf("FullName = %q", c.FullName)
	}
	if _, err := s.Course(context.Background(), 99); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPlacementsScopedAndOrdered(t *testing.T) {
	s := seeded()
	got, err := s.Placements(context.Background(), 1)
	if err != nil {
		t.Fatalf("Placements: %v", err)
	}
	want := []int64{10, 11, 13}
	if len(got) != len(want) {
		t.Fatalf("got %d placements, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.ID != want[i] {
			t.Errorf("placement %d = %d, want %d", i, p.ID, want[i])
		}
	}
}

func TestSearchAppliesVisibility(t *testing.T) {
	s := seeded()
	rows, err := s.Search(context.Background(), forumQuery(1, "midterm"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != 1 {
		t.Fatalf("rows = %+v, want only the visible post", rows)
	}
}

func TestSearchCaseInsensitive(t *testing.T) {
	s := seeded()
	for _, term := range []string{"midterm", "MIDTERM", "friday", "Exam is"} {
		rows, err := s.Search(context.Background(), forumQuery(1, term))
		if err != nil {
			t.Fatalf("Search(%q): %v", term, err)
		}
		if len(rows) != 1 {
			t.Errorf("Search(%q) = %d rows, want 1", term, len(rows))
		}
	}
}

func TestSearchExplicitMatchFields(t *testing.T) {
	s := seeded()
	s.AddItem("forum", Item{Row: search.Row{ID: 6, CMID: 10, Title: "Quiz", Parent: "General"}, Match: []string{"secret text"}})

	rows, _ := s.Search(context.Background(), forumQuery(1, "quiz"))
	if len(rows) != 0 {
		t.Errorf("title should not match when explicit match fields are set")
	}
	rows, _ = s.Search(context.Background(), forumQuery(1, "secret"))
	if len(rows) != 1 {
		t.Errorf("explicit match field should match")
	}
}

func TestSearchModuleMismatch(t *testing.T) {
	s := seeded()
	q := forumQuery(1, "midterm")
	q.Schema.Module = "wiki"
	rows, _ := s.Search(context.Background(), q)
	if len(rows) != 0 {
		t.Errorf("rows placed under another module must not match")
	}
}

func TestFailSourceAndCounts(t *testing.T) {
	s := seeded()
	boom := errors.New("boom")
	s.FailSource("forum", boom)

	if _, err := s.Search(context.Background(), forumQuery(1, "x")); !errors.Is(err, boom) {
		t.Errorf("expected injected failure, got %v", err)
	}
	s.FailSource("forum", nil)
	if _, err := s.Search(context.Background(), forumQuery(1, "x")); err != nil {
		t.Errorf("failure not cleared: %v", err)
	}
	if got := s.Searches("forum"); got != 2 {
		t.Errorf("Searches = %d, want 2", got)
	}
	if got := s.TotalSearches(); got != 2 {
		t.Errorf("TotalSearches = %d, want 2", got)
	}
}

func TestModuleEnabled(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	if ok, _ := s.ModuleEnabled(ctx, "forum"); !ok {
		t.Error("forum should be enabled")
	}
	if ok, _ := s.ModuleEnabled(ctx, "wiki"); ok {
		t.Error("wiki is not installed")
	}
	s.SetModule("wiki", false)
	if ok, _ := s.ModuleEnabled(ctx, "wiki"); ok {
		t.Error("disabled wiki should not be available")
	}
}

func TestClose(t *testing.T) {
	s := seeded()
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	s.Close()
	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Ping after close = %v", err)
	}
	if _, err := s.Course(context.Background(), 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Course after close = %v", err)
	}
}
