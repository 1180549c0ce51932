// Package memory provides an in-memory implementation of search.Store for
// testing and demos. Content is held as already-shaped rows per source, and
// queries apply the same course, visibility, and literal matching rules as
// the relational stores.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/search"
	"github.com/rhuss/coursesearch/pkg/storage"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store closed")

// Item is a searchable row owned by one source.
type Item struct {
	Row search.Row

	// Hidden excludes the item regardless of its placement.
	Hidden bool

	// Match lists the texts the term is compared against. When empty,
	// the row's title and body are used.
	Match []string
}

// Store is an in-memory search.Store. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	courses    map[int64]api.Course
	modules    map[string]bool
	placements map[int64]search.Placement
	items      map[string][]Item
	failures   map[string]error
	searches   map[string]int
	closed     bool
}

// Ensure Store implements search.Store at compile time.
var _ search.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		courses:    make(map[int64]api.Course),
		modules:    make(map[string]bool),
		placements: make(map[int64]search.Placement),
		items:      make(map[string][]Item),
		failures:   make(map[string]error),
		searches:   make(map[string]int),
	}
}

// AddCourse stores a course.
func (s *Store) AddCourse(c api.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = c
}

// SetModule installs an activity type in the module registry.
func (s *Store) SetModule(name string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modules[name] = enabled
}

// RemoveModule uninstalls an activity type.
func (s *Store) RemoveModule(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.modules, name)
}

// AddPlacement stores an activity placement.
func (s *Store) AddPlacement(p search.Placement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placements[p.ID] = p
}

// AddItem appends an item to a source. Items are returned in insertion order.
func (s *Store) AddItem(source string, it Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[source] = append(s.items[source], it)
}

// FailSource makes every Search for source return err. A nil err clears it.
func (s *Store) FailSource(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, source)
		return
	}
	s.failures[source] = err
}

// Searches returns how many times Search ran for source.
func (s *Store) Searches(source string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.searches[source]
}

// TotalSearches returns how many times Search ran for any source.
func (s *Store) TotalSearches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.searches {
		n += c
	}
	return n
}

// Course implements search.Store.
func (s *Store) Course(_ context.Context, id int64) (api.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return api.Course{}, ErrClosed
	}
	c, ok := s.courses[id]
	if !ok {
		return api.Course{}, storage.ErrNotFound
	}
	return c, nil
}

// Placements implements search.Store.
func (s *Store) Placements(_ context.Context, courseID int64) ([]search.Placement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	var out []search.Placement
	for _, p := range s.placements {
		if p.CourseID == courseID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ModuleEnabled implements search.Store.
func (s *Store) ModuleEnabled(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}
	return s.modules[name], nil
}

// Search implements search.Store.
func (s *Store) Search(ctx context.Context, q search.Query) ([]search.Row, error) {
	s.mu.Lock()
	s.searches[q.Source]++
	s.mu.Unlock()

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	if err := s.failures[q.Source]; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	term := strings.ToLower(q.Term)
	var rows []search.Row
	for _, it := range s.items[q.Source] {
		if it.Hidden {
			continue
		}
		p, ok := s.placements[it.Row.CMID]
		if !ok || p.CourseID != q.CourseID || !p.Viewable() {
			continue
		}
		if q.Schema.Module != "" && p.Module != q.Schema.Module {
			continue
		}
		if !matches(it, term) {
			continue
		}
		rows = append(rows, it.Row)
	}
	return rows, nil
}

func matches(it Item, term string) bool {
	texts := it.Match
	if len(texts) == 0 {
		texts = []string{it.Row.Title, it.Row.Body}
	}
	for _, t := range texts {
		if strings.Contains(strings.ToLower(t), term) {
			return true
		}
	}
	return false
}

// Ping reports whether the store is open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the store closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
