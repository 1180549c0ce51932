package search

import (
	"strconv"

	"github.com/rhuss/coursesearch/pkg/api"
)

// Placement is an activity instance placed in a course.
type Placement struct {
	ID                 int64
	CourseID           int64
	Module             string
	Instance           int64
	Visible            bool
	DeletionInProgress bool
}

// Viewable reports whether items under the placement may appear in results.
func (p Placement) Viewable() bool {
	return p.Visible && !p.DeletionInProgress
}

// Link returns the generic activity URL of the placement.
func (p Placement) Link() api.Link {
	return api.NewLink("/mod/"+p.Module+"/view.php", "id", strconv.FormatInt(p.ID, 10))
}

// Skip reasons reported when a matched row is dropped.
const (
	SkipMissing = "missing"
	SkipCourse  = "other_course"
	SkipHidden  = "hidden"
)

// PlacementSet is a per-request snapshot of a course's placements, keyed by
// placement id.
type PlacementSet struct {
	courseID int64
	byID     map[int64]Placement
}

// NewPlacementSet builds a snapshot for courseID from placements. Placements
// of other courses are kept so they can be told apart from missing ones.
func NewPlacementSet(courseID int64, placements []Placement) *PlacementSet {
	s := &PlacementSet{courseID: courseID, byID: make(map[int64]Placement, len(placements))}
	for _, p := range placements {
		s.byID[p.ID] = p
	}
	return s
}

// Len returns the number of placements in the snapshot.
func (s *PlacementSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.byID)
}

// Resolve returns the placement with the given id if it belongs to the
// snapshot's course and is viewable. Otherwise it returns the skip reason.
func (s *PlacementSet) Resolve(cmid int64) (Placement, string) {
	if s == nil {
		return Placement{}, SkipMissing
	}
	p, ok := s.byID[cmid]
	switch {
	case !ok:
		return Placement{}, SkipMissing
	case p.CourseID != s.courseID:
		return Placement{}, SkipCourse
	case !p.Viewable():
		return Placement{}, SkipHidden
	}
	return p, ""
}

// Scope is the context a single search runs in.
type Scope struct {
	Course     api.Course
	Placements *PlacementSet
}
