package search

import (
	"context"

	"github.com/rhuss/coursesearch/pkg/api"
)

// Store is the read-only data access every content source queries through.
// Implementations must be safe for concurrent use.
type Store interface {
	// Course returns the course with the given id, or storage.ErrNotFound.
	Course(ctx context.Context, id int64) (api.Course, error)

	// Placements returns every activity placement of the course, viewable
	// or not, ordered by placement id.
	Placements(ctx context.Context, courseID int64) ([]Placement, error)

	// ModuleEnabled reports whether the named activity type is installed
	// and enabled in the module registry.
	ModuleEnabled(ctx context.Context, name string) (bool, error)

	// Search runs a source query and returns the matching rows in the
	// source's intrinsic order.
	Search(ctx context.Context, q Query) ([]Row, error)
}

// Field identifies one column of the uniform row every source query returns.
type Field int

const (
	// FieldID is the primary key of the matched item. Required.
	FieldID Field = iota
	// FieldCMID is the placement (course module) id. Required.
	FieldCMID
	// FieldKind is the activity type name of the item, for sources that span types.
	FieldKind
	// FieldTitle is the item's own label.
	FieldTitle
	// FieldBody is the raw, possibly HTML-bearing body text.
	FieldBody
	// FieldParent is the label of the containing activity.
	FieldParent
	// FieldRef is a secondary id used to build links (discussion, record).
	FieldRef
)

// Fields lists every Field in select order.
var Fields = []Field{FieldID, FieldCMID, FieldKind, FieldTitle, FieldBody, FieldParent, FieldRef}

// String returns the column alias used for the field.
func (f Field) String() string {
	switch f {
	case FieldID:
		return "id"
	case FieldCMID:
		return "cmid"
	case FieldKind:
		return "kind"
	case FieldTitle:
		return "title"
	case FieldBody:
		return "body"
	case FieldParent:
		return "parent"
	case FieldRef:
		return "ref"
	default:
		return "unknown"
	}
}

// Text reports whether the field holds text rather than an id.
func (f Field) Text() bool {
	switch f {
	case FieldKind, FieldTitle, FieldBody, FieldParent:
		return true
	default:
		return false
	}
}

// Schema describes how a source is stored. SQL fragments are written against
// a join chain that aliases the placement table as cm and the module registry
// as m; the store adds the course, visibility, and module predicates.
type Schema struct {
	// Module gates the source on the module registry. Empty means the
	// source is always queried and the module predicate is omitted.
	Module string

	// From is the FROM clause, including joins.
	From string

	// Columns maps row fields to SQL expressions. FieldID and FieldCMID are required.
	Columns map[Field]string

	// Match lists the SQL expressions compared against the term.
	// A row matches when any of them contains the term.
	Match []string

	// Order lists the ORDER BY expressions. The item id is always
	// appended as the final tie-breaker.
	Order []string

	// Hidden is an optional predicate an item must satisfy to be visible,
	// for content types that can hide individual items.
	Hidden string
}

// Query is one source query scoped to a course.
type Query struct {
	Source   string
	Schema   Schema
	CourseID int64
	Term     string
}

// Row is the uniform shape of a matched item.
type Row struct {
	ID     int64
	CMID   int64
	Kind   string
	Title  string
	Body   string
	Parent string
	Ref    int64
}
