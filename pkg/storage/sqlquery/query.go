package sqlquery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rhuss/coursesearch/pkg/search"
)

// Statement is a SQL string with its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// Fixed lookup statements, written with ? placeholders.
const (
	courseSQL = `SELECT id, fullname, COALESCE(shortname, '') FROM courses WHERE id = ?`

	placementsSQL = `SELECT cm.id, cm.course, m.name, cm.instance, cm.visible, cm.deletion_in_progress
FROM course_modules cm
JOIN modules m ON m.id = cm.module
WHERE cm.course = ?
ORDER BY cm.id`

	moduleEnabledSQL = `SELECT visible FROM modules WHERE name = ?`
)

// Course returns the statement loading one course.
func Course(d Dialect, id int64) Statement {
	return Statement{SQL: Rebind(d, courseSQL), Args: []any{id}}
}

// Placements returns the statement loading a course's placement snapshot.
func Placements(d Dialect, courseID int64) Statement {
	return Statement{SQL: Rebind(d, placementsSQL), Args: []any{courseID}}
}

// ModuleEnabled returns the statement reading a module's registry flag.
func ModuleEnabled(d Dialect, name string) Statement {
	return Statement{SQL: Rebind(d, moduleEnabledSQL), Args: []any{name}}
}

// Errors returned by Build for malformed schemas.
var (
	ErrNoFrom    = errors.New("schema has no FROM clause")
	ErrNoColumns = errors.New("schema must map the id and cmid fields")
	ErrNoMatch   = errors.New("schema has no match expressions")
)

// Build renders a source query. The statement selects the row fields in
// search.Fields order, restricts to viewable placements of the course (and to
// the source's module when gated), applies the item visibility predicate, and
// matches the term literally and case-insensitively against every match
// expression. Rows are ordered by the source's keys, then by item id.
func Build(d Dialect, q search.Query) (Statement, error) {
	s := q.Schema
	if strings.TrimSpace(s.From) == "" {
		return Statement{}, fmt.Errorf("source %s: %w", q.Source, ErrNoFrom)
	}
	idExpr, okID := s.Columns[search.FieldID]
	_, okCM := s.Columns[search.FieldCMID]
	if !okID || !okCM {
		return Statement{}, fmt.Errorf("source %s: %w", q.Source, ErrNoColumns)
	}
	if len(s.Match) == 0 {
		return Statement{}, fmt.Errorf("source %s: %w", q.Source, ErrNoMatch)
	}

	var b strings.Builder
	args := make([]any, 0, 2+len(s.Match))

	b.WriteString("SELECT ")
	for i, f := range search.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(column(s.Columns, f))
		b.WriteString(" AS ")
		b.WriteString(f.String())
	}

	b.WriteString("\nFROM ")
	b.WriteString(s.From)

	b.WriteString("\nWHERE cm.course = ? AND cm.visible = 1 AND cm.deletion_in_progress = 0")
	args = append(args, q.CourseID)

	if s.Module != "" {
		b.WriteString(" AND m.name = ?")
		args = append(args, s.Module)
	}
	if s.Hidden != "" {
		b.WriteString(" AND (")
		b.WriteString(s.Hidden)
		b.WriteString(")")
	}

	pattern := Pattern(q.Term)
	b.WriteString("\n  AND (")
	for i, expr := range s.Match {
		if i > 0 {
			b.WriteString(" OR ")
		}
		b.WriteString(d.Contains(expr, "?"))
		args = append(args, pattern)
	}
	b.WriteString(")")

	b.WriteString("\nORDER BY ")
	for _, expr := range s.Order {
		b.WriteString(expr)
		b.WriteString(", ")
	}
	b.WriteString(idExpr)

	return Statement{SQL: Rebind(d, b.String()), Args: args}, nil
}

// column renders the select expression for f, substituting a typed empty
// value when the source does not provide the field.
func column(cols map[search.Field]string, f search.Field) string {
	expr, ok := cols[f]
	switch {
	case ok && f.Text():
		return "COALESCE(" + expr + ", '')"
	case ok && f == search.FieldRef:
		return "COALESCE(" + expr + ", 0)"
	case ok:
		return expr
	case f.Text():
		return "''"
	default:
		return "0"
	}
}
