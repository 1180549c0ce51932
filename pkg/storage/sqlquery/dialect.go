// Package sqlquery builds the SQL shared by the relational stores: source
// queries with the course visibility predicate, literal substring matching,
// and deterministic ordering, plus the fixed lookup statements.
//
// Statements are written with ? placeholders and rebound per dialect.
package sqlquery

import (
	"strconv"
	"strings"
)

// Dialect abstracts the differences between the supported databases.
type Dialect interface {
	// Name identifies the dialect in logs.
	Name() string

	// Placeholder returns the bind marker for the n-th argument (1-based).
	Placeholder(n int) string

	// Contains returns a predicate that is true when expr contains the
	// LIKE pattern bound at placeholder, ignoring case. The pattern is
	// escaped with backslash.
	Contains(expr, placeholder string) string
}

// Postgres is the PostgreSQL dialect.
var Postgres Dialect = postgresDialect{}

// SQLite is the SQLite dialect.
var SQLite Dialect = sqliteDialect{}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) Contains(expr, ph string) string {
	return "COALESCE(" + expr + ", '') ILIKE " + ph + ` ESCAPE '\'`
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

// Contains relies on the casefold function the sqlite store registers with
// the driver. SQLite's own LOWER and LIKE fold ASCII letters only.
func (sqliteDialect) Contains(expr, ph string) string {
	return CaseFold + "(COALESCE(" + expr + ", '')) LIKE " + CaseFold + "(" + ph + `) ESCAPE '\'`
}

// CaseFold names the SQL function the SQLite dialect folds case with.
const CaseFold = "casefold"

// Rebind replaces ? markers in query with the dialect's placeholders.
// Queries built by this package never carry ? inside string literals.
func Rebind(d Dialect, query string) string {
	if d.Placeholder(1) == "?" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// EscapeLike escapes the LIKE metacharacters in term so it matches literally.
func EscapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

// Pattern returns the LIKE pattern matching term anywhere in a value.
func Pattern(term string) string {
	return "%" + EscapeLike(term) + "%"
}
