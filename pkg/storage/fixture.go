package storage

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixture is a YAML description of rows to insert, table by table, in the
// order given. It is used to seed development databases and tests.
//
//	tables:
//	  - name: courses
//	    rows:
//	      - {id: 1, fullname: "Biology 101"}
type Fixture struct {
	Tables []FixtureTable `yaml:"tables"`
}

// FixtureTable holds the rows for one table.
type FixtureTable struct {
	Name string           `yaml:"name"`
	Rows []map[string]any `yaml:"rows"`
}

// Insert is a single parameterized INSERT statement.
type Insert struct {
	Table string
	SQL   string
	Args  []any
}

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ParseFixture decodes and validates a fixture. Table and column names must
// be plain lowercase identifiers since they are spliced into SQL.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	for i, t := range f.Tables {
		if !identPattern.MatchString(t.Name) {
			return nil, fmt.Errorf("%w: table %d: invalid name %q", ErrInvalidFixture, i, t.Name)
		}
		for j, row := range t.Rows {
			if len(row) == 0 {
				return nil, fmt.Errorf("%w: table %s row %d: no columns", ErrInvalidFixture, t.Name, j)
			}
			for col := range row {
				if !identPattern.MatchString(col) {
					return nil, fmt.Errorf("%w: table %s row %d: invalid column %q", ErrInvalidFixture, t.Name, j, col)
				}
			}
		}
	}
	return &f, nil
}

// LoadFixture reads and parses a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture %s: %w", path, err)
	}
	return ParseFixture(data)
}

// Rows returns the total number of rows in the fixture.
func (f *Fixture) Rows() int {
	n := 0
	for _, t := range f.Tables {
		n += len(t.Rows)
	}
	return n
}

// CourseIDs returns the ids of the fixture's courses rows, in order.
// Rows without an integer id are ignored.
func (f *Fixture) CourseIDs() []int64 {
	var ids []int64
	for _, t := range f.Tables {
		if t.Name != "courses" {
			continue
		}
		for _, row := range t.Rows {
			if id, ok := fixtureValue(row["id"]).(int64); ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Inserts renders one INSERT per row, in fixture order. Columns are sorted
// by name; placeholder returns the bind marker for the n-th argument.
// Booleans become 0/1 to match the schema's integer flags.
func (f *Fixture) Inserts(placeholder func(n int) string) []Insert {
	var out []Insert
	for _, t := range f.Tables {
		for _, row := range t.Rows {
			cols := make([]string, 0, len(row))
			for col := range row {
				cols = append(cols, col)
			}
			sort.Strings(cols)

			marks := make([]string, len(cols))
			args := make([]any, len(cols))
			for i, col := range cols {
				marks[i] = placeholder(i + 1)
				args[i] = fixtureValue(row[col])
			}

			out = append(out, Insert{
				Table: t.Name,
				SQL: "INSERT INTO " + t.Name + " (" + strings.Join(cols, ", ") + ") VALUES (" +
					strings.Join(marks, ", ") + ")",
				Args: args,
			})
		}
	}
	return out
}

func fixtureValue(v any) any {
	switch x := v.(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int:
		return int64(x)
	default:
		return v
	}
}
