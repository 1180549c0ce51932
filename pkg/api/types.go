package api

import (
	"net/url"
	"sort"
	"strings"
)

// Link is a site-relative locator for a search hit: a path plus query
// parameters. Links are resolved against a site base URL only when rendered
// for a client.
type Link struct {
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
}

// NewLink builds a Link from a path and alternating key/value pairs.
// A trailing key without a value is ignored.
func NewLink(path string, kv ...string) Link {
	l := Link{Path: path}
	for i := 0; i+1 < len(kv); i += 2 {
		if l.Params == nil {
			l.Params = make(map[string]string, len(kv)/2)
		}
		l.Params[kv[i]] = kv[i+1]
	}
	return l
}

// String renders the link as path?query with parameters in key order.
func (l Link) String() string {
	if len(l.Params) == 0 {
		return l.Path
	}
	keys := make([]string, 0, len(l.Params))
	for k := range l.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(l.Path)
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(l.Params[k]))
	}
	return b.String()
}

// Resolve returns the absolute form of the link against base. An empty base
// yields the site-relative form.
func (l Link) Resolve(base string) string {
	rel := l.String()
	if base == "" {
		return rel
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(rel, "/")
}

// IsZero reports whether the link has no path.
func (l Link) IsZero() bool {
	return l.Path == ""
}

// Result is one normalized search hit. Every content source produces values
// of this shape regardless of where the text came from.
type Result struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	URL      Link   `json:"url"`
	Source   string `json:"source"`
	CourseID int64  `json:"course_id"`
}

// Course identifies the scope of a search.
type Course struct {
	ID        int64  `json:"id"`
	FullName  string `json:"fullname"`
	ShortName string `json:"shortname,omitempty"`
}

// SearchRequest is a course-scoped free-text search.
type SearchRequest struct {
	CourseID int64  `json:"course_id"`
	Query    string `json:"query"`
}

// SearchState describes which of the three page states a search ended in.
type SearchState string

const (
	SearchStateEmptyQuery SearchState = "empty_query"
	SearchStateNoResults  SearchState = "no_results"
	SearchStateResults    SearchState = "results"
)

// SearchResponse is the outcome of a search, ready for rendering.
type SearchResponse struct {
	Object  string      `json:"object"`
	Course  Course      `json:"course"`
	Query   string      `json:"query"`
	State   SearchState `json:"state"`
	Count   int         `json:"count"`
	Results []Result    `json:"-"`
}

// ResultView is the client-facing form of a Result, with the link resolved
// and a plain-text preview.
type ResultView struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Content string `json:"content"`
	Preview string `json:"preview"`
	URL     string `json:"url"`
	Href    string `json:"href"`
	Source  string `json:"source"`
}

// SearchResultsObject is the object discriminator of a search response.
const SearchResultsObject = "search_results"
