package api

import "strings"

// ResolveState derives the page state of a search from the submitted query
// and the number of hits. A query of only whitespace counts as empty.
func ResolveState(query string, count int) SearchState {
	switch {
	case strings.TrimSpace(query) == "":
		return SearchStateEmptyQuery
	case count == 0:
		return SearchStateNoResults
	default:
		return SearchStateResults
	}
}

// NewSearchResponse assembles a response for course and query from results,
// setting count and state consistently.
func NewSearchResponse(course Course, query string, results []Result) *SearchResponse {
	if strings.TrimSpace(query) == "" {
		results = nil
	}
	return &SearchResponse{
		Object:  SearchResultsObject,
		Course:  course,
		Query:   query,
		State:   ResolveState(query, len(results)),
		Count:   len(results),
		Results: results,
	}
}
