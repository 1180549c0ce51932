package api

import "testing"

func TestResolveState(t *testing.T) {
	tests := []struct {
		name  string
		query string
		count int
		want  SearchState
	}{
		{"empty", "", 0, SearchStateEmptyQuery},
		{"whitespace", "  \t", 0, SearchStateEmptyQuery},
		{"whitespace ignores count", " ", 3, SearchStateEmptyQuery},
		{"no hits", "quantum", 0, SearchStateNoResults},
		{"hits", "cell", 2, SearchStateResults},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveState(tt.query, tt.count); got != tt.want {
				t.Errorf("ResolveState(%q, %d) = %q, want %q", tt.query, tt.count, got, tt.want)
			}
		})
	}
}

func TestNewSearchResponseEmptyQueryDropsResults(t *testing.T) {
	resp := NewSearchResponse(Course{ID: 2}, "   ", []Result{{Title: "stray"}})
	if resp.Count != 0 || len(resp.Results) != 0 {
		t.Errorf("empty query response has %d results, want 0", resp.Count)
	}
	if resp.State != SearchStateEmptyQuery {
		t.Errorf("State = %q, want %q", resp.State, SearchStateEmptyQuery)
	}
}
