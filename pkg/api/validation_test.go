package api

import (
	"strings"
	"testing"
)

func TestParseCourseID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"12", 12, false},
		{" 7 ", 7, false},
		{"", 0, true},
		{"abc", 0, true},
		{"0", 0, true},
		{"-3", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseCourseID(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCourseID(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			continue
		}
		if err != nil && err.Param != "courseid" {
			t.Errorf("ParseCourseID(%q) param = %q, want courseid", tt.raw, err.Param)
		}
		if got != tt.want {
			t.Errorf("ParseCourseID(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestValidateSearchRequest(t *testing.T) {
	cfg := DefaultValidationConfig()
	tests := []struct {
		name      string
		req       SearchRequest
		wantParam string
	}{
		{"valid", SearchRequest{CourseID: 1, Query: "cell"}, ""},
		{"empty query is valid", SearchRequest{CourseID: 1}, ""},
		{"missing course", SearchRequest{Query: "cell"}, "courseid"},
		{"too long", SearchRequest{CourseID: 1, Query: strings.Repeat("a", cfg.MaxQueryLength+1)}, "q"},
		{"invalid utf8", SearchRequest{CourseID: 1, Query: "\xff"}, "q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchRequest(&tt.req, cfg)
			if tt.wantParam == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error on %s", tt.wantParam)
			}
			if err.Param != tt.wantParam {
				t.Errorf("Param = %q, want %q", err.Param, tt.wantParam)
			}
		})
	}
}
