package apikey

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rhuss/coursesearch/pkg/auth"
)

func newAuthenticator() *Authenticator {
	return New(
		Key{Secret: "ws-teacher", Identity: auth.Identity{Subject: "teacher-3", Role: "editingteacher", Courses: []int64{2, 7}}},
		Key{Secret: "ws-admin", Identity: auth.Identity{Subject: "admin", Role: "manager"}},
		Key{Secret: "", Identity: auth.Identity{Subject: "ignored"}},
	)
}

func request(header, target string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestAuthenticate(t *testing.T) {
	a := newAuthenticator()

	tests := []struct {
		name        string
		header      string
		target      string
		want        auth.Decision
		wantSubject string
	}{
		{"bearer key", "Bearer ws-teacher", "/v1/courses/2/search", auth.Accept, "teacher-3"},
		{"wstoken parameter", "", "/search?id=2&wstoken=ws-admin", auth.Accept, "admin"},
		{"unknown key", "Bearer ws-student", "/v1/courses/2/search", auth.Reject, ""},
		{"empty bearer", "Bearer ", "/v1/courses/2/search", auth.Reject, ""},
		{"empty wstoken", "", "/search?id=2&wstoken=", auth.Reject, ""},
		{"no credentials", "", "/v1/courses/2/search", auth.Abstain, ""},
		{"other scheme", "Basic d3M6dGVhY2hlcg==", "/v1/courses/2/search", auth.Abstain, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := a.Authenticate(context.Background(), request(tt.header, tt.target))
			if res.Decision != tt.want {
				t.Fatalf("decision = %v, want %v", res.Decision, tt.want)
			}
			if tt.want == auth.Accept && res.Identity.Subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", res.Identity.Subject, tt.wantSubject)
			}
		})
	}
}

func TestAuthenticateEmptySecretNeverMatches(t *testing.T) {
	a := New(Key{Secret: "", Identity: auth.Identity{Subject: "nobody"}})
	if res := a.Authenticate(context.Background(), request("", "/search?wstoken=")); res.Decision != auth.Reject {
		t.Errorf("decision = %v, want reject", res.Decision)
	}
}

func TestAuthenticateCopiesCourses(t *testing.T) {
	a := newAuthenticator()

	first := a.Authenticate(context.Background(), request("Bearer ws-teacher", "/"))
	first.Identity.Courses[0] = 99

	second := a.Authenticate(context.Background(), request("Bearer ws-teacher", "/"))
	if second.Identity.Courses[0] != 2 {
		t.Errorf("courses = %v, mutation of an earlier identity leaked", second.Identity.Courses)
	}
	if !second.Identity.CanSearch(7) || second.Identity.CanSearch(3) {
		t.Errorf("course grants = %v, want [2 7]", second.Identity.Courses)
	}
}
