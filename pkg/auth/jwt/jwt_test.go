package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/coursesearch/pkg/auth"
)

var (
	secret = []byte("lms-shared-secret")

	signingKey *rsa.PrivateKey
)

const signingKID = "lms-2026"

func init() {
	var err error
	if signingKey, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
		panic(err)
	}
}

// keyServer publishes signingKey under signingKID and counts fetches.
func keyServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetches.Add(1)
		pub := signingKey.PublicKey
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{"kty": "EC", "kid": "ignored"},
				{
					"kty": "RSA",
					"kid": signingKID,
					"use": "sig",
					"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
					"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &fetches
}

// claims returns a valid claim set for a student of course 2.
func claims(overrides jwtlib.MapClaims) jwtlib.MapClaims {
	c := jwtlib.MapClaims{
		"sub":     "student-17",
		"role":    "student",
		"courses": []any{2},
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range overrides {
		if v == nil {
			delete(c, k)
			continue
		}
		c[k] = v
	}
	return c
}

func hmacToken(t *testing.T, c jwtlib.MapClaims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, c).SignedString(secret)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func rsaToken(t *testing.T, kid string, c jwtlib.MapClaims) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, c)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(signingKey)
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func authenticate(a *Authenticator, token string) auth.Result {
	r := httptest.NewRequest(http.MethodGet, "/v1/courses/2/search?q=cell", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return a.Authenticate(context.Background(), r)
}

func TestAuthenticateHMAC(t *testing.T) {
	a := New(Config{Secret: secret, Issuer: "https://moodle.example.com"})

	res := authenticate(a, hmacToken(t, claims(jwtlib.MapClaims{"iss": "https://moodle.example.com"})))
	if res.Decision != auth.Accept {
		t.Fatalf("decision = %v (%v), want accept", res.Decision, res.Err)
	}
	id := res.Identity
	if id.Subject != "student-17" || id.Role != "student" {
		t.Errorf("identity = %+v", id)
	}
	if !slices.Equal(id.Courses, []int64{2}) {
		t.Errorf("courses = %v, want [2]", id.Courses)
	}
	if id.Attributes["issuer"] != "https://moodle.example.com" {
		t.Errorf("issuer attribute = %q", id.Attributes["issuer"])
	}
}

func TestAuthenticateRejects(t *testing.T) {
	a := New(Config{Secret: secret, Issuer: "lms", Audience: "coursesearch"})
	valid := jwtlib.MapClaims{"iss": "lms", "aud": "coursesearch"}

	with := func(extra jwtlib.MapClaims) jwtlib.MapClaims {
		c := claims(valid)
		for k, v := range extra {
			if v == nil {
				delete(c, k)
				continue
			}
			c[k] = v
		}
		return c
	}

	tests := []struct {
		name  string
		token string
	}{
		{"expired", hmacToken(t, with(jwtlib.MapClaims{"exp": time.Now().Add(-time.Hour).Unix()}))},
		{"no expiry", hmacToken(t, with(jwtlib.MapClaims{"exp": nil}))},
		{"wrong issuer", hmacToken(t, with(jwtlib.MapClaims{"iss": "elsewhere"}))},
		{"wrong audience", hmacToken(t, with(jwtlib.MapClaims{"aud": "gradebook"}))},
		{"no subject", hmacToken(t, with(jwtlib.MapClaims{"sub": nil}))},
		{"bad course id", hmacToken(t, with(jwtlib.MapClaims{"courses": []any{"two"}}))},
		{"negative course id", hmacToken(t, with(jwtlib.MapClaims{"courses": []any{-3}}))},
		{"empty courses", hmacToken(t, with(jwtlib.MapClaims{"courses": []any{}}))},
		{"rsa without jwks", rsaToken(t, signingKID, with(nil))},
		{"tampered", hmacToken(t, with(nil)) + "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := authenticate(a, tt.token)
			if res.Decision != auth.Reject {
				t.Fatalf("decision = %v, want reject", res.Decision)
			}
			if res.Err == nil {
				t.Error("rejection carries no error")
			}
		})
	}
}

func TestAuthenticateAbstains(t *testing.T) {
	a := New(Config{Secret: secret})

	for name, token := range map[string]string{
		"no token": "",
		"api key":  "sk-course-key",
	} {
		t.Run(name, func(t *testing.T) {
			if res := authenticate(a, token); res.Decision != auth.Abstain {
				t.Errorf("decision = %v, want abstain", res.Decision)
			}
		})
	}
}

func TestAuthenticateWSToken(t *testing.T) {
	a := New(Config{Secret: secret})
	r := httptest.NewRequest(http.MethodGet, "/search?id=2&q=cell&wstoken="+hmacToken(t, claims(nil)), nil)

	if res := a.Authenticate(context.Background(), r); res.Decision != auth.Accept {
		t.Errorf("decision = %v (%v), want accept", res.Decision, res.Err)
	}
}

func TestAuthenticateClaimNames(t *testing.T) {
	a := New(Config{Secret: secret, SubjectClaim: "username", RoleClaim: "moodle_role", CoursesClaim: "enrolled"})

	res := authenticate(a, hmacToken(t, jwtlib.MapClaims{
		"username":    "teacher-3",
		"moodle_role": "editingteacher",
		"enrolled":    "2, 7",
		"exp":         time.Now().Add(time.Hour).Unix(),
	}))
	if res.Decision != auth.Accept {
		t.Fatalf("decision = %v (%v), want accept", res.Decision, res.Err)
	}
	if res.Identity.Subject != "teacher-3" || res.Identity.Role != "editingteacher" {
		t.Errorf("identity = %+v", res.Identity)
	}
	if !slices.Equal(res.Identity.Courses, []int64{2, 7}) {
		t.Errorf("courses = %v, want [2 7]", res.Identity.Courses)
	}
}

func TestCourseIDs(t *testing.T) {
	tests := []struct {
		name    string
		claim   any
		want    []int64
		wantErr bool
	}{
		{"missing", nil, nil, false},
		{"numbers", []any{float64(2), float64(7)}, []int64{2, 7}, false},
		{"numeric strings", []any{"2", " 7"}, []int64{2, 7}, false},
		{"single number", float64(4), []int64{4}, false},
		{"comma separated", "1,2,,3", []int64{1, 2, 3}, false},
		{"fraction", []any{2.5}, nil, true},
		{"zero", []any{float64(0)}, nil, true},
		{"word", "biology", nil, true},
		{"boolean", true, nil, true},
		{"empty list", []any{}, nil, true},
		{"blank string", " ", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := courseIDs(tt.claim)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("courseIDs = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthenticateJWKS(t *testing.T) {
	srv, fetches := keyServer(t)
	a := New(Config{JWKSURL: srv.URL})

	for i := 0; i < 3; i++ {
		res := authenticate(a, rsaToken(t, signingKID, claims(nil)))
		if res.Decision != auth.Accept {
			t.Fatalf("request %d: decision = %v (%v), want accept", i+1, res.Decision, res.Err)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("key set fetched %d times, want 1", got)
	}

	// HMAC tokens are refused when no secret is configured.
	if res := authenticate(a, hmacToken(t, claims(nil))); res.Decision != auth.Reject {
		t.Errorf("hmac decision = %v, want reject", res.Decision)
	}
}

func TestAuthenticateJWKSUnknownKey(t *testing.T) {
	srv, fetches := keyServer(t)
	a := New(Config{JWKSURL: srv.URL})

	if res := authenticate(a, rsaToken(t, signingKID, claims(nil))); res.Decision != auth.Accept {
		t.Fatalf("decision = %v (%v), want accept", res.Decision, res.Err)
	}
	if res := authenticate(a, rsaToken(t, "rotated-away", claims(nil))); res.Decision != auth.Reject {
		t.Fatalf("unknown kid decision = %v, want reject", res.Decision)
	}
	// A just-fetched set is not fetched again for an unknown kid.
	if got := fetches.Load(); got != 1 {
		t.Errorf("key set fetched %d times, want 1", got)
	}

	if res := authenticate(a, rsaToken(t, "", claims(nil))); res.Decision != auth.Reject {
		t.Errorf("missing kid decision = %v, want reject", res.Decision)
	}
}

func TestAuthenticateJWKSUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := New(Config{JWKSURL: srv.URL})
	if res := authenticate(a, rsaToken(t, signingKID, claims(nil))); res.Decision != auth.Reject {
		t.Errorf("decision = %v, want reject", res.Decision)
	}
}
