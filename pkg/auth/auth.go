package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
)

// Decision is the vote an authenticator casts on a request.
type Decision int

const (
	// Abstain means the authenticator does not recognize the credentials
	// and the next one in the chain is asked.
	Abstain Decision = iota

	// Accept ends the chain with an identity.
	Accept

	// Reject ends the chain and the request is refused.
	Reject
)

func (d Decision) String() string {
	switch d {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	default:
		return "abstain"
	}
}

// Result is the outcome of one authentication attempt.
type Result struct {
	Decision Decision
	Identity *Identity // set when Decision is Accept
	Err      error     // set when Decision is Reject
}

// Accepted returns an Accept result for id.
func Accepted(id *Identity) Result {
	return Result{Decision: Accept, Identity: id}
}

// Rejected returns a Reject result carrying err.
func Rejected(err error) Result {
	return Result{Decision: Reject, Err: err}
}

// Identity is an authenticated caller of the search API.
type Identity struct {
	// Subject identifies the caller and is never empty.
	Subject string

	// Role is the caller's course role (student, editingteacher, ...). It
	// selects the rate limit.
	Role string

	// Courses lists the courses the caller may search. Empty grants all.
	Courses []int64

	// Attributes holds provider details such as the token issuer.
	Attributes map[string]string
}

// DefaultRole is the role of identities that carry none.
const DefaultRole = "guest"

// Anonymous returns the identity used when no credentials are required.
func Anonymous() *Identity {
	return &Identity{Subject: "anonymous", Role: DefaultRole}
}

// EffectiveRole returns the identity's role, or DefaultRole when unset.
func (id *Identity) EffectiveRole() string {
	if id == nil || id.Role == "" {
		return DefaultRole
	}
	return id.Role
}

// CanSearch reports whether the identity was granted courseID. A nil
// identity is unrestricted; authentication decides whether one is required.
func (id *Identity) CanSearch(courseID int64) bool {
	if id == nil || len(id.Courses) == 0 {
		return true
	}
	return slices.Contains(id.Courses, courseID)
}

// Authenticator inspects request credentials and votes.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, r *http.Request) Result

func (f AuthenticatorFunc) Authenticate(ctx context.Context, r *http.Request) Result {
	return f(ctx, r)
}

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Chain asks each authenticator in turn until one accepts or rejects.
type Chain struct {
	Authenticators []Authenticator

	// AllowAnonymous admits requests every authenticator abstained on as
	// the Anonymous identity. Otherwise they are rejected.
	AllowAnonymous bool
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, a := range c.Authenticators {
		if res := a.Authenticate(ctx, r); res.Decision != Abstain {
			return res
		}
	}
	if c.AllowAnonymous {
		return Accepted(Anonymous())
	}
	return Rejected(ErrUnauthenticated)
}

// TokenParam is the query parameter Moodle web service clients pass their
// token in.
const TokenParam = "wstoken"

// Token returns the credential presented with r: a bearer token from the
// Authorization header, or else the wstoken query parameter. ok is false
// when neither is present; a present but empty token returns ok true.
func Token(r *http.Request) (token string, ok bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, rest, found := strings.Cut(h, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		return strings.TrimSpace(rest), true
	}
	if q := r.URL.Query(); q.Has(TokenParam) {
		return q.Get(TokenParam), true
	}
	return "", false
}
