// Package jwt authenticates signed JSON Web Tokens, as issued by an LMS
// single sign-on provider. Tokens are verified with a shared HMAC secret,
// with RSA keys published at a JWKS endpoint, or both.
//
// The subject, course role and granted course ids are read from
// configurable claims. The courses claim may be a JSON array of numbers or
// numeric strings, a single number, or a comma separated string.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/coursesearch/pkg/auth"
	"github.com/rhuss/coursesearch/pkg/debug"
)

// Config configures the authenticator. At least one of Secret and JWKSURL
// must be set.
type Config struct {
	// Secret verifies HS256, HS384 and HS512 tokens.
	Secret []byte

	// JWKSURL publishes the RSA keys for RS256, RS384 and RS512 tokens.
	JWKSURL string

	// Issuer and Audience are checked when set.
	Issuer   string
	Audience string

	SubjectClaim string // default "sub"
	RoleClaim    string // default "role"
	CoursesClaim string // default "courses"

	// KeyTTL is how long fetched JWKS keys are used before the set is
	// fetched again (default 1h).
	KeyTTL time.Duration

	// Leeway tolerates clock skew on exp, nbf and iat (default 30s).
	Leeway time.Duration

	HTTPClient *http.Client
}

func (c *Config) defaults() {
	if c.SubjectClaim == "" {
		c.SubjectClaim = "sub"
	}
	if c.RoleClaim == "" {
		c.RoleClaim = "role"
	}
	if c.CoursesClaim == "" {
		c.CoursesClaim = "courses"
	}
	if c.KeyTTL == 0 {
		c.KeyTTL = time.Hour
	}
	if c.Leeway == 0 {
		c.Leeway = 30 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
}

// Authenticator verifies JWT bearer tokens.
type Authenticator struct {
	cfg    Config
	parser *jwtlib.Parser
	keys   *keySet // nil without JWKSURL
}

// New returns an authenticator for cfg.
func New(cfg Config) *Authenticator {
	cfg.defaults()

	var methods []string
	if len(cfg.Secret) > 0 {
		methods = append(methods, "HS256", "HS384", "HS512")
	}
	if cfg.JWKSURL != "" {
		methods = append(methods, "RS256", "RS384", "RS512")
	}
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods(methods),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithLeeway(cfg.Leeway),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(cfg.Audience))
	}

	a := &Authenticator{cfg: cfg, parser: jwtlib.NewParser(opts...)}
	if cfg.JWKSURL != "" {
		a.keys = newKeySet(cfg.JWKSURL, cfg.HTTPClient, cfg.KeyTTL)
	}
	return a
}

// Authenticate abstains without a token and on tokens that are not shaped
// like a JWT, so API keys can share the chain. Malformed, expired or badly
// signed JWTs are rejected.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := auth.Token(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if raw == "" {
		return auth.Rejected(errors.New("empty bearer token"))
	}
	if strings.Count(raw, ".") != 2 {
		return auth.Result{Decision: auth.Abstain}
	}

	claims := jwtlib.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		return a.key(ctx, t)
	})
	if err != nil {
		debug.Log("auth", "token rejected", "error", err.Error())
		return auth.Rejected(fmt.Errorf("invalid token: %w", err))
	}

	id, err := a.identity(claims)
	if err != nil {
		return auth.Rejected(err)
	}
	return auth.Accepted(id)
}

// key returns the verification key for t's signing method.
func (a *Authenticator) key(ctx context.Context, t *jwtlib.Token) (any, error) {
	switch t.Method.(type) {
	case *jwtlib.SigningMethodHMAC:
		if len(a.cfg.Secret) == 0 {
			return nil, errors.New("HMAC signed tokens are not accepted")
		}
		return a.cfg.Secret, nil
	case *jwtlib.SigningMethodRSA:
		if a.keys == nil {
			return nil, errors.New("RSA signed tokens are not accepted")
		}
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("token has no kid header")
		}
		return a.keys.get(ctx, kid)
	default:
		return nil, fmt.Errorf("unsupported signing method %v", t.Header["alg"])
	}
}

// identity maps verified claims to the caller's identity.
func (a *Authenticator) identity(claims jwtlib.MapClaims) (*auth.Identity, error) {
	subject, _ := claims[a.cfg.SubjectClaim].(string)
	if subject == "" {
		return nil, fmt.Errorf("token has no %q claim", a.cfg.SubjectClaim)
	}

	courses, err := courseIDs(claims[a.cfg.CoursesClaim])
	if err != nil {
		return nil, fmt.Errorf("claim %q: %w", a.cfg.CoursesClaim, err)
	}

	role, _ := claims[a.cfg.RoleClaim].(string)
	id := &auth.Identity{Subject: subject, Role: role, Courses: courses}
	if iss, _ := claims.GetIssuer(); iss != "" {
		id.Attributes = map[string]string{"issuer": iss}
	}
	return id, nil
}

// courseIDs decodes a courses claim. A missing claim grants every course.
func courseIDs(v any) ([]int64, error) {
	var items []any
	switch c := v.(type) {
	case nil:
		return nil, nil
	case []any:
		items = c
	case string:
		for _, s := range strings.Split(c, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
	default:
		items = []any{c}
	}

	ids := make([]int64, 0, len(items))
	for _, item := range items {
		var id int64
		switch n := item.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, fmt.Errorf("course id %v is not an integer", n)
			}
			id = int64(n)
		case string:
			parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("course id %q is not an integer", n)
			}
			id = parsed
		default:
			return nil, fmt.Errorf("unexpected course id type %T", item)
		}
		if id <= 0 {
			return nil, fmt.Errorf("course id %d is not positive", id)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("no course ids")
	}
	return ids, nil
}
