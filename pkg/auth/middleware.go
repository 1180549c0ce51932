package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/observability"
	"github.com/rhuss/coursesearch/pkg/transport"
)

// PublicPaths are served without authentication by default.
var PublicPaths = []string{"/healthz", "/readyz", "/metrics"}

// Middleware authenticates every request outside public with chain, stores
// the identity in the request context and, when limiter is non-nil,
// enforces its rate limit.
func Middleware(chain *Chain, limiter RateLimiter, public []string) func(http.Handler) http.Handler {
	open := make(map[string]struct{}, len(public))
	for _, p := range public {
		open[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return &guard{chain: chain, limiter: limiter, public: open, next: next}
	}
}

type guard struct {
	chain   *Chain
	limiter RateLimiter
	public  map[string]struct{}
	next    http.Handler
}

func (g *guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := g.public[r.URL.Path]; ok {
		g.next.ServeHTTP(w, r)
		return
	}

	id, apiErr := g.admit(r)
	if apiErr != nil {
		if apiErr.Type == api.ErrorTypeUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer realm="coursesearch"`)
		}
		transport.WriteAPIError(w, apiErr)
		return
	}

	g.next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
}

// admit returns the caller's identity, or the error to answer with.
func (g *guard) admit(r *http.Request) (*Identity, *api.APIError) {
	res := g.chain.Authenticate(r.Context(), r)
	if res.Decision != Accept || res.Identity == nil {
		slog.Warn("authentication failed",
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"error", res.Err,
		)
		return nil, api.NewUnauthorizedError("authentication required")
	}

	id := res.Identity
	if id.Subject == "" {
		slog.Error("authenticator accepted an identity without subject")
		return nil, api.NewServerError("internal authentication error")
	}

	if g.limiter != nil {
		if err := g.limiter.Allow(r.Context(), id); err != nil {
			role := id.EffectiveRole()
			slog.Warn("rate limit exceeded", "subject", id.Subject, "role", role)
			observability.RateLimitRejectedTotal.WithLabelValues(role).Inc()
			return nil, api.NewTooManyRequestsError("rate limit exceeded")
		}
	}

	slog.Debug("request authenticated", "subject", id.Subject, "role", id.EffectiveRole(), "path", r.URL.Path)
	return id, nil
}
