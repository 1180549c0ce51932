// Package noop provides an authenticator that admits every request, for
// deployments that only need rate limiting.
package noop

import (
	"context"
	"net"
	"net/http"

	"github.com/rhuss/coursesearch/pkg/auth"
)

// Authenticator accepts every request as an anonymous identity whose
// subject names the client address, so rate limits apply per client.
type Authenticator struct {
	// Role is given to the identity; empty means auth.DefaultRole.
	Role string
}

func (a Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	id := auth.Anonymous()
	if a.Role != "" {
		id.Role = a.Role
	}
	if host := clientHost(r.RemoteAddr); host != "" {
		id.Subject = "anonymous@" + host
	}
	return auth.Accepted(id)
}

func clientHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
