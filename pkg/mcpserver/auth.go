package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	mcpauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/coursesearch/pkg/auth"
)

// identityExtra is the TokenInfo.Extra key holding the *auth.Identity.
const identityExtra = "coursesearch.identity"

// tokenLifetime bounds how long a verified token is trusted by the MCP
// session. Every HTTP request is verified again.
const tokenLifetime = 5 * time.Minute

// Verifier returns a bearer token verifier for the MCP endpoint. It reuses
// an identity an outer middleware already stored in the request context and
// otherwise runs chain.
func Verifier(chain *auth.Chain) mcpauth.TokenVerifier {
	return func(ctx context.Context, _ string, r *http.Request) (*mcpauth.TokenInfo, error) {
		id := auth.IdentityFrom(ctx)
		if id == nil {
			res := chain.Authenticate(ctx, r)
			if res.Decision != auth.Accept || res.Identity == nil {
				return nil, fmt.Errorf("%w: %v", mcpauth.ErrInvalidToken, res.Err)
			}
			id = res.Identity
		}
		return &mcpauth.TokenInfo{
			UserID:     id.Subject,
			Expiration: time.Now().Add(tokenLifetime),
			Extra:      map[string]any{identityExtra: id},
		}, nil
	}
}

// callerContext returns ctx carrying the identity verified for req, if any.
func callerContext(ctx context.Context, req *mcp.CallToolRequest) context.Context {
	if req == nil || req.Extra == nil || req.Extra.TokenInfo == nil {
		return ctx
	}
	if id, ok := req.Extra.TokenInfo.Extra[identityExtra].(*auth.Identity); ok {
		return auth.WithIdentity(ctx, id)
	}
	return ctx
}
