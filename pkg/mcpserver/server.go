// Package mcpserver exposes course search as an MCP (Model Context Protocol)
// tool so assistants can query course content over streamable HTTP.
package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	mcpauth "github.com/modelcontextprotocol/go-sdk/auth"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/observability"
	"github.com/rhuss/coursesearch/pkg/preview"
	"github.com/rhuss/coursesearch/pkg/transport"
)

// ToolName is the name of the search tool.
const ToolName = "search_course"

// SearchInput is the argument object of the search tool.
type SearchInput struct {
	CourseID int64  `json:"course_id" jsonschema:"id of the course to search"`
	Query    string `json:"query" jsonschema:"free-text search term, matched literally"`
}

// SearchOutput is the structured result of the search tool.
type SearchOutput struct {
	Course  string           `json:"course"`
	State   api.SearchState  `json:"state"`
	Count   int              `json:"count"`
	Results []api.ResultView `json:"results"`
}

// Options configures the MCP server.
type Options struct {
	// BaseURL resolves result links into absolute hrefs.
	BaseURL string

	// Version is reported in the server implementation info.
	Version string

	// Verifier, when set, requires a bearer token on every MCP request and
	// hands the verified identity to the search tool. See Verifier.
	Verifier mcpauth.TokenVerifier
}

// Server wraps an MCP server that answers searches with a Searcher.
type Server struct {
	mcp      *mcp.Server
	searcher transport.Searcher
	opts     Options
}

// New creates an MCP server with the search tool registered.
func New(searcher transport.Searcher, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: "coursesearch", Version: opts.Version},
			nil,
		),
		searcher: searcher,
		opts:     opts,
	}

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolName,
		Description: "Search the activities and content of one course. Returns matching items with their type, link and a short preview.",
	}, s.search)

	return s
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// Handler returns a streamable HTTP handler serving this server.
func (s *Server) Handler() http.Handler {
	var h http.Handler = mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
	if s.opts.Verifier != nil {
		h = mcpauth.RequireBearerToken(s.opts.Verifier, nil)(h)
	}
	return h
}

// Run serves the MCP server over the given transport until the client
// disconnects or ctx is canceled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	return s.mcp.Run(ctx, t)
}

func (s *Server) search(ctx context.Context, req *mcp.CallToolRequest, in SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	ctx = callerContext(ctx, req)
	resp, err := s.searcher.Search(ctx, &api.SearchRequest{CourseID: in.CourseID, Query: in.Query})
	if err != nil {
		observability.ToolCallsTotal.WithLabelValues(ToolName, "error").Inc()
		apiErr := transport.AsAPIError(err)
		if apiErr.Type == api.ErrorTypeServerError {
			slog.Error("mcp search failed", "course_id", in.CourseID, "error", err)
			return nil, SearchOutput{}, fmt.Errorf("search failed")
		}
		return nil, SearchOutput{}, apiErr
	}

	observability.ToolCallsTotal.WithLabelValues(ToolName, "ok").Inc()

	out := SearchOutput{
		Course:  resp.Course.FullName,
		State:   resp.State,
		Count:   resp.Count,
		Results: preview.Views(resp.Results, s.opts.BaseURL),
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: formatListing(resp, out.Results)}},
	}, out, nil
}

// formatListing renders results as a numbered plain-text list.
func formatListing(resp *api.SearchResponse, views []api.ResultView) string {
	var b strings.Builder

	switch resp.State {
	case api.SearchStateEmptyQuery:
		fmt.Fprintf(&b, "No search term given for %s.", resp.Course.FullName)
		return b.String()
	case api.SearchStateNoResults:
		fmt.Fprintf(&b, "No results found for %q in %s.", resp.Query, resp.Course.FullName)
		return b.String()
	}

	fmt.Fprintf(&b, "%d results found for %q in %s:\n", resp.Count, resp.Query, resp.Course.FullName)
	for i, v := range views {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n   %s\n", i+1, v.Title, v.Type, v.Href)
		if v.Preview != "" {
			fmt.Fprintf(&b, "   %s\n", v.Preview)
		}
	}
	return b.String()
}
