// Package transport defines the handler contract and middleware chain
// between the coursesearch HTTP surface and the search core.
//
// # Handler Interfaces
//
// Searcher runs one course-scoped search and reports which page state the
// outcome is in. The search aggregator implements it; the HTTP adapter and
// the MCP server call it. HealthChecker is implemented by the data stores
// and backs the readiness endpoint.
//
// # Middleware
//
// The middleware chain wraps a Searcher with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
//
// # In-flight Searches
//
// InFlightRegistry tracks the cancel functions of running searches so a
// server that exceeds its shutdown deadline can abandon them.
package transport
