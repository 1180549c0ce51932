// Package api defines the core types for the course search service.
//
// This package provides the data types shared by every layer: the uniform
// search [Result] with its structured [Link], the [Course] a search is scoped
// to, the [SearchRequest] and [SearchResponse] exchanged with clients, and the
// structured [APIError] taxonomy.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. Types marshal to the JSON returned by the HTTP API.
//
// Core types:
//   - [Result]: one normalized hit produced by a content source
//   - [Link]: a site-relative locator with query parameters
//   - [SearchRequest]: a course id plus free-text search term
//   - [SearchResponse]: the rendered state of a search (empty query, no results, results)
//   - [APIError]: structured error with type, code, param, and message
package api
