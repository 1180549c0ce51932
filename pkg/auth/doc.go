// Package auth authenticates callers of the search API and limits how
// much they may search.
//
// Authenticators vote Accept, Reject or Abstain on a request; a Chain asks
// them in order. Credentials are bearer tokens or, as Moodle web service
// clients send them, the wstoken query parameter. An accepted Identity
// carries a course role, which selects the rate limit, and the list of
// courses it may search, enforced by the CourseAccess searcher middleware.
package auth
