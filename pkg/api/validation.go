package api

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValidationConfig holds configurable limits for request validation.
type ValidationConfig struct {
	MaxQueryLength int
}

// DefaultValidationConfig returns a ValidationConfig with sensible defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MaxQueryLength: 255,
	}
}

// ParseCourseID parses a course identifier from a request parameter. It
// returns an *APIError when the value is missing or not a positive integer.
func ParseCourseID(raw string) (int64, *APIError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, NewInvalidRequestError("courseid", "courseid is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewInvalidRequestError("courseid", "courseid must be a positive integer")
	}
	return id, nil
}

// ValidateSearchRequest checks a SearchRequest for validity. It returns an
// *APIError describing the first validation failure, or nil if the request is valid.
// An empty query is valid.
func ValidateSearchRequest(req *SearchRequest, cfg ValidationConfig) *APIError {
	if req.CourseID <= 0 {
		return NewInvalidRequestError("courseid", "courseid must be a positive integer")
	}
	if !utf8.ValidString(req.Query) {
		return NewInvalidQueryError("q must be valid UTF-8")
	}
	if cfg.MaxQueryLength > 0 && utf8.RuneCountInString(req.Query) > cfg.MaxQueryLength {
		return NewInvalidQueryError(fmt.Sprintf("q exceeds maximum of %d characters", cfg.MaxQueryLength))
	}
	return nil
}
