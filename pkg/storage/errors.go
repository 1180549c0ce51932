package storage

import "errors"

var (
	// ErrNotFound is returned by Course for an id with no course row.
	ErrNotFound = errors.New("course not found")

	// ErrInvalidFixture wraps every validation failure of ParseFixture.
	ErrInvalidFixture = errors.New("invalid fixture")
)
