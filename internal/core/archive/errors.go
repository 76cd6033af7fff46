// Package archive defines domain-specific errors.
package archive

import "errors"

// Domain errors, defined once and shared across implementations.
var (
	// Archive validation errors
	ErrInvalidArchiveID = errors.New("invalid archive ID")
	ErrInvalidSessionID = errors.New("invalid session ID")
	ErrNilGraph         = errors.New("archive graph cannot be nil")
	ErrArchiveNotFound  = errors.New("archive not found")

	// Filter validation errors
	ErrInvalidLimit     = errors.New("limit cannot be negative")
	ErrInvalidOffset    = errors.New("offset cannot be negative")
	ErrInvalidTimeRange = errors.New("invalid time range: since is after before")
)
