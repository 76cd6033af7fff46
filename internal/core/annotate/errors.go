// Package annotate defines domain-specific errors.
package annotate

import "errors"

var (
	ErrNilDocument     = errors.New("annotation document cannot be nil")
	ErrInvalidDocument = errors.New("invalid annotation document")
)
