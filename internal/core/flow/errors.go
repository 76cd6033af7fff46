// Package flow defines domain-specific errors.
package flow

import "errors"

// Domain errors, defined once and shared across the package.
var (
	// Graph errors
	ErrMissingSentinel = errors.New("graph is missing a boundary sentinel")
	ErrDuplicateOwner  = errors.New("object identity already has a live owner")

	// Node errors
	ErrNilNode       = errors.New("node cannot be nil")
	ErrInvalidNodeID = errors.New("invalid node ID")
	ErrDuplicateNode = errors.New("duplicate node ID")
	ErrNodeNotFound  = errors.New("node not found")

	// Edge errors
	ErrNilEdge            = errors.New("edge cannot be nil")
	ErrInvalidSource      = errors.New("invalid source node")
	ErrInvalidTarget      = errors.New("invalid target node")
	ErrMissingObjectID    = errors.New("edge must carry an object identity")
	ErrSourceNodeNotFound = errors.New("source node not found")
	ErrTargetNodeNotFound = errors.New("target node not found")
)
