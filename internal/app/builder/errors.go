// Package builder defines domain-specific errors.
package builder

import "errors"

// Fatal build errors. Both abort the current build; the builder rejects
// further events until Reset.
var (
	// ErrUnknownEvent reports an event that is neither a call nor a return.
	ErrUnknownEvent = errors.New("event must be a call or a return")
	// ErrEventMismatch reports violated call/return nesting: the event
	// source broke its stack-matching contract.
	ErrEventMismatch = errors.New("mismatched trace events")
	// ErrOwnerConflict reports a violated current-owner invariant: more than
	// one live owner edge found for an identity. This indicates a builder or
	// collaborator bug and should never occur under correct contracts.
	ErrOwnerConflict = errors.New("output table inconsistent")
)
