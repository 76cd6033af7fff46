// Package slots defines domain-specific errors.
package slots

import "errors"

var (
	// ErrSlotNotFound reports that an accessor path could not be resolved
	// against the value. Callers treat it as "slot absent", never fatal.
	ErrSlotNotFound = errors.New("slot not found")
)
