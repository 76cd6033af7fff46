package dto

import "errors"

// Replay wire-format errors
var (
	ErrMissingSessionID = errors.New("session ID is required")
	ErrNoEvents         = errors.New("at least one event is required")
	ErrAmbiguousEvents  = errors.New("events and chunks are mutually exclusive")
	ErrInvalidEventKind = errors.New("event kind must be call or return")
	ErrMissingQualName  = errors.New("event qualified name is required")
)
