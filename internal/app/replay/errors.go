package replay

import "errors"

var (
	// ErrNoSaver indicates archiving was requested without a configured store.
	ErrNoSaver = errors.New("replay: archiving requested but no saver configured")
	// ErrUnbalancedEvents indicates a recording with unmatched call events.
	ErrUnbalancedEvents = errors.New("replay: event stream left unfinished calls")
)
