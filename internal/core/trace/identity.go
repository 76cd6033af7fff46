package trace

import (
	"reflect"

	"github.com/google/uuid"
)

// Identities assigns stable identities to trackable values. Trackable values
// are those with stable reference semantics; opaque or by-value data cannot
// be recognized across events and gets no identity.
type Identities interface {
	// ID returns the identity previously assigned to a value, or "" if the
	// value is untrackable or has not been tracked.
	ID(v any) string
	// IsTrackable reports whether a value can carry an identity at all.
	IsTrackable(v any) bool
	// Track assigns an identity to a trackable value. It is idempotent for
	// the value's lifetime and returns "" for untrackable values.
	Track(v any) string
}

// Tracker is the in-memory Identities implementation: uuid identities keyed
// by reference. One tracker serves one traced execution; trackers share no
// state, so concurrent executions each get their own.
type Tracker struct {
	ids map[any]string
}

// NewTracker creates an empty identity tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[any]string)}
}

// IsTrackable reports whether the value has stable reference semantics.
// Pointers and channels qualify. Slices, arrays, maps and scalars do not:
// they play the role of untrackable containers whose contents are recovered
// by the hidden-referent scan instead.
func (t *Tracker) IsTrackable(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.ValueOf(v).Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return true
	}
	return false
}

// ID returns the identity of a tracked value, or "".
func (t *Tracker) ID(v any) string {
	if !t.IsTrackable(v) {
		return ""
	}
	return t.ids[v]
}

// Track assigns an identity to the value if it does not have one yet.
func (t *Tracker) Track(v any) string {
	if !t.IsTrackable(v) {
		return ""
	}
	if id, ok := t.ids[v]; ok {
		return id
	}
	id := uuid.NewString()
	t.ids[v] = id
	return id
}
