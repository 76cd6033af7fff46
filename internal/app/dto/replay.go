// Package dto defines the wire shapes for replaying recorded trace events.
package dto

import (
	"time"

	"github.com/flowtrace/flowtrace/internal/core/flow"
)

// EventKind discriminates recorded events.
type EventKind string

const (
	EventKindCall   EventKind = "call"
	EventKindReturn EventKind = "return"
)

// ValueRef is a recorded value: either a stable object reference assigned by
// the recorder, or an inline literal for untrackable data. Exactly one of Ref
// and Value is meaningful; a reference wins when both are present.
type ValueRef struct {
	Ref   string `json:"ref,omitempty"`
	Value any    `json:"value,omitempty"`
	// Type records the runtime type observed at capture time, for
	// referenced objects whose type is not a language built-in.
	Type *flow.TypeRef `json:"type,omitempty"`
	// Tuple marks a fixed-size multi-value return.
	Tuple []ValueRef `json:"tuple,omitempty"`
}

// IsTuple reports whether the value is a multi-value return.
func (v ValueRef) IsTuple() bool { return len(v.Tuple) > 0 }

// Argument is one named call argument in declaration order.
type Argument struct {
	Name  string   `json:"name"`
	Value ValueRef `json:"value"`
}

// Event is one recorded call or return.
type Event struct {
	Kind      EventKind  `json:"kind"`
	QualName  string     `json:"qual_name"`
	Module    string     `json:"module,omitempty"`
	Atomic    bool       `json:"atomic,omitempty"`
	Arguments []Argument `json:"arguments,omitempty"`
	// Return holds the return value for return events.
	Return *ValueRef `json:"return,omitempty"`
	// Receiver references the object a bound method was called on, when the
	// recorder observed one.
	Receiver *ValueRef `json:"receiver,omitempty"`
	// BoundMethod marks a return whose value is itself a bound method, such
	// as an attribute access resolving to a method.
	BoundMethod bool `json:"bound_method,omitempty"`
}

// Validate checks the event's wire-level integrity.
func (e *Event) Validate() error {
	switch e.Kind {
	case EventKindCall, EventKindReturn:
	default:
		return ErrInvalidEventKind
	}
	if e.QualName == "" {
		return ErrMissingQualName
	}
	return nil
}

// ReplayRequest asks for a recorded event stream to be rebuilt into a flow
// graph.
type ReplayRequest struct {
	SessionID string  `json:"session_id"`
	Events    []Event `json:"events"`
	// Chunks holds pre-split event sequences to be replayed independently
	// and joined in order. Mutually exclusive with Events.
	Chunks [][]Event `json:"chunks,omitempty"`
	// Flatten inlines nested call graphs in the result.
	Flatten bool `json:"flatten,omitempty"`
	// Archive persists the resulting graph.
	Archive bool `json:"archive,omitempty"`
	// StoreSlots enables slot expansion of annotated objects.
	StoreSlots *bool `json:"store_slots,omitempty"`
}

// Validate checks the request and its events.
func (req *ReplayRequest) Validate() error {
	if req.SessionID == "" {
		return ErrMissingSessionID
	}
	if len(req.Events) == 0 && len(req.Chunks) == 0 {
		return ErrNoEvents
	}
	if len(req.Events) > 0 && len(req.Chunks) > 0 {
		return ErrAmbiguousEvents
	}
	for i := range req.Events {
		if err := req.Events[i].Validate(); err != nil {
			return err
		}
	}
	for _, chunk := range req.Chunks {
		for i := range chunk {
			if err := chunk[i].Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReplayResponse carries the rebuilt graph and replay statistics.
type ReplayResponse struct {
	SessionID string        `json:"session_id"`
	Graph     *flow.Graph   `json:"graph"`
	Events    int           `json:"events"`
	Nodes     int           `json:"nodes"`
	Edges     int           `json:"edges"`
	ArchiveID string        `json:"archive_id,omitempty"`
	Duration  time.Duration `json:"duration"`
}
