// Package trace defines the event stream consumed by the flow graph builder:
// call and return notifications describing function invocation boundaries,
// plus the identity service that lets the same runtime value be recognized
// across events.
//
// The package does not produce events itself; an external event source
// (a tracer, a replayed recording) pushes them to a builder in arrival order.
package trace

import "strings"

// Event is a call or return notification. The two concrete shapes are
// CallEvent and ReturnEvent; anything else is a protocol error.
type Event interface {
	// FullName identifies the call across its call/return pair.
	FullName() string
}

// Argument is one named argument of a call, in declaration order.
type Argument struct {
	Name  string
	Value any
}

// FuncRef identifies the callee and, for bound methods, its receiver.
type FuncRef struct {
	Module   string
	QualName string
	// Receiver is the value the function is bound to, or nil for free
	// functions. A classmethod-style call is recognized when the receiver of
	// the callee is the argument value itself.
	Receiver any
}

// CallEvent announces that a function invocation began.
type CallEvent struct {
	QualName  string
	Module    string
	Arguments []Argument
	// Atomic is true when the call's internals will not themselves be traced.
	Atomic   bool
	Function *FuncRef
	Tracker  Identities
}

// Name returns the last dotted segment of the qualified name.
func (e *CallEvent) Name() string { return lastSegment(e.QualName) }

// FullName returns the module-qualified name of the call.
func (e *CallEvent) FullName() string { return fullName(e.Module, e.QualName) }

// Argument returns the value of the named argument.
func (e *CallEvent) Argument(name string) (any, bool) {
	for _, a := range e.Arguments {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// ReturnEvent announces that the matching invocation finished.
type ReturnEvent struct {
	QualName  string
	Module    string
	Arguments []Argument
	// Value is the return value. A Value of type Tuple is interpreted as
	// multiple return values.
	Value    any
	Function *FuncRef
	Tracker  Identities
}

// Name returns the last dotted segment of the qualified name.
func (e *ReturnEvent) Name() string { return lastSegment(e.QualName) }

// FullName returns the module-qualified name of the call.
func (e *ReturnEvent) FullName() string { return fullName(e.Module, e.QualName) }

// Argument returns the value of the named argument.
func (e *ReturnEvent) Argument(name string) (any, bool) {
	for _, a := range e.Arguments {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// Tuple marks a fixed-size collection of return values. A ReturnEvent whose
// Value is a Tuple produces one positional output port per element.
type Tuple []any

func lastSegment(qualName string) string {
	if i := strings.LastIndex(qualName, "."); i >= 0 {
		return qualName[i+1:]
	}
	return qualName
}

func fullName(module, qualName string) string {
	if module == "" {
		return qualName
	}
	return module + "." + qualName
}
