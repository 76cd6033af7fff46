package builder

import (
	"github.com/flowtrace/flowtrace/internal/core/annotate"
	"github.com/flowtrace/flowtrace/internal/core/trace"
)

// mutatingMethods are special names that always mutate their receiver.
var mutatingMethods = map[string]bool{
	"__init__":    true,
	"__setattr__": true,
	"__setitem__": true,
}

// isPure decides whether the call is pure with respect to one argument.
//
// Purity is declared, never inferred from observed data: a call is impure
// towards an argument only if the callee is an identity-mutating special
// method and the argument is the receiver, or the function's annotation
// explicitly lists the argument in its codomain. Everything else is assumed
// pure — assuming mutating semantics by default would flood the graph with
// false mutation edges for ordinary read-only calls.
func (b *Builder) isPure(event *trace.ReturnEvent, annotation *annotate.FuncAnnotation, argName string) bool {
	if mutatingMethods[event.Name()] && argName == "self" {
		return false
	}
	if annotation == nil {
		return true
	}
	io := returnIO(event)
	for _, role := range annotation.Codomain {
		if io.roleName(role.Slot) == argName {
			return false
		}
	}
	return true
}
