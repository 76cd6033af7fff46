package builder

import (
	"github.com/flowtrace/flowtrace/internal/core/flow"
	"github.com/flowtrace/flowtrace/internal/core/trace"
)

// portRef locates a port on a node.
type portRef struct {
	node string
	port string
}

// callContext is the construction context for one active call on the stack.
//
// outputs is the output table for the context's graph: at any given time an
// object is the output of at most one node, i.e. there is at most one edge
// into the output sentinel carrying a particular identity. The table is
// logically redundant with the graph topology but gives constant-time
// lookup.
type callContext struct {
	event   *trace.CallEvent
	node    string
	graph   *flow.Graph
	outputs map[string]portRef
}

func newContext(event *trace.CallEvent, node string, graph *flow.Graph) *callContext {
	return &callContext{
		event:   event,
		node:    node,
		graph:   graph,
		outputs: make(map[string]portRef),
	}
}
