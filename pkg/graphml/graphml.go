// Package graphml reads and writes object flow graphs in GraphML, the
// interchange format used by downstream visualization tools. A flow graph is
// wrapped in a synthetic root node whose output ports mirror the graph's
// annotated live outputs; nested call graphs appear as node-attached
// subgraphs.
package graphml

import (
	"github.com/flowtrace/flowtrace/internal/core/flow"
)

// RootNodeID names the synthetic wrapper node.
const RootNodeID = "__root__"

// Options configures document construction.
type Options struct {
	// Simplify collapses the live boundary outputs to the single most
	// recently annotated one. Visualization front-ends usually want one
	// result per captured expression, not every intermediate still owned
	// at capture end.
	Simplify bool
}

// Document is a flow graph prepared for interchange: the captured graph
// nested under a synthetic root node carrying the boundary output ports.
type Document struct {
	Root *flow.Node
}

// FromGraph wraps a flow graph in an interchange document. The graph is
// deep-copied; the caller's graph is never modified, even with Simplify set.
func FromGraph(g *flow.Graph, opts Options) *Document {
	g = g.Clone()
	if opts.Simplify {
		simplifyOutputs(g)
	}
	root := &flow.Node{
		ID:    RootNodeID,
		Graph: g,
	}
	for _, e := range g.InEdges(g.OutputID) {
		if e.Annotation == "" {
			continue
		}
		name := e.SourcePort
		if name == "" {
			name = e.ObjectID
		}
		root.SetPort(&flow.Port{
			Name:       name,
			Kind:       flow.PortOutput,
			ObjectID:   e.ObjectID,
			Annotation: e.Annotation,
		})
	}
	return &Document{Root: root}
}

// Graph returns the document's flow graph.
func (d *Document) Graph() *flow.Graph {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Graph
}

// simplifyOutputs removes all output-sentinel edges except the most recently
// added annotated one. Edge order is insertion order, so the last annotated
// edge is the most recent.
func simplifyOutputs(g *flow.Graph) {
	var keep *flow.Edge
	for _, e := range g.Edges {
		if e.Target == g.OutputID && e.Annotation != "" {
			keep = e
		}
	}
	if keep == nil {
		return
	}
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.Target == g.OutputID && e != keep {
			continue
		}
		kept = append(kept, e)
	}
	g.Edges = kept
}
