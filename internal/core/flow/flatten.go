package flow

// Flatten recursively lifts every nested subgraph into the graph containing
// its node, eliminating nested-call boundaries while preserving all boundary
// crossings as direct edges. The result is a single-level graph equivalent to
// running only the atomic (leaf) calls directly.
//
// The input graph is not modified. Flatten is idempotent: flattening an
// already-flat graph yields an isomorphic copy.
func Flatten(g *Graph) *Graph {
	return flattenInPlace(g.Clone())
}

// flattenInPlace flattens bottom-up: a node's subgraph is fully flattened
// before being merged into its parent.
func flattenInPlace(g *Graph) *Graph {
	for _, id := range append([]string(nil), g.Order...) {
		node := g.Nodes[id]
		if node == nil || node.Graph == nil {
			continue
		}
		sub := flattenInPlace(node.Graph)
		node.Graph = nil
		inlineSubgraph(g, node, sub)
	}
	return g
}

// inlineSubgraph merges sub into g, rewiring the boundary edges of node (the
// call that owned sub) onto sub's internal endpoints, then deletes node.
func inlineSubgraph(g *Graph, node *Node, sub *Graph) {
	for _, sn := range sub.NodesInOrder() {
		g.Nodes[sn.ID] = sn
		g.Order = append(g.Order, sn.ID)
	}

	// Boundary edges of the subgraph, keyed by object identity. An identity
	// may enter through several internal consumers but is redirected at most
	// once per outer edge.
	subIn := make(map[string][]*Edge)
	subOut := make(map[string][]*Edge)
	for _, e := range sub.Edges {
		switch {
		case e.Source == sub.InputID:
			subIn[e.ObjectID] = append(subIn[e.ObjectID], e)
		case e.Target == sub.OutputID:
			subOut[e.ObjectID] = append(subOut[e.ObjectID], e)
		default:
			g.Edges = append(g.Edges, e)
		}
	}

	// Re-wire the node's incoming edges onto the subgraph's internal
	// successors of the input sentinel sharing the same identity.
	for _, e := range g.InEdges(node.ID) {
		for _, se := range subIn[e.ObjectID] {
			g.Edges = append(g.Edges, &Edge{
				Source:     e.Source,
				Target:     se.Target,
				ObjectID:   e.ObjectID,
				Annotation: firstNonEmpty(se.Annotation, e.Annotation),
				SourcePort: e.SourcePort,
				TargetPort: se.TargetPort,
			})
		}
		delete(subIn, e.ObjectID)
	}
	// Identities never supplied by the parent become the parent's own
	// boundary inputs, never silently dropped. Iterate the subgraph's edge
	// list so the result is deterministic.
	for _, se := range sub.Edges {
		if se.Source != sub.InputID {
			continue
		}
		if _, pending := subIn[se.ObjectID]; !pending {
			continue
		}
		g.Edges = append(g.Edges, &Edge{
			Source:     g.InputID,
			Target:     se.Target,
			ObjectID:   se.ObjectID,
			Annotation: se.Annotation,
			TargetPort: se.TargetPort,
		})
	}

	// Mirror the procedure for outgoing edges against the output sentinel. An
	// identity the subgraph never touched is bridged straight through from the
	// node's matching incoming edge, so pass-through objects keep their flow
	// and their owner.
	for _, e := range g.OutEdges(node.ID) {
		matches := subOut[e.ObjectID]
		if len(matches) == 0 {
			g.Edges = append(g.Edges, bridgeThrough(g, node, e))
			continue
		}
		for _, se := range matches {
			g.Edges = append(g.Edges, &Edge{
				Source:     se.Source,
				Target:     e.Target,
				ObjectID:   e.ObjectID,
				Annotation: firstNonEmpty(se.Annotation, e.Annotation),
				SourcePort: se.SourcePort,
				TargetPort: e.TargetPort,
			})
		}
		delete(subOut, e.ObjectID)
	}
	for _, se := range sub.Edges {
		if se.Target != sub.OutputID {
			continue
		}
		if _, pending := subOut[se.ObjectID]; !pending {
			continue
		}
		// The promoted edge becomes the identity's current owner. Phases merge
		// in order, so an owner edge the graph already holds for this identity
		// is superseded by the later one.
		for _, owned := range g.InEdges(g.OutputID) {
			if owned.ObjectID == se.ObjectID {
				g.RemoveEdge(owned)
			}
		}
		g.Edges = append(g.Edges, &Edge{
			Source:     se.Source,
			Target:     g.OutputID,
			ObjectID:   se.ObjectID,
			Annotation: se.Annotation,
			SourcePort: se.SourcePort,
		})
	}

	g.RemoveNode(node.ID)
}

// bridgeThrough replaces an outgoing boundary edge of an inlined node whose
// subgraph has no internal source for the identity. The bridged edge runs from
// the node's matching incoming edge's source; an identity with no incoming
// edge falls back to the boundary input.
func bridgeThrough(g *Graph, node *Node, out *Edge) *Edge {
	bridged := &Edge{
		Source:     g.InputID,
		Target:     out.Target,
		ObjectID:   out.ObjectID,
		Annotation: out.Annotation,
		TargetPort: out.TargetPort,
	}
	for _, in := range g.InEdges(node.ID) {
		if in.ObjectID == out.ObjectID {
			bridged.Source = in.Source
			bridged.SourcePort = in.SourcePort
			bridged.Annotation = firstNonEmpty(out.Annotation, in.Annotation)
			break
		}
	}
	return bridged
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
