package flow

// Join concatenates two graphs captured as sequential phases of one logical
// execution, second strictly following first in time.
//
// Boundary inputs of the second graph whose identity is owned by the first
// graph are replaced by direct edges from the first graph's owning node and
// port, causally linking the phases. Ownership of every identity ends up in
// the second graph's state; identities exclusive to the first graph carry
// forward unchanged. The ownership lookup is root-level only: nested graphs
// of the first phase are never consulted.
//
// Neither input is modified. Join is associative: chunked captures of one
// session reassemble to the same graph as one unbroken capture.
func Join(first, second *Graph) *Graph {
	g := first.Clone()
	s := second.Clone()

	// Owner edges of the first phase, fixed before any rewiring.
	owners := make(map[string]*Edge)
	for _, e := range g.Edges {
		if e.Target == g.OutputID {
			owners[e.ObjectID] = e
		}
	}

	for _, sn := range s.NodesInOrder() {
		g.Nodes[sn.ID] = sn
		g.Order = append(g.Order, sn.ID)
	}

	for _, e := range s.Edges {
		switch {
		case e.Source == s.InputID:
			if owner, ok := owners[e.ObjectID]; ok {
				g.Edges = append(g.Edges, &Edge{
					Source:     owner.Source,
					Target:     e.Target,
					ObjectID:   e.ObjectID,
					Annotation: firstNonEmpty(e.Annotation, owner.Annotation),
					SourcePort: owner.SourcePort,
					TargetPort: e.TargetPort,
				})
			} else {
				e.Source = g.InputID
				g.Edges = append(g.Edges, e)
			}
		case e.Target == s.OutputID:
			// The second phase supersedes the first as current owner.
			if owner, ok := owners[e.ObjectID]; ok {
				g.RemoveEdge(owner)
			}
			e.Target = g.OutputID
			g.Edges = append(g.Edges, e)
		default:
			g.Edges = append(g.Edges, e)
		}
	}
	return g
}
