// Package flow provides the object flow graph domain entities: a directed
// multigraph whose nodes are function calls (or slot accesses) and whose
// edges are individual objects identified by a stable identity.
//
// Every graph carries two sentinel node IDs. Edges leaving the input sentinel
// represent values the graph received from outside; edges entering the output
// sentinel represent the graph's currently live outputs. At most one edge per
// object identity may terminate at the output sentinel at any time.
package flow

// Graph is a directed multigraph with boundary sentinels.
//
// Nodes are keyed by ID; Order preserves insertion order so that traversals
// and serialized forms are deterministic. Parallel edges are permitted: the
// same pair of nodes may exchange several distinct objects.
type Graph struct {
	InputID  string           `json:"input_id"`
	OutputID string           `json:"output_id"`
	Nodes    map[string]*Node `json:"nodes"`
	Order    []string         `json:"order"`
	Edges    []*Edge          `json:"edges"`
}

// NewGraph creates an empty flow graph with fresh sentinel IDs.
func NewGraph() *Graph {
	return &Graph{
		InputID:  NodeName("__input__"),
		OutputID: NodeName("__output__"),
		Nodes:    make(map[string]*Node),
	}
}

// IsSentinel reports whether id names one of the graph's boundary sentinels.
func (g *Graph) IsSentinel(id string) bool {
	return id == g.InputID || id == g.OutputID
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	return g.Nodes[id]
}

// NodesInOrder returns the graph's nodes in insertion order.
func (g *Graph) NodesInOrder() []*Node {
	nodes := make([]*Node, 0, len(g.Order))
	for _, id := range g.Order {
		nodes = append(nodes, g.Nodes[id])
	}
	return nodes
}

// AddNode adds a node to the graph.
func (g *Graph) AddNode(node *Node) error {
	if node == nil {
		return ErrNilNode
	}
	if err := node.Validate(); err != nil {
		return err
	}
	if g.Nodes == nil {
		g.Nodes = make(map[string]*Node)
	}
	if _, exists := g.Nodes[node.ID]; exists {
		return ErrDuplicateNode
	}
	g.Nodes[node.ID] = node
	g.Order = append(g.Order, node.ID)
	return nil
}

// AddEdge adds an edge to the graph. Endpoints must be existing nodes or the
// graph's own sentinels.
func (g *Graph) AddEdge(edge *Edge) error {
	if edge == nil {
		return ErrNilEdge
	}
	if err := edge.Validate(); err != nil {
		return err
	}
	if _, ok := g.Nodes[edge.Source]; !ok && !g.IsSentinel(edge.Source) {
		return ErrSourceNodeNotFound
	}
	if _, ok := g.Nodes[edge.Target]; !ok && !g.IsSentinel(edge.Target) {
		return ErrTargetNodeNotFound
	}
	if edge.Target == g.OutputID {
		for _, e := range g.Edges {
			if e.Target == g.OutputID && e.ObjectID == edge.ObjectID {
				return ErrDuplicateOwner
			}
		}
	}
	g.Edges = append(g.Edges, edge)
	return nil
}

// RemoveEdge removes the given edge (by pointer identity). It reports whether
// the edge was present.
func (g *Graph) RemoveEdge(edge *Edge) bool {
	for i, e := range g.Edges {
		if e == edge {
			g.Edges = append(g.Edges[:i], g.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveNode removes a node and all edges incident to it.
func (g *Graph) RemoveNode(id string) bool {
	if _, ok := g.Nodes[id]; !ok {
		return false
	}
	delete(g.Nodes, id)
	for i, nid := range g.Order {
		if nid == id {
			g.Order = append(g.Order[:i], g.Order[i+1:]...)
			break
		}
	}
	kept := g.Edges[:0]
	for _, e := range g.Edges {
		if e.Source != id && e.Target != id {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	return true
}

// InEdges returns the edges whose target is the given node or sentinel.
func (g *Graph) InEdges(id string) []*Edge {
	var edges []*Edge
	for _, e := range g.Edges {
		if e.Target == id {
			edges = append(edges, e)
		}
	}
	return edges
}

// OutEdges returns the edges whose source is the given node or sentinel.
func (g *Graph) OutEdges(id string) []*Edge {
	var edges []*Edge
	for _, e := range g.Edges {
		if e.Source == id {
			edges = append(edges, e)
		}
	}
	return edges
}

// Owner returns the node and source port currently owning the given object
// identity: the single edge carrying that identity into the output sentinel.
func (g *Graph) Owner(objectID string) (node, port string, ok bool) {
	for _, e := range g.Edges {
		if e.Target == g.OutputID && e.ObjectID == objectID {
			return e.Source, e.SourcePort, true
		}
	}
	return "", "", false
}

// OwnedIDs returns the object identities with a live owner, in edge order.
func (g *Graph) OwnedIDs() []string {
	var ids []string
	for _, e := range g.Edges {
		if e.Target == g.OutputID {
			ids = append(ids, e.ObjectID)
		}
	}
	return ids
}

// Clone returns a deep copy of the graph, including nested graphs.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	clone := &Graph{
		InputID:  g.InputID,
		OutputID: g.OutputID,
		Nodes:    make(map[string]*Node, len(g.Nodes)),
		Order:    append([]string(nil), g.Order...),
		Edges:    make([]*Edge, 0, len(g.Edges)),
	}
	for id, node := range g.Nodes {
		clone.Nodes[id] = node.Clone()
	}
	for _, e := range g.Edges {
		clone.Edges = append(clone.Edges, e.Clone())
	}
	return clone
}

// Validate checks structural integrity: edge endpoints exist, every edge
// carries an object identity, and the current-owner invariant holds.
func (g *Graph) Validate() error {
	if g.InputID == "" || g.OutputID == "" {
		return ErrMissingSentinel
	}
	owners := make(map[string]bool)
	for _, e := range g.Edges {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, ok := g.Nodes[e.Source]; !ok && !g.IsSentinel(e.Source) {
			return ErrSourceNodeNotFound
		}
		if _, ok := g.Nodes[e.Target]; !ok && !g.IsSentinel(e.Target) {
			return ErrTargetNodeNotFound
		}
		if e.Target == g.OutputID {
			if owners[e.ObjectID] {
				return ErrDuplicateOwner
			}
			owners[e.ObjectID] = true
		}
	}
	for _, node := range g.Nodes {
		if node.Graph != nil {
			if err := node.Graph.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
