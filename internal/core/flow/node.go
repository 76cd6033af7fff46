// Package flow provides node definitions for object flow graphs.
package flow

// AnnotationKind classifies how a node relates to its annotation.
type AnnotationKind string

const (
	// AnnotationFunction marks a node annotated as a plain function call.
	AnnotationFunction AnnotationKind = "function"
	// AnnotationConstruct marks a node annotated as an object constructor.
	AnnotationConstruct AnnotationKind = "construct"
	// AnnotationSlot marks a node annotated as a slot (attribute) access.
	AnnotationSlot AnnotationKind = "slot"
)

// Node is a vertex in a flow graph: one function invocation, or one
// generalized attribute (slot) read.
//
// A node created for a non-atomic call owns a nested Graph holding the calls
// made inside it. Slot nodes have no qualified name; they carry the accessed
// slot name instead.
type Node struct {
	ID              string         `json:"id"`
	QualName        string         `json:"qual_name,omitempty"`
	Module          string         `json:"module,omitempty"`
	Ports           []*Port        `json:"ports,omitempty"`
	Annotation      string         `json:"annotation,omitempty"`
	AnnotationKind  AnnotationKind `json:"annotation_kind,omitempty"`
	AnnotationIndex int            `json:"annotation_index,omitempty"`
	Slot            string         `json:"slot,omitempty"`
	Construct       bool           `json:"construct,omitempty"`
	Graph           *Graph         `json:"graph,omitempty"`
}

// Validate ensures node integrity.
func (n *Node) Validate() error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	return nil
}

// Port returns the port with the given name, or nil.
func (n *Node) Port(name string) *Port {
	for _, p := range n.Ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// SetPort appends a port, replacing any existing port with the same name in
// place. Ports share one namespace across input and output roles, so a
// mutated argument appears under two distinct names.
func (n *Node) SetPort(p *Port) {
	for i, existing := range n.Ports {
		if existing.Name == p.Name {
			n.Ports[i] = p
			return
		}
	}
	n.Ports = append(n.Ports, p)
}

// PortsOfKind returns the node's ports of the given kind, in declared order.
func (n *Node) PortsOfKind(kind PortKind) []*Port {
	var ports []*Port
	for _, p := range n.Ports {
		if p.Kind == kind {
			ports = append(ports, p)
		}
	}
	return ports
}

// IsSlot reports whether the node records a slot access rather than a call.
func (n *Node) IsSlot() bool {
	return n.Slot != ""
}

// Clone returns a deep copy of the node, including any nested graph.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := *n
	clone.Ports = make([]*Port, 0, len(n.Ports))
	for _, p := range n.Ports {
		clone.Ports = append(clone.Ports, p.Clone())
	}
	clone.Graph = n.Graph.Clone()
	return &clone
}
