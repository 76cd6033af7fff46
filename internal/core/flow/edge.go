// Package flow provides edge definitions for object flow graphs.
package flow

// Edge records one object passing between two nodes (or a node and a
// sentinel). Every edge denotes exactly one object transfer, so an edge
// without an object identity cannot exist.
type Edge struct {
	Source     string `json:"source"`
	Target     string `json:"target"`
	ObjectID   string `json:"object_id"`
	Annotation string `json:"annotation,omitempty"`
	SourcePort string `json:"source_port,omitempty"`
	TargetPort string `json:"target_port,omitempty"`
}

// Validate ensures edge integrity.
func (e *Edge) Validate() error {
	if e.Source == "" {
		return ErrInvalidSource
	}
	if e.Target == "" {
		return ErrInvalidTarget
	}
	if e.ObjectID == "" {
		return ErrMissingObjectID
	}
	return nil
}

// Clone returns a copy of the edge.
func (e *Edge) Clone() *Edge {
	if e == nil {
		return nil
	}
	clone := *e
	return &clone
}
