// Package flow provides port definitions for object flow graphs.
package flow

// PortKind distinguishes input ports from output ports.
type PortKind string

const (
	// PortInput marks a port receiving a value into a node.
	PortInput PortKind = "input"
	// PortOutput marks a port producing a value out of a node.
	PortOutput PortKind = "output"
)

// TypeRef describes a runtime type that is not a language built-in.
type TypeRef struct {
	Module   string `json:"module"`
	QualName string `json:"qual_name"`
}

// Port is a named input or output slot on a node.
//
// A port may carry any combination of: the object's identity (if tracked), a
// deep copy of the value (only if primitive), a type descriptor (only if the
// type is not built-in), and an annotation key with a 1-based position index
// into the annotation's declared argument or slot ordering. The index is
// 1-based because the annotation format is language-agnostic.
type Port struct {
	Name            string   `json:"name"`
	ArgName         string   `json:"arg_name,omitempty"`
	Kind            PortKind `json:"kind"`
	ObjectID        string   `json:"object_id,omitempty"`
	Value           *Value   `json:"value,omitempty"`
	Type            *TypeRef `json:"type,omitempty"`
	Annotation      string   `json:"annotation,omitempty"`
	AnnotationIndex int      `json:"annotation_index,omitempty"`
}

// Value wraps a deep-copied primitive captured on a port. The wrapper
// distinguishes "no value captured" (nil *Value) from a captured nil.
type Value struct {
	Data any `json:"data"`
}

// Clone returns a deep copy of the port.
func (p *Port) Clone() *Port {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Value != nil {
		clone.Value = &Value{Data: CopyValue(p.Value.Data)}
	}
	if p.Type != nil {
		t := *p.Type
		clone.Type = &t
	}
	return &clone
}
