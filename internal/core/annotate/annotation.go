// Package annotate provides externally supplied structured metadata for
// functions and objects: argument and mutation roles for functions, ordered
// slot lists for objects. Each annotation carries a 3-part key (origin
// language, package, identifier) so annotations written for any language can
// be attached to captured graphs.
package annotate

import (
	"github.com/flowtrace/flowtrace/internal/core/slots"
	"github.com/flowtrace/flowtrace/internal/core/trace"
)

// Key identifies an annotation across languages and packages.
type Key struct {
	Language string `json:"language"`
	Package  string `json:"package"`
	ID       string `json:"id"`
}

// String renders the key in its canonical "language/package/id" form.
func (k Key) String() string {
	return k.Language + "/" + k.Package + "/" + k.ID
}

// IsZero reports whether the key is empty.
func (k Key) IsZero() bool {
	return k.Language == "" && k.Package == "" && k.ID == ""
}

// Role describes one declared argument of a function's domain or codomain.
// The slot names an argument (by name or position); positions surface as
// 1-based indices on ports because the ordering is language-agnostic.
type Role struct {
	Slot slots.Slot `json:"slot"`
}

// SlotDef describes one declared slot of an annotated object.
type SlotDef struct {
	Slot slots.Slot `json:"slot"`
}

// FuncAnnotation is the metadata attached to a function.
type FuncAnnotation struct {
	Key      Key
	Domain   []Role
	Codomain []Role
}

// ObjectAnnotation is the metadata attached to an object type.
type ObjectAnnotation struct {
	Key   Key
	Slots []SlotDef
}

// Annotator looks up annotations for functions and objects. A nil result
// means no annotation is available; implementations must never make lookup
// failures fatal.
type Annotator interface {
	NotateFunction(ref *trace.FuncRef) *FuncAnnotation
	NotateObject(v any) *ObjectAnnotation
}

// Nop is an Annotator that knows nothing.
type Nop struct{}

// NotateFunction always returns nil.
func (Nop) NotateFunction(*trace.FuncRef) *FuncAnnotation { return nil }

// NotateObject always returns nil.
func (Nop) NotateObject(any) *ObjectAnnotation { return nil }
