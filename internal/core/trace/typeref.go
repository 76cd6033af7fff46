package trace

import "reflect"

// TypeNamer lets a value override its reported type. Replayed recordings use
// this to surface the type observed in the original execution instead of the
// placeholder standing in for it.
type TypeNamer interface {
	TypeName() (module, qualName string)
}

// TypeName returns the defining module (package path) and qualified name of a
// value's runtime type, dereferencing one level of pointer. Language built-ins
// and unnamed types report an empty module.
func TypeName(v any) (module, qualName string) {
	if tn, ok := v.(TypeNamer); ok {
		return tn.TypeName()
	}
	t := reflect.TypeOf(v)
	if t == nil {
		return "", ""
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath(), t.Name()
}
