// Package slots resolves generalized accessors ("slots") against live values.
//
// A slot is a generalized attribute: a struct field, a method taking no
// arguments, a map key, a sequence index, or a dotted chain of those. The
// interpreter is closed over exactly these kinds; an accessor that fits none
// of them resolves to ErrSlotNotFound.
package slots

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Slot is a tagged accessor: either a (possibly dotted) name or an index.
type Slot struct {
	name    string
	index   int
	isIndex bool
}

// Name creates a named slot. Dots separate chained accessor segments.
func Name(name string) Slot { return Slot{name: name} }

// Index creates a positional slot.
func Index(i int) Slot { return Slot{index: i, isIndex: true} }

// IsIndex reports whether the slot is positional.
func (s Slot) IsIndex() bool { return s.isIndex }

// NameOf returns the slot's name ("" for positional slots).
func (s Slot) NameOf() string { return s.name }

// IndexOf returns the slot's index (0 for named slots).
func (s Slot) IndexOf() int { return s.index }

// String renders the slot for diagnostics.
func (s Slot) String() string {
	if s.isIndex {
		return strconv.Itoa(s.index)
	}
	return s.name
}

// MarshalJSON renders a named slot as a string and a positional slot as an
// integer, matching the language-agnostic annotation format.
func (s Slot) MarshalJSON() ([]byte, error) {
	if s.isIndex {
		return json.Marshal(s.index)
	}
	return json.Marshal(s.name)
}

// UnmarshalJSON accepts either a string or an integer.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*s = Name(name)
		return nil
	}
	var index int
	if err := json.Unmarshal(data, &index); err == nil {
		*s = Index(index)
		return nil
	}
	return fmt.Errorf("slot must be a string or an integer: %s", string(data))
}

// Resolver resolves accessor paths against live values.
type Resolver interface {
	Resolve(v any, slot Slot) (any, error)
}

// StandardResolver is the default Resolver over Go values.
type StandardResolver struct{}

// Resolve evaluates the slot against the value. Any panic during resolution
// (bad index, nil dereference) degrades to ErrSlotNotFound.
func (StandardResolver) Resolve(v any, slot Slot) (result any, err error) {
	defer func() {
		if recover() != nil {
			result, err = nil, ErrSlotNotFound
		}
	}()
	if slot.isIndex {
		return resolveIndex(v, slot.index)
	}
	result = v
	for _, key := range strings.Split(slot.name, ".") {
		result, err = resolveSegment(result, key)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// resolveSegment resolves one chain segment: field, then zero-argument
// method, then keyed or indexed lookup.
func resolveSegment(v any, key string) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, ErrSlotNotFound
	}

	// Zero-argument single-result method, on the value or its pointer.
	if m := rv.MethodByName(key); m.IsValid() {
		if out, ok := callNullary(m); ok {
			return out, nil
		}
	}

	deref := rv
	for deref.Kind() == reflect.Pointer || deref.Kind() == reflect.Interface {
		if deref.IsNil() {
			return nil, ErrSlotNotFound
		}
		deref = deref.Elem()
	}

	switch deref.Kind() {
	case reflect.Struct:
		if f := deref.FieldByName(key); f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
		if m := deref.MethodByName(key); m.IsValid() {
			if out, ok := callNullary(m); ok {
				return out, nil
			}
		}
	case reflect.Map:
		if deref.Type().Key().Kind() == reflect.String {
			if mv := deref.MapIndex(reflect.ValueOf(key)); mv.IsValid() {
				return mv.Interface(), nil
			}
		}
	}

	// Fall back to interpreting the segment as an index.
	if i, convErr := strconv.Atoi(key); convErr == nil {
		return resolveIndex(deref.Interface(), i)
	}
	return nil, ErrSlotNotFound
}

func resolveIndex(v any, i int) (any, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, ErrSlotNotFound
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		if i < 0 || i >= rv.Len() {
			return nil, ErrSlotNotFound
		}
		return rv.Index(i).Interface(), nil
	}
	return nil, ErrSlotNotFound
}

func callNullary(m reflect.Value) (any, bool) {
	t := m.Type()
	if t.NumIn() != 0 || t.NumOut() < 1 {
		return nil, false
	}
	return m.Call(nil)[0].Interface(), true
}
