package flow

import "reflect"

// IsPrimitive reports whether a value qualifies as primitive: finite,
// self-contained and serializable to a generic value format. The policy
// accepts booleans, numbers, strings, nil, and built-in containers (slices,
// arrays, string-keyed maps) whose contents are themselves primitive.
//
// Only primitive values are captured as port "value" data; everything else is
// carried by identity alone.
func IsPrimitive(v any) bool {
	return isPrimitive(reflect.ValueOf(v), 0)
}

// Generous bound on container nesting, guarding against cyclic values.
const maxPrimitiveDepth = 32

func isPrimitive(rv reflect.Value, depth int) bool {
	if depth > maxPrimitiveDepth {
		return false
	}
	if !rv.IsValid() {
		return true // nil
	}
	switch rv.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !isPrimitive(elem(rv.Index(i)), depth+1) {
				return false
			}
		}
		return true
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return false
		}
		iter := rv.MapRange()
		for iter.Next() {
			if !isPrimitive(elem(iter.Value()), depth+1) {
				return false
			}
		}
		return true
	case reflect.Interface:
		return isPrimitive(rv.Elem(), depth)
	default:
		return false
	}
}

// CopyValue deep-copies a primitive value. The copy is independent of the
// live traced object, so captured port data stays valid after the traced
// objects are freed. Non-primitive values are returned unchanged; callers
// gate on IsPrimitive first.
func CopyValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = CopyValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = CopyValue(e)
		}
		return out
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = CopyValue(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = CopyValue(iter.Value().Interface())
		}
		return out
	}
	return v
}

func elem(rv reflect.Value) reflect.Value {
	for rv.Kind() == reflect.Interface && !rv.IsNil() {
		rv = rv.Elem()
	}
	return rv
}
