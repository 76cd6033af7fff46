package trace

import "reflect"

// HiddenReferents finds tracked values referenced indirectly through an
// untrackable container (slice, array, or map). Event sources cannot see
// inside container literals, so objects carried by them are hidden from the
// builder; this scan recovers them.
//
// The scan is best effort: it walks one level of direct members (map keys and
// values included) and guarantees no particular order over the discovered
// referents.
func HiddenReferents(ids Identities, v any) []any {
	if v == nil || ids.IsTrackable(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	var found []any
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			found = appendTracked(ids, found, rv.Index(i))
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			found = appendTracked(ids, found, iter.Key())
			found = appendTracked(ids, found, iter.Value())
		}
	}
	return found
}

func appendTracked(ids Identities, found []any, rv reflect.Value) []any {
	if !rv.CanInterface() {
		return found
	}
	member := rv.Interface()
	if ids.ID(member) != "" {
		found = append(found, member)
	}
	return found
}
