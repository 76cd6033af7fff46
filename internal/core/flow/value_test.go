package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type opaque struct{ n int }

func TestIsPrimitive(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, true},
		{"bool", true, true},
		{"int", 42, true},
		{"float", 3.14, true},
		{"string", "hello", true},
		{"slice of primitives", []any{1, "two", 3.0}, true},
		{"string-keyed map", map[string]any{"a": 1, "b": []any{2}}, true},
		{"typed slice", []int{1, 2, 3}, true},
		{"int-keyed map", map[int]string{1: "a"}, false},
		{"struct", opaque{n: 1}, false},
		{"pointer", &opaque{n: 1}, false},
		{"slice with opaque member", []any{1, opaque{}}, false},
		{"map with opaque value", map[string]any{"a": &opaque{}}, false},
		{"channel", make(chan int), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPrimitive(tt.v))
		})
	}
}

func TestIsPrimitive_CyclicValue(t *testing.T) {
	cycle := map[string]any{}
	cycle["self"] = cycle
	assert.False(t, IsPrimitive(cycle), "cycles must not recurse forever")
}

func TestCopyValue(t *testing.T) {
	original := map[string]any{
		"n":    42,
		"list": []any{"a", "b"},
		"deep": map[string]any{"k": "v"},
	}
	copied := CopyValue(original).(map[string]any)

	original["n"] = 0
	original["list"].([]any)[0] = "changed"
	original["deep"].(map[string]any)["k"] = "changed"

	assert.Equal(t, 42, copied["n"])
	assert.Equal(t, "a", copied["list"].([]any)[0])
	assert.Equal(t, "v", copied["deep"].(map[string]any)["k"])
}

func TestCopyValue_TypedContainers(t *testing.T) {
	ints := []int{1, 2, 3}
	copied := CopyValue(ints).([]any)
	ints[0] = 99
	assert.Equal(t, 1, copied[0])

	m := map[string]int{"a": 1}
	copiedMap := CopyValue(m).(map[string]any)
	m["a"] = 99
	assert.Equal(t, 1, copiedMap["a"])
}
