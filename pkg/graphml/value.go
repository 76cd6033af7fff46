package graphml

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/flowtrace/flowtrace/internal/core/flow"
)

// taggedValue is the wire form of a captured port value. Scalars carry their
// exact Go type in Kind and a string rendering in Value, so integers survive
// the round trip without degrading to floating point; containers recurse.
type taggedValue struct {
	Kind   string                 `json:"kind"`
	Value  string                 `json:"value,omitempty"`
	Items  []taggedValue          `json:"items,omitempty"`
	Fields map[string]taggedValue `json:"fields,omitempty"`
}

// encodeValue renders a port value as tagged JSON. The value is canonicalized
// first, so typed containers surface as []any / map[string]any the same way
// captured port data does.
func encodeValue(v any) (string, error) {
	tv, err := tagValue(flow.CopyValue(v))
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(tv)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeValue parses a tagged JSON port value written by encodeValue.
func decodeValue(raw string) (any, error) {
	var tv taggedValue
	if err := json.Unmarshal([]byte(raw), &tv); err != nil {
		return nil, err
	}
	return untagValue(tv)
}

func tagValue(v any) (taggedValue, error) {
	switch val := v.(type) {
	case nil:
		return taggedValue{Kind: "nil"}, nil
	case bool:
		return taggedValue{Kind: "bool", Value: strconv.FormatBool(val)}, nil
	case string:
		return taggedValue{Kind: "string", Value: val}, nil
	case int:
		return taggedValue{Kind: "int", Value: strconv.FormatInt(int64(val), 10)}, nil
	case int8:
		return taggedValue{Kind: "int8", Value: strconv.FormatInt(int64(val), 10)}, nil
	case int16:
		return taggedValue{Kind: "int16", Value: strconv.FormatInt(int64(val), 10)}, nil
	case int32:
		return taggedValue{Kind: "int32", Value: strconv.FormatInt(int64(val), 10)}, nil
	case int64:
		return taggedValue{Kind: "int64", Value: strconv.FormatInt(val, 10)}, nil
	case uint:
		return taggedValue{Kind: "uint", Value: strconv.FormatUint(uint64(val), 10)}, nil
	case uint8:
		return taggedValue{Kind: "uint8", Value: strconv.FormatUint(uint64(val), 10)}, nil
	case uint16:
		return taggedValue{Kind: "uint16", Value: strconv.FormatUint(uint64(val), 10)}, nil
	case uint32:
		return taggedValue{Kind: "uint32", Value: strconv.FormatUint(uint64(val), 10)}, nil
	case uint64:
		return taggedValue{Kind: "uint64", Value: strconv.FormatUint(val, 10)}, nil
	case float32:
		return taggedValue{Kind: "float32", Value: strconv.FormatFloat(float64(val), 'g', -1, 32)}, nil
	case float64:
		return taggedValue{Kind: "float64", Value: strconv.FormatFloat(val, 'g', -1, 64)}, nil
	case []any:
		items := make([]taggedValue, 0, len(val))
		for _, e := range val {
			te, err := tagValue(e)
			if err != nil {
				return taggedValue{}, err
			}
			items = append(items, te)
		}
		return taggedValue{Kind: "list", Items: items}, nil
	case map[string]any:
		fields := make(map[string]taggedValue, len(val))
		for k, e := range val {
			te, err := tagValue(e)
			if err != nil {
				return taggedValue{}, err
			}
			fields[k] = te
		}
		return taggedValue{Kind: "object", Fields: fields}, nil
	}
	return taggedValue{}, fmt.Errorf("unsupported port value type %T", v)
}

func untagValue(tv taggedValue) (any, error) {
	switch tv.Kind {
	case "nil":
		return nil, nil
	case "bool":
		return strconv.ParseBool(tv.Value)
	case "string":
		return tv.Value, nil
	case "int":
		n, err := strconv.ParseInt(tv.Value, 10, 0)
		return int(n), err
	case "int8":
		n, err := strconv.ParseInt(tv.Value, 10, 8)
		return int8(n), err
	case "int16":
		n, err := strconv.ParseInt(tv.Value, 10, 16)
		return int16(n), err
	case "int32":
		n, err := strconv.ParseInt(tv.Value, 10, 32)
		return int32(n), err
	case "int64":
		return strconv.ParseInt(tv.Value, 10, 64)
	case "uint":
		n, err := strconv.ParseUint(tv.Value, 10, 0)
		return uint(n), err
	case "uint8":
		n, err := strconv.ParseUint(tv.Value, 10, 8)
		return uint8(n), err
	case "uint16":
		n, err := strconv.ParseUint(tv.Value, 10, 16)
		return uint16(n), err
	case "uint32":
		n, err := strconv.ParseUint(tv.Value, 10, 32)
		return uint32(n), err
	case "uint64":
		return strconv.ParseUint(tv.Value, 10, 64)
	case "float32":
		f, err := strconv.ParseFloat(tv.Value, 32)
		return float32(f), err
	case "float64":
		return strconv.ParseFloat(tv.Value, 64)
	case "list":
		items := make([]any, 0, len(tv.Items))
		for _, te := range tv.Items {
			e, err := untagValue(te)
			if err != nil {
				return nil, err
			}
			items = append(items, e)
		}
		return items, nil
	case "object":
		fields := make(map[string]any, len(tv.Fields))
		for k, te := range tv.Fields {
			e, err := untagValue(te)
			if err != nil {
				return nil, err
			}
			fields[k] = e
		}
		return fields, nil
	}
	return nil, fmt.Errorf("unknown value kind %q", tv.Kind)
}
