// Package serialization provides the payload pipeline for archived flow
// graphs: a pluggable codec, optional compression, and optional encryption.
package serialization

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes and decodes archive payloads.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	Name() string
}

// JSONCodec implements JSON serialization. Numeric port values decode as
// float64, which is acceptable for interchange but loses integer typing;
// prefer MessagePack for lossless storage.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Name() string {
	return "json"
}

// MsgPackCodec implements MessagePack serialization.
type MsgPackCodec struct{}

func (MsgPackCodec) Encode(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (MsgPackCodec) Decode(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (MsgPackCodec) Name() string {
	return "msgpack"
}

// NewCodec returns the codec registered under the given name, defaulting to
// MessagePack for unknown names.
func NewCodec(name string) Codec {
	if name == "json" {
		return JSONCodec{}
	}
	return MsgPackCodec{}
}
