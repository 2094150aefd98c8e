package xdispatch

import "encoding/json"

// Codec encodes event payloads for the broker envelope.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// JSONCodec is the default JSON implementation. Only the declared,
// exported fields of an event are serialized; the embedded timestamp
// base is transient bookkeeping and stays out of the payload.
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec) Unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
func (JSONCodec) Name() string                    { return "json" }
