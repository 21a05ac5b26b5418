package executor

import "encoding/json"

// Codec is the injected result-encoding strategy: the engine only ever sees
// opaque bytes, letting stages exchange richer types without the engine
// needing to understand them.
type Codec interface {
	Encode(v any) ([]byte, error)
}

// JSONCodec is the default Codec, using encoding/json.
type JSONCodec struct{}

// Encode implements Codec.
func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}
