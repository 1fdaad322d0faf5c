package cache

import "encoding/json"

// BytesCodec is the identity Codec for handlers whose Resp is already
// []byte.
type BytesCodec struct{}

// Encode returns b unchanged.
func (BytesCodec) Encode(b []byte) ([]byte, error) { return b, nil }

// Decode returns b unchanged.
func (BytesCodec) Decode(b []byte) ([]byte, error) { return b, nil }

// JSONCodec encodes/decodes Resp as JSON, for handlers whose response is
// a struct rather than raw bytes.
type JSONCodec[Resp any] struct{}

// Encode marshals resp as JSON.
func (JSONCodec[Resp]) Encode(resp Resp) ([]byte, error) {
	return json.Marshal(resp)
}

// Decode unmarshals b into a new Resp.
func (JSONCodec[Resp]) Decode(b []byte) (Resp, error) {
	var resp Resp
	err := json.Unmarshal(b, &resp)
	return resp, err
}

var (
	_ Codec[[]byte] = BytesCodec{}
	_ Codec[string] = JSONCodec[string]{}
)
