package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a Codec that serializes values using vmihailenco/msgpack/v5.
// The zero value is ready to use.
//
// Msgpack is compact and fast; be mindful of struct tag differences vs JSON.
// Use `msgpack:"fieldName"` tags if you need explicit control.
// Set SortMapKeys when the output feeds a fingerprint.
type Msgpack[V any] struct {
	SortMapKeys bool
}

func (m Msgpack[V]) Encode(v V) ([]byte, error) {
	if !m.SortMapKeys {
		return msgpack.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	err := msgpack.Unmarshal(b, &v)
	return v, err
}
