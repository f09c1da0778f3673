package codec

import (
	"errors"
	"fmt"
)

var ErrPayloadTooLarge = errors.New("codec: payload too large")

// LimitCodec wraps another codec to enforce a maximum payload size at
// Decode time. Encode is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
//
// Typical use: a result store shared with other processes, where a
// decoded image should never exceed what the pipeline can upload.
type LimitCodec[V any] struct {
	Inner     Codec[V]
	MaxDecode int // bytes
}

func (c LimitCodec[V]) Encode(v V) ([]byte, error) { return c.Inner.Encode(v) }
func (c LimitCodec[V]) Decode(b []byte) (V, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		var zero V
		return zero, fmt.Errorf("%w: %d > %d", ErrPayloadTooLarge, len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}
