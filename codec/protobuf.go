package codec

import "google.golang.org/protobuf/proto"

// Protobuf encodes proto messages deterministically, so equal messages
// produce equal bytes within one binary.
type Protobuf[T proto.Message] struct {
	new func() T // constructor for a concrete message (e.g., func() *mypb.Image { return &mypb.Image{} })
}

func NewProtobuf[T proto.Message](ctor func() T) Protobuf[T] {
	return Protobuf[T]{new: ctor}
}

func (c Protobuf[T]) Encode(v T) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(v)
}

func (c Protobuf[T]) Decode(b []byte) (T, error) {
	m := c.new()
	err := proto.Unmarshal(b, m)
	return m, err
}
