package codec

// Encoder serializes V to bytes. Fingerprinting only needs this half.
type Encoder[V any] interface {
	Encode(V) ([]byte, error)
}

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encoder[V]
	Decode([]byte) (V, error)
}
