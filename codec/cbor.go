package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOROptions select the encode and decode modes of a CBOR codec.
type CBOROptions struct {
	// Deterministic selects RFC 8949 Core Deterministic encoding: equal
	// values always produce the same bytes. Generator fingerprints need it.
	Deterministic bool

	// Strict rejects duplicate map keys and fields unknown to V on decode.
	// Use it for result store payloads written by other processes.
	Strict bool
}

// CBOR is a Codec built on fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
type CBOR[V any] struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec[struct{}] = CBOR[struct{}]{}

func NewCBOR[V any](opts CBOROptions) (CBOR[V], error) {
	eo := cbor.PreferredUnsortedEncOptions()
	if opts.Deterministic {
		eo = cbor.CoreDetEncOptions()
	}
	eo.Time = cbor.TimeRFC3339Nano

	var do cbor.DecOptions
	if opts.Strict {
		do.DupMapKey = cbor.DupMapKeyEnforcedAPF
		do.ExtraReturnErrors = cbor.ExtraDecErrorUnknownField
	}

	em, err := eo.EncMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	dm, err := do.DecMode()
	if err != nil {
		return CBOR[V]{}, err
	}
	return CBOR[V]{enc: em, dec: dm}, nil
}

// MustCBOR is NewCBOR for package-level variables. It panics only on
// option combinations the cbor package rejects, which CBOROptions cannot
// express.
func MustCBOR[V any](opts CBOROptions) CBOR[V] {
	c, err := NewCBOR[V](opts)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR[V]) Encode(v V) ([]byte, error) { return c.enc.Marshal(v) }

func (c CBOR[V]) Decode(b []byte) (V, error) {
	var v V
	err := c.dec.Unmarshal(b, &v)
	return v, err
}
