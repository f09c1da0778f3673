package gencache

import (
	"fmt"

	"github.com/unkn0wn-root/gencache/codec"
	"github.com/unkn0wn-root/gencache/internal/util"
)

// FingerprintFunc maps a generator to a bucket key for the indexed lookup.
// It must be consistent with Equal: Equal generators => equal fingerprints.
// Unequal generators may collide; lookups always confirm with Equal.
type FingerprintFunc[G any] func(G) (string, error)

// IdentityFunc returns the canonical encoding of a generator. It is stricter
// than a fingerprint because the result store trusts it in place of Equal:
// Equal generators MUST produce identical bytes and generators that are not
// Equal MUST NOT. An error means the generator has no identity; it is then
// never memoized and lives in the index overflow.
type IdentityFunc[G any] func(G) ([]byte, error)

// EncodedIdentity prefixes the encoding of g with its dynamic type name, so
// generators of different types never share an identity. The encoder must be
// deterministic, and Equal must compare exactly what the encoding carries:
// a nil and an empty slice that Equal treats alike must encode alike.
func EncodedIdentity[G any](enc codec.Encoder[G]) IdentityFunc[G] {
	return func(g G) ([]byte, error) {
		b, err := enc.Encode(g)
		if err != nil {
			return nil, err
		}
		t := fmt.Sprintf("%T", g)
		out := make([]byte, 0, len(t)+1+len(b))
		out = append(out, t...)
		out = append(out, 0)
		return append(out, b...), nil
	}
}

// IdentityFingerprint hashes an identity into an index bucket key.
func IdentityFingerprint[G any](id IdentityFunc[G]) FingerprintFunc[G] {
	return func(g G) (string, error) {
		b, err := id(g)
		if err != nil {
			return "", err
		}
		return util.Fingerprint(b), nil
	}
}

// EncodedFingerprint is IdentityFingerprint(EncodedIdentity(enc)).
func EncodedFingerprint[G any](enc codec.Encoder[G]) FingerprintFunc[G] {
	return IdentityFingerprint(EncodedIdentity(enc))
}
