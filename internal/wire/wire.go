package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	version    byte = 2
	kindResult byte = 1
)

var (
	ErrCorrupt = errors.New("gencache: corrupt result entry")
	magic4     = [...]byte{'G', 'D', 'A', 'T'}
)

func hasMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic4[:])
}

// Result is one memoized generator output.
//
//	magic(4) | ver(1) | kind(1) | gen(u64 be) | idLen(u32 be) | id(idLen) | vlen(u32 be) | payload(vlen)
//
// Identity is the full canonical encoding of the generator the payload
// belongs to. Storage keys only carry a hash of it, so readers compare
// Identity to tell a colliding generator apart.
type Result struct {
	Gen      uint64
	Identity []byte
	Payload  []byte
}

const headerLen = 4 + 1 + 1 + 8 + 4

func EncodeResult(r Result) ([]byte, error) {
	if l := len(r.Identity); l == 0 || uint64(l) > math.MaxUint32 {
		return nil, fmt.Errorf("gencache: invalid identity length %d", l)
	}

	var buf bytes.Buffer
	buf.Grow(headerLen + len(r.Identity) + 4 + len(r.Payload))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindResult)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], r.Gen)
	buf.Write(u8[:])

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Identity)))
	buf.Write(u4[:])
	buf.Write(r.Identity)

	binary.BigEndian.PutUint32(u4[:], uint32(len(r.Payload)))
	buf.Write(u4[:])
	buf.Write(r.Payload)

	return buf.Bytes(), nil
}

// DecodeResult parses b strictly: trailing bytes are corruption.
// The returned identity and payload alias b.
func DecodeResult(b []byte) (Result, error) {
	if len(b) < headerLen || !hasMagic(b) || b[4] != version || b[5] != kindResult {
		return Result{}, ErrCorrupt
	}
	off := 6

	gen := binary.BigEndian.Uint64(b[off : off+8])
	off += 8

	idLen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if idLen == 0 || idLen > len(b)-off {
		return Result{}, ErrCorrupt
	}
	id := b[off : off+idLen]
	off += idLen

	if off+4 > len(b) {
		return Result{}, ErrCorrupt
	}
	vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if vlen != len(b)-off {
		return Result{}, ErrCorrupt
	}

	return Result{Gen: gen, Identity: id, Payload: b[off : off+vlen]}, nil
}
