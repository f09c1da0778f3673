package gencache

import (
	"errors"
	"fmt"
)

// ErrNilData is logged when AssignData is handed a nil data handle. Nil means
// "no data yet", so the entry is left as it was.
var ErrNilData = errors.New("gencache: nil data")

// UnknownGeneratorError describes an operation that referenced a generator
// with no entry. The cache never returns it; it is the payload of the
// diagnostic logged when AssignData misses.
type UnknownGeneratorError struct {
	Cache string
	Op    string
}

func (e *UnknownGeneratorError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("gencache %q: unknown generator", e.Cache)
	}
	return fmt.Sprintf("gencache %q: %s: unknown generator", e.Cache, e.Op)
}
