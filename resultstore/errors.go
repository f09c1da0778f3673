package resultstore

import (
	"errors"
	"fmt"
)

var (
	ErrNoProvider  = errors.New("resultstore: provider is required")
	ErrNoCodec     = errors.New("resultstore: codec is required")
	ErrNoNamespace = errors.New("resultstore: namespace is required")
	ErrNoIdentity  = errors.New("resultstore: empty generator identity")
)

// InvalidateError reports which half of an Invalidate failed.
type InvalidateError struct {
	Key     string
	BumpErr error
	DelErr  error
}

func (e *InvalidateError) Error() string {
	switch {
	case e.BumpErr != nil && e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump and delete failed: bump=%v; delete=%v",
			e.Key, e.BumpErr, e.DelErr)
	case e.BumpErr != nil:
		return fmt.Sprintf("invalidate %q: gen bump failed: %v", e.Key, e.BumpErr)
	case e.DelErr != nil:
		return fmt.Sprintf("invalidate %q: delete failed: %v", e.Key, e.DelErr)
	default:
		return fmt.Sprintf("invalidate %q: unknown error", e.Key)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.BumpErr != nil {
		errs = append(errs, e.BumpErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
