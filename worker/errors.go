package worker

import (
	"errors"
	"fmt"
)

var (
	ErrNilSource   = errors.New("worker: source is required")
	ErrNilGenerate = errors.New("worker: generate func is required")
	ErrPanic       = errors.New("worker: generator panicked")
)

// GenerateError wraps a failed generation. The generator stays pending in
// its cache and is retried on the next frame.
type GenerateError struct {
	Cache     string
	Generator string // fmt %v of the generator
	Err       error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("worker %q: generate %s: %v", e.Cache, e.Generator, e.Err)
}

func (e *GenerateError) Unwrap() error { return e.Err }
