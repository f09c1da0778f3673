package texture

import "errors"

var (
	ErrBadImage      = errors.New("texture: invalid image")
	ErrNoLayers      = errors.New("texture: generator has no layers")
	ErrSizeMismatch  = errors.New("texture: layers differ in size")
	ErrUnknownFormat = errors.New("texture: unknown image format")
	ErrNoIdentity    = errors.New("texture: generator has no canonical form")
)
