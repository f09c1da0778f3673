package texture

import (
	"fmt"

	"github.com/unkn0wn-root/gencache/codec"
)

// PixelFormat names the in-memory pixel layout. Only RGBA8 is produced today.
type PixelFormat uint8

const (
	RGBA8 PixelFormat = iota + 1
)

func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case RGBA8:
		return 4
	default:
		return 0
	}
}

func (f PixelFormat) String() string {
	switch f {
	case RGBA8:
		return "rgba8"
	default:
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
}

// ImageData is one decoded image.
type ImageData struct {
	Format PixelFormat `msgpack:"f"`
	Width  int         `msgpack:"w"`
	Height int         `msgpack:"h"`
	Pixels []byte      `msgpack:"p"`
}

func (d *ImageData) validate() error {
	want := d.Width * d.Height * d.Format.BytesPerPixel()
	if d.Width <= 0 || d.Height <= 0 || want == 0 || len(d.Pixels) != want {
		return fmt.Errorf("%w: %dx%d %s with %d bytes", ErrBadImage, d.Width, d.Height, d.Format, len(d.Pixels))
	}
	return nil
}

// TextureData is a texture ready for upload: one or more equally sized
// layers, each with its full mip chain.
type TextureData struct {
	Format PixelFormat `msgpack:"f"`
	Width  int         `msgpack:"w"`
	Height int         `msgpack:"h"`

	// Mips[level][layer]. Level 0 is full size; each next level halves both
	// dimensions (never below 1) down to 1x1.
	Mips [][][]byte `msgpack:"m"`
}

func (d *TextureData) Layers() int {
	if len(d.Mips) == 0 {
		return 0
	}
	return len(d.Mips[0])
}

// Size returns the total number of pixel bytes.
func (d *TextureData) Size() int {
	n := 0
	for _, lvl := range d.Mips {
		for _, layer := range lvl {
			n += len(layer)
		}
	}
	return n
}

var (
	// TextureCodec and ImageCodec serialize generated data for a result store.
	TextureCodec codec.Codec[*TextureData] = codec.Msgpack[*TextureData]{}
	ImageCodec   codec.Codec[*ImageData]   = codec.Msgpack[*ImageData]{}
)
