package texture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"slices"
)

// FileImageGenerator decodes a PNG, JPEG or GIF file into RGBA8.
type FileImageGenerator struct {
	Path string
}

func (g FileImageGenerator) Equal(other ImageGenerator) bool {
	o, ok := other.(FileImageGenerator)
	return ok && o.Path == g.Path
}

func (g FileImageGenerator) Generate(ctx context.Context) (*ImageData, error) {
	return decodeFile(ctx, g.Path)
}

func (g FileImageGenerator) String() string { return "file-image:" + g.Path }

func (g FileImageGenerator) Canonical() any {
	return struct {
		Kind string `cbor:"k"`
		Path string `cbor:"path"`
	}{"file-image", g.Path}
}

// RawImageGenerator wraps pixels that are already in memory. Generate copies
// them, so the generator may be reused after the data is assigned.
type RawImageGenerator struct {
	Format PixelFormat
	Width  int
	Height int
	Pixels []byte
}

func (g RawImageGenerator) Equal(other ImageGenerator) bool {
	o, ok := other.(RawImageGenerator)
	return ok &&
		o.Format == g.Format &&
		o.Width == g.Width &&
		o.Height == g.Height &&
		bytes.Equal(o.Pixels, g.Pixels)
}

func (g RawImageGenerator) Generate(ctx context.Context) (*ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := &ImageData{Format: g.Format, Width: g.Width, Height: g.Height, Pixels: bytes.Clone(g.Pixels)}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (g RawImageGenerator) String() string {
	return fmt.Sprintf("raw-image:%dx%d:%s", g.Width, g.Height, g.Format)
}

// Canonical encodes nil and empty Pixels alike, as Equal compares them.
func (g RawImageGenerator) Canonical() any {
	px := g.Pixels
	if px == nil {
		px = []byte{}
	}
	return struct {
		Kind   string      `cbor:"k"`
		Format PixelFormat `cbor:"format"`
		Width  int         `cbor:"w"`
		Height int         `cbor:"h"`
		Pixels []byte      `cbor:"px"`
	}{"raw-image", g.Format, g.Width, g.Height, px}
}

// FileTextureGenerator builds a texture from one file per layer. All layers
// must decode to the same size.
type FileTextureGenerator struct {
	Paths   []string
	Mipmaps bool
}

func (g FileTextureGenerator) Equal(other TextureGenerator) bool {
	o, ok := other.(FileTextureGenerator)
	return ok && o.Mipmaps == g.Mipmaps && slices.Equal(o.Paths, g.Paths)
}

func (g FileTextureGenerator) Generate(ctx context.Context) (*TextureData, error) {
	if len(g.Paths) == 0 {
		return nil, ErrNoLayers
	}
	layers := make([]*ImageData, 0, len(g.Paths))
	for _, p := range g.Paths {
		img, err := decodeFile(ctx, p)
		if err != nil {
			return nil, err
		}
		if len(layers) > 0 && (img.Width != layers[0].Width || img.Height != layers[0].Height) {
			return nil, fmt.Errorf("%w: %s is %dx%d, want %dx%d",
				ErrSizeMismatch, p, img.Width, img.Height, layers[0].Width, layers[0].Height)
		}
		layers = append(layers, img)
	}
	return buildTexture(layers, g.Mipmaps), nil
}

func (g FileTextureGenerator) String() string {
	return fmt.Sprintf("file-texture:%v", g.Paths)
}

// Canonical encodes nil and empty Paths alike, as Equal compares them.
func (g FileTextureGenerator) Canonical() any {
	paths := g.Paths
	if paths == nil {
		paths = []string{}
	}
	return struct {
		Kind    string   `cbor:"k"`
		Paths   []string `cbor:"paths"`
		Mipmaps bool     `cbor:"mips"`
	}{"file-texture", paths, g.Mipmaps}
}

func decodeFile(ctx context.Context, path string) (*ImageData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
		}
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	bounds := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return &ImageData{Format: RGBA8, Width: dst.Rect.Dx(), Height: dst.Rect.Dy(), Pixels: dst.Pix}, nil
}
