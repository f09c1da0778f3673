// Package texture binds gencache to the two kinds of render data: whole
// textures, referenced by the Texture resource that consumes them, and
// single images, referenced by the stable id of the scene node that owns them.
package texture

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/unkn0wn-root/gencache"
	"github.com/unkn0wn-root/gencache/codec"
	"github.com/unkn0wn-root/gencache/internal/util"
)

// TextureGenerator describes how to build one texture.
type TextureGenerator interface {
	Equal(other TextureGenerator) bool
	Generate(ctx context.Context) (*TextureData, error)
}

// ImageGenerator describes how to build one image.
type ImageGenerator interface {
	Equal(other ImageGenerator) bool
	Generate(ctx context.Context) (*ImageData, error)
}

// NodeID is the stable identity of an image node.
type NodeID = uuid.UUID

func NewNodeID() NodeID { return uuid.Must(uuid.NewV7()) }

type (
	DataManager      = gencache.Cache[TextureGenerator, *TextureData, *Texture]
	ImageDataManager = gencache.Cache[ImageGenerator, *ImageData, NodeID]
)

// Canonical is implemented by generators that can describe themselves as a
// plain value. Two generators are Equal exactly when their canonical values
// encode to the same bytes, so the canonical form must normalize whatever
// Equal ignores (a nil slice versus an empty one) and name its own kind.
type Canonical interface {
	Canonical() any
}

var canonicalCodec = codec.MustCBOR[any](codec.CBOROptions{Deterministic: true})

func identity(g any) ([]byte, error) {
	c, ok := g.(Canonical)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrNoIdentity, g)
	}
	return canonicalCodec.Encode(c.Canonical())
}

// TextureIdentity and ImageIdentity encode the canonical form of a
// generator. Generators without one return ErrNoIdentity: they still work in
// the managers (lookups fall back to Equal) but are never memoized.
func TextureIdentity(g TextureGenerator) ([]byte, error) { return identity(g) }
func ImageIdentity(g ImageGenerator) ([]byte, error)     { return identity(g) }

var (
	// TextureFingerprint and ImageFingerprint bucket the manager indexes by
	// a hash of the identity.
	TextureFingerprint = gencache.IdentityFingerprint[TextureGenerator](TextureIdentity)
	ImageFingerprint   = gencache.IdentityFingerprint[ImageGenerator](ImageIdentity)
)

// NewDataManager returns the texture cache. Name defaults to "textures" and
// Fingerprint to TextureFingerprint.
func NewDataManager(opts gencache.Options[TextureGenerator]) DataManager {
	opts.Name = util.Coalesce(opts.Name, "textures")
	if opts.Fingerprint == nil {
		opts.Fingerprint = TextureFingerprint
	}
	return gencache.New[TextureGenerator, *TextureData, *Texture](opts)
}

// NewImageDataManager returns the image cache. Name defaults to "images" and
// Fingerprint to ImageFingerprint.
func NewImageDataManager(opts gencache.Options[ImageGenerator]) ImageDataManager {
	opts.Name = util.Coalesce(opts.Name, "images")
	if opts.Fingerprint == nil {
		opts.Fingerprint = ImageFingerprint
	}
	return gencache.New[ImageGenerator, *ImageData, NodeID](opts)
}

// GenerateTexture and GenerateImage adapt the generator methods to
// worker.GenerateFunc.
func GenerateTexture(ctx context.Context, g TextureGenerator) (*TextureData, error) {
	return g.Generate(ctx)
}

func GenerateImage(ctx context.Context, g ImageGenerator) (*ImageData, error) {
	return g.Generate(ctx)
}

// TextureImage is an image node attached to a texture.
type TextureImage struct {
	ID        NodeID
	Generator ImageGenerator
}

// Texture is a consumer of generated data. It references its own texture
// generator in a DataManager and each of its image nodes in an
// ImageDataManager.
type Texture struct {
	Name      string
	Generator TextureGenerator
	Images    []TextureImage
}

// AddImage appends an image node with a fresh id and returns it.
func (t *Texture) AddImage(g ImageGenerator) TextureImage {
	img := TextureImage{ID: NewNodeID(), Generator: g}
	t.Images = append(t.Images, img)
	return img
}

// Attach requests every generator t depends on. It returns how many new
// entries were created, i.e. how much work the scheduler just gained.
func (t *Texture) Attach(textures DataManager, images ImageDataManager) int {
	n := 0
	if t.Generator != nil && textures.Request(t.Generator, t) {
		n++
	}
	for _, img := range t.Images {
		if images.Request(img.Generator, img.ID) {
			n++
		}
	}
	return n
}

// Detach releases everything Attach requested.
func (t *Texture) Detach(textures DataManager, images ImageDataManager) {
	if t.Generator != nil {
		textures.Release(t.Generator, t)
	}
	for _, img := range t.Images {
		images.Release(img.Generator, img.ID)
	}
}

// Data returns the generated texture, if it is ready.
func (t *Texture) Data(textures DataManager) (*TextureData, bool) {
	if t.Generator == nil {
		return nil, false
	}
	return textures.GetData(t.Generator)
}

// Ready reports whether the texture and all of its images have data.
func (t *Texture) Ready(textures DataManager, images ImageDataManager) bool {
	if _, ok := t.Data(textures); !ok && t.Generator != nil {
		return false
	}
	for _, img := range t.Images {
		if _, ok := images.GetData(img.Generator); !ok {
			return false
		}
	}
	return true
}
