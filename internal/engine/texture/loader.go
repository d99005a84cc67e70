package texture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/roomview/internal/assets"
	"github.com/Faultbox/roomview/internal/logger"
)

// Loader fetches and decodes textures.
type Loader struct {
	fetcher assets.Fetcher
	maxSize int
	log     *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxSize downscales images whose larger side exceeds n pixels.
func WithMaxSize(n int) LoaderOption {
	return func(l *Loader) { l.maxSize = n }
}

// WithLogger sets the loader's logger.
func WithLogger(log *zap.Logger) LoaderOption {
	return func(l *Loader) { l.log = log }
}

// NewLoader creates a texture loader reading through f.
func NewLoader(f assets.Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{fetcher: f}
	for _, opt := range opts {
		opt(l)
	}
	l.log = logger.OrNop(l.log)
	return l
}

// Load fetches source and decodes it into an sRGB texture named name.
func (l *Loader) Load(ctx context.Context, name, source string) (*Texture, error) {
	data, err := l.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source, err)
	}

	img, err := Decode(data, path.Ext(source))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", source, err)
	}

	if l.maxSize > 0 {
		if scaled := fit(img, l.maxSize); scaled != img {
			l.log.Debug("texture downscaled",
				zap.String("name", name),
				zap.Stringer("from", img.Bounds().Size()),
				zap.Stringer("to", scaled.Bounds().Size()))
			img = scaled
		}
	}

	return New(name, img), nil
}

// Decode decodes image data into RGBA. ext selects the TGA decoder, which has
// no magic number; every other format is sniffed.
func Decode(data []byte, ext string) (*image.RGBA, error) {
	if strings.EqualFold(ext, ".tga") {
		return DecodeTGA(data)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return ToRGBA(img), nil
}

// ToRGBA converts img to *image.RGBA with its origin at (0, 0).
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// fit scales img down so neither side exceeds limit, keeping the aspect ratio.
func fit(img *image.RGBA, limit int) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w <= limit && h <= limit {
		return img
	}
	if w >= h {
		h = h * limit / w
		w = limit
	} else {
		w = w * limit / h
		h = limit
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
