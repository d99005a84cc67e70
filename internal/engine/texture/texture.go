// Package texture decodes images into CPU textures and manages their GPU
// handles.
package texture

import (
	"errors"
	"fmt"
	"image"
	"sync"
)

// ColorSpace tags how texel values are encoded.
type ColorSpace int

const (
	ColorSpaceLinear ColorSpace = iota
	ColorSpaceSRGB
)

func (c ColorSpace) String() string {
	if c == ColorSpaceSRGB {
		return "srgb"
	}
	return "linear"
}

// ErrDisposed is returned when binding a texture after Dispose.
var ErrDisposed = errors.New("texture disposed")

// Uploader creates and updates GPU textures. Implementations are only called
// from the goroutine that owns the graphics context.
type Uploader interface {
	UploadTexture(img *image.RGBA, cs ColorSpace) (uint32, error)
	UpdateTexture(handle uint32, img *image.RGBA) error
	DeleteTexture(handle uint32)
}

// Texture holds decoded pixels and, once bound, a GPU handle.
type Texture struct {
	Name       string
	FlipY      bool
	ColorSpace ColorSpace

	mu       sync.Mutex
	img      *image.RGBA
	dirty    bool
	handle   uint32
	uploader Uploader
	disposed bool
}

// New creates an sRGB texture from img. Rows are kept in image order.
func New(name string, img *image.RGBA) *Texture {
	return &Texture{
		Name:       name,
		ColorSpace: ColorSpaceSRGB,
		img:        img,
	}
}

// Image returns the CPU pixels, nil after Dispose.
func (t *Texture) Image() *image.RGBA {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.img
}

// Size returns the texture dimensions.
func (t *Texture) Size() (width, height int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.img == nil {
		return 0, 0
	}
	b := t.img.Bounds()
	return b.Dx(), b.Dy()
}

// SetImage replaces the pixels. The GPU copy is refreshed on the next Bind.
func (t *Texture) SetImage(img *image.RGBA) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed {
		return
	}
	t.img = img
	t.dirty = true
}

// Bind returns the GPU handle, uploading or refreshing the pixels first when
// needed.
func (t *Texture) Bind(u Uploader) (uint32, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return 0, fmt.Errorf("%s: %w", t.Name, ErrDisposed)
	}
	if t.img == nil {
		return 0, fmt.Errorf("%s: no pixels", t.Name)
	}

	if t.handle == 0 {
		h, err := u.UploadTexture(t.img, t.ColorSpace)
		if err != nil {
			return 0, fmt.Errorf("uploading %s: %w", t.Name, err)
		}
		t.handle = h
		t.uploader = u
		t.dirty = false
		return h, nil
	}

	if t.dirty {
		if err := u.UpdateTexture(t.handle, t.img); err != nil {
			return 0, fmt.Errorf("updating %s: %w", t.Name, err)
		}
		t.dirty = false
	}
	return t.handle, nil
}

// Uploaded reports whether a GPU handle exists.
func (t *Texture) Uploaded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handle != 0
}

// Dispose frees the GPU handle and drops the pixels. Safe to call repeatedly.
func (t *Texture) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.disposed {
		return
	}
	t.disposed = true
	if t.handle != 0 && t.uploader != nil {
		t.uploader.DeleteTexture(t.handle)
	}
	t.handle = 0
	t.uploader = nil
	t.img = nil
}

// Disposed reports whether Dispose has run.
func (t *Texture) Disposed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disposed
}
