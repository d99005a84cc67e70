package texture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

type memFetcher map[string][]byte

func (m memFetcher) Fetch(_ context.Context, source string) ([]byte, error) {
	data, ok := m[source]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

type fakeUploader struct {
	next    uint32
	uploads int
	updates int
	deleted []uint32
	fail    error
}

func (u *fakeUploader) UploadTexture(*image.RGBA, ColorSpace) (uint32, error) {
	if u.fail != nil {
		return 0, u.fail
	}
	u.next++
	u.uploads++
	return u.next, nil
}

func (u *fakeUploader) UpdateTexture(uint32, *image.RGBA) error {
	u.updates++
	return nil
}

func (u *fakeUploader) DeleteTexture(h uint32) { u.deleted = append(u.deleted, h) }

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(0, h-1, color.NRGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// tgaImage builds a 2x2 TGA; the first stored pixel is red.
func tgaImage(imageType byte, topToBottom bool) []byte {
	header := make([]byte, 18)
	header[2] = imageType
	header[12], header[14] = 2, 2
	header[16] = 32
	if topToBottom {
		header[17] = 0x20
	}
	red := []byte{0, 0, 255, 255}
	green := []byte{0, 255, 0, 255}
	if imageType == TGATypeRLE {
		body := append([]byte{0x80}, red...)                   // one red pixel
		body = append(body, append([]byte{0x82}, green...)...) // three green
		return append(header, body...)
	}
	body := append([]byte{}, red...)
	for i := 0; i < 3; i++ {
		body = append(body, green...)
	}
	return append(header, body...)
}

func TestDecodeTGA(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	tests := []struct {
		name       string
		data       []byte
		redX, redY int
	}{
		{"uncompressed bottom-up", tgaImage(TGATypeUncompressed, false), 0, 1},
		{"uncompressed top-down", tgaImage(TGATypeUncompressed, true), 0, 0},
		{"rle bottom-up", tgaImage(TGATypeRLE, false), 0, 1},
		{"rle top-down", tgaImage(TGATypeRLE, true), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := DecodeTGA(tt.data)
			if err != nil {
				t.Fatalf("DecodeTGA: %v", err)
			}
			if got := img.RGBAAt(tt.redX, tt.redY); got != red {
				t.Errorf("pixel (%d,%d) = %v, want red", tt.redX, tt.redY, got)
			}
		})
	}
}

func TestDecodeTGAErrors(t *testing.T) {
	truncated := tgaImage(TGATypeUncompressed, false)
	truncated = truncated[:len(truncated)-2]
	mapped := tgaImage(TGATypeUncompressed, false)
	mapped[1] = 1

	for name, data := range map[string][]byte{
		"short":     {0, 0, 2},
		"truncated": truncated,
		"colormap":  mapped,
		"rle short": tgaImage(TGATypeRLE, false)[:20],
	} {
		if _, err := DecodeTGA(data); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoaderLoad(t *testing.T) {
	fetcher := memFetcher{
		"baked.png": encodePNG(t, 4, 2),
		"wall.tga":  tgaImage(TGATypeUncompressed, true),
		"bad.png":   []byte("not an image"),
	}
	l := NewLoader(fetcher)

	tex, err := l.Load(context.Background(), "baked", "baked.png")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w, h := tex.Size(); w != 4 || h != 2 {
		t.Errorf("Size = %dx%d", w, h)
	}
	if tex.FlipY || tex.ColorSpace != ColorSpaceSRGB {
		t.Errorf("FlipY=%v ColorSpace=%v, want false/srgb", tex.FlipY, tex.ColorSpace)
	}
	// Row order is preserved: red stays on the first row.
	if got := tex.Image().RGBAAt(0, 0); got.R != 255 {
		t.Errorf("top-left = %v, want red", got)
	}

	if _, err := l.Load(context.Background(), "wall", "wall.tga"); err != nil {
		t.Errorf("Load tga: %v", err)
	}
	if _, err := l.Load(context.Background(), "bad", "bad.png"); err == nil {
		t.Error("expected decode error")
	}
	if _, err := l.Load(context.Background(), "missing", "missing.png"); err == nil {
		t.Error("expected fetch error")
	}
}

func TestLoaderMaxSize(t *testing.T) {
	l := NewLoader(memFetcher{"big.png": encodePNG(t, 64, 16)}, WithMaxSize(32))
	tex, err := l.Load(context.Background(), "big", "big.png")
	if err != nil {
		t.Fatal(err)
	}
	if w, h := tex.Size(); w != 32 || h != 8 {
		t.Errorf("Size = %dx%d, want 32x8", w, h)
	}
}

func TestBindLifecycle(t *testing.T) {
	u := &fakeUploader{}
	tex := New("screen", image.NewRGBA(image.Rect(0, 0, 2, 2)))

	h1, err := tex.Bind(u)
	if err != nil {
		t.Fatal(err)
	}
	h2, _ := tex.Bind(u)
	if h1 != h2 || u.uploads != 1 {
		t.Errorf("second Bind re-uploaded: %d uploads", u.uploads)
	}

	tex.SetImage(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if _, err := tex.Bind(u); err != nil {
		t.Fatal(err)
	}
	if u.updates != 1 {
		t.Errorf("updates = %d, want 1", u.updates)
	}

	tex.Dispose()
	tex.Dispose()
	if len(u.deleted) != 1 || u.deleted[0] != h1 {
		t.Errorf("deleted = %v, want [%d]", u.deleted, h1)
	}
	if _, err := tex.Bind(u); !errors.Is(err, ErrDisposed) {
		t.Errorf("Bind after Dispose = %v", err)
	}
	if tex.Image() != nil {
		t.Error("pixels kept after Dispose")
	}
}

func TestDisposeBeforeUpload(t *testing.T) {
	u := &fakeUploader{}
	tex := New("never-drawn", image.NewRGBA(image.Rect(0, 0, 1, 1)))
	tex.Dispose()
	if len(u.deleted) != 0 || !tex.Disposed() {
		t.Errorf("deleted = %v, disposed = %v", u.deleted, tex.Disposed())
	}
}

func TestBindUploadError(t *testing.T) {
	u := &fakeUploader{fail: errors.New("out of memory")}
	tex := New("t", image.NewRGBA(image.Rect(0, 0, 1, 1)))
	if _, err := tex.Bind(u); err == nil || tex.Uploaded() {
		t.Errorf("Bind = %v, uploaded = %v", err, tex.Uploaded())
	}
}
