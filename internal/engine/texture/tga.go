package texture

import (
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

const tgaHeaderSize = 18

// DecodeTGA decodes a TGA image file.
// Supports uncompressed true-color (type 2) and RLE compressed (type 10) data
// at 24 or 32 bits per pixel. Rows are returned top to bottom regardless of
// the file's origin bit.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < tgaHeaderSize {
		return nil, fmt.Errorf("TGA data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := int(data[2])
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d (only uncompressed/RLE true-color supported)", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d (only 24/32 supported)", bpp)
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("TGA data truncated")
	}

	d := tgaDecoder{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		src:         data[offset:],
		width:       width,
		height:      height,
		bytesPerPx:  bpp / 8,
		topToBottom: descriptor&0x20 != 0,
	}

	var err error
	if imageType == TGATypeUncompressed {
		err = d.raw()
	} else {
		err = d.rle()
	}
	if err != nil {
		return nil, err
	}
	return d.img, nil
}

type tgaDecoder struct {
	img           *image.RGBA
	src           []byte
	pos           int
	width, height int
	bytesPerPx    int
	topToBottom   bool
	written       int
}

// next reads one BGR(A) pixel from the source.
func (d *tgaDecoder) next() (color.RGBA, bool) {
	if d.pos+d.bytesPerPx > len(d.src) {
		return color.RGBA{}, false
	}
	p := d.src[d.pos:]
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bytesPerPx == 4 {
		c.A = p[3]
	}
	d.pos += d.bytesPerPx
	return c, true
}

// put stores c at the next pixel position in file order.
func (d *tgaDecoder) put(c color.RGBA) {
	x := d.written % d.width
	y := d.written / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetRGBA(x, y, c)
	d.written++
}

func (d *tgaDecoder) total() int { return d.width * d.height }

func (d *tgaDecoder) raw() error {
	if len(d.src) < d.total()*d.bytesPerPx {
		return fmt.Errorf("TGA pixel data truncated")
	}
	for d.written < d.total() {
		c, _ := d.next()
		d.put(c)
	}
	return nil
}

func (d *tgaDecoder) rle() error {
	for d.written < d.total() {
		if d.pos >= len(d.src) {
			return fmt.Errorf("TGA RLE data truncated at pixel %d", d.written)
		}
		packet := d.src[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, ok := d.next()
			if !ok {
				return fmt.Errorf("TGA RLE data truncated at pixel %d", d.written)
			}
			for i := 0; i < count && d.written < d.total(); i++ {
				d.put(c)
			}
			continue
		}

		for i := 0; i < count && d.written < d.total(); i++ {
			c, ok := d.next()
			if !ok {
				return fmt.Errorf("TGA RLE data truncated at pixel %d", d.written)
			}
			d.put(c)
		}
	}
	return nil
}
