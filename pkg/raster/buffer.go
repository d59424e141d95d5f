package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/mdouchement/hdr/hdrcolor"
)

// A Buffer is a linear, floating point RGB image. Pixels are stored
// as RGB triples, row major, with no padding. A Buffer is owned by
// exactly one conversion; kernels mutate it in place, and the owner
// calls Release once a later stage has taken over. Implements the
// hdr.Image interface, so it can be handed straight to the HDR codecs.
type Buffer struct {
	Width  int
	Height int
	Pix    []float32
}

func New(w, h int) *Buffer {
	return &Buffer{
		Width:  w,
		Height: h,
		Pix:    make([]float32, 3*w*h),
	}
}

// NewFilled returns a buffer where every pixel is (r,g,b).
func NewFilled(w, h int, r, g, b float32) *Buffer {
	buf := New(w, h)
	for i := 0; i < len(buf.Pix); i += 3 {
		buf.Pix[i], buf.Pix[i+1], buf.Pix[i+2] = r, g, b
	}
	return buf
}

// Implement image.Image
func (b *Buffer) ColorModel() color.Model { return hdrcolor.RGBModel }
func (b *Buffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }
func (b *Buffer) At(x, y int) color.Color { return b.HDRAt(x, y) }

// Implement hdr.Image
func (b *Buffer) Size() int { return b.Width * b.Height }
func (b *Buffer) HDRAt(x, y int) hdrcolor.Color {
	r, g, bl := b.RGB(x, y)
	return hdrcolor.RGB{R: float64(r), G: float64(g), B: float64(bl)}
}

func (b *Buffer) Stride() int { return 3 * b.Width }
func (b *Buffer) PixOffset(x, y int) int { return y*b.Stride() + 3*x }
func (b *Buffer) Row(y int) []float32 { return b.Pix[y*b.Stride() : (y+1)*b.Stride()] }
func (b *Buffer) Released() bool { return b.Pix == nil }

func (b *Buffer) RGB(x, y int) (float32, float32, float32) {
	i := b.PixOffset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

func (b *Buffer) SetRGB(x, y int, r, g, bl float32) {
	i := b.PixOffset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = r, g, bl
}

func (b *Buffer) Clone() *Buffer {
	c := &Buffer{Width: b.Width, Height: b.Height, Pix: make([]float32, len(b.Pix))}
	copy(c.Pix, b.Pix)
	return c
}

// Release drops the pixel storage. The buffer must not be used again.
func (b *Buffer) Release() {
	b.Pix = nil
}

func (b *Buffer) String() string {
	if b.Released() {
		return fmt.Sprintf("Buffer[%dx%d, released]", b.Width, b.Height)
	}
	return fmt.Sprintf("Buffer[%dx%d]", b.Width, b.Height)
}

// Validate checks the pixel slice matches the dimensions.
func (b *Buffer) Validate() error {
	if b.Width <= 0 || b.Height <= 0 {
		return fmt.Errorf("buffer has empty dimensions %dx%d", b.Width, b.Height)
	}
	if len(b.Pix) != 3*b.Width*b.Height {
		return fmt.Errorf("buffer %dx%d has %d values, expected %d", b.Width, b.Height, len(b.Pix), 3*b.Width*b.Height)
	}
	return nil
}

// FromImage copies any image into a new buffer. Colors that implement
// hdrcolor.Color keep their float values. Other colors are treated
// as 16-bit and scaled into [0,1].
func FromImage(img image.Image) (*Buffer, error) {
	bounds := img.Bounds()
	buf := New(bounds.Dx(), bounds.Dy())
	err := EachRow(buf, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.Width; x++ {
				col := img.At(x+bounds.Min.X, y+bounds.Min.Y)
				if hc, ok := col.(hdrcolor.Color); ok {
					r, g, bl, _ := hc.HDRRGBA()
					buf.SetRGB(x, y, float32(r), float32(g), float32(bl))
				} else {
					r, g, bl, _ := col.RGBA()
					buf.SetRGB(x, y, float32(r)/0xFFFF, float32(g)/0xFFFF, float32(bl)/0xFFFF)
				}
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("image to buffer: %w", err)
	}
	return buf, nil
}
