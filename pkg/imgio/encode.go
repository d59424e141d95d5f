package imgio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/nfnt/resize"
	"golang.org/x/image/tiff"

	"github.com/abworrall/rawalchemy/pkg/raster"
)

// Formats we can write, keyed by the extension they use.
var outputFormats = map[string]bool{
	"tif": true,
	"hdr": true,
}

func IsSupportedOutput(format string) bool { return outputFormats[format] }

// IsSupportedOutputFile says whether Encode can write to filename,
// going by its extension.
func IsSupportedOutputFile(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff", ".hdr":
		return true
	}
	return false
}

// Encoder writes final images. If PreviewWidth is set, a downscaled
// PNG is written alongside.
type Encoder struct {
	PreviewWidth int
}

// Encode picks the format from the filename's extension.
func (e Encoder) Encode(buf *raster.Buffer, filename string) error {
	if buf.Released() {
		return fmt.Errorf("encode '%s': released buffer", filename)
	}

	var err error
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".tif", ".tiff":
		err = WriteTIFF(buf, filename)
	case ".hdr":
		err = WriteHDR(buf, filename)
	default:
		err = fmt.Errorf("encode '%s': %w", filename, ErrUnsupported)
	}
	if err != nil {
		return err
	}

	if e.PreviewWidth > 0 {
		return WritePreview(buf, PreviewFilename(filename), e.PreviewWidth)
	}
	return nil
}

func PreviewFilename(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename)) + "_preview.png"
}

// ToNRGBA64 quantizes to 16 bits per channel, clamping to [0,1].
func ToNRGBA64(buf *raster.Buffer) (*image.NRGBA64, error) {
	img := image.NewNRGBA64(buf.Bounds())
	q := func(v float32) uint16 {
		if v <= 0 || math.IsNaN(float64(v)) {
			return 0
		} else if v >= 1 {
			return 0xFFFF
		}
		return uint16(v*0xFFFF + 0.5)
	}
	err := raster.EachRow(buf, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < buf.Width; x++ {
				r, g, b := buf.RGB(x, y)
				img.SetNRGBA64(x, y, color.NRGBA64{R: q(r), G: q(g), B: q(b), A: 0xFFFF})
			}
		}
	})
	if err != nil {
		return nil, fmt.Errorf("quantize: %w", err)
	}
	return img, nil
}

// WriteTIFF writes a 16-bit deflated TIFF.
func WriteTIFF(buf *raster.Buffer, filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %w", filename, err)
	}
	defer writer.Close()

	img, err := ToNRGBA64(buf)
	if err != nil {
		return fmt.Errorf("tiff '%s': %w", filename, err)
	}
	opts := &tiff.Options{Compression: tiff.Deflate, Predictor: true}
	if err := tiff.Encode(writer, img, opts); err != nil {
		return fmt.Errorf("tiff encoding '%s': %w", filename, err)
	}
	return writer.Close()
}

// WriteHDR writes a Radiance RGBE file, keeping values above 1.0.
func WriteHDR(buf *raster.Buffer, filename string) error {
	writer, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("open+w '%s': %w", filename, err)
	}
	defer writer.Close()

	if err := rgbe.Encode(writer, buf); err != nil {
		return fmt.Errorf("rgbe encoding '%s': %w", filename, err)
	}
	return writer.Close()
}

func WritePNG(img image.Image, filename string) error {
	if writer, err := os.Create(filename); err != nil {
		return fmt.Errorf("open+w '%s': %v", filename, err)
	} else {
		defer writer.Close()
		return png.Encode(writer, img)
	}
}

// WritePreview writes a PNG no wider than width, keeping the aspect ratio.
func WritePreview(buf *raster.Buffer, filename string, width int) error {
	full, err := ToNRGBA64(buf)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	var img image.Image = full
	if width < buf.Width {
		img = resize.Resize(uint(width), 0, full, resize.Lanczos3)
	}
	if err := WritePNG(img, filename); err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	return nil
}
