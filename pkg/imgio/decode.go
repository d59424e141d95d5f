package imgio

// Reading and writing the images that feed and leave the pipeline.
// Input is linear RGB that a RAW developer has already demosaiced,
// either as a 16-bit TIFF or a Radiance HDR file.

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/tiff"

	"github.com/abworrall/rawalchemy/pkg/lens"
	"github.com/abworrall/rawalchemy/pkg/raster"
)

var ErrUnsupported = errors.New("unsupported file type")

var inputExts = map[string]bool{
	".tif":  true,
	".tiff": true,
	".hdr":  true,
}

func IsSupportedInput(filename string) bool {
	return inputExts[strings.ToLower(filepath.Ext(filename))]
}

// Decoder reads input images off disk.
type Decoder struct{}

// Decode loads the image into a new buffer. Metadata is best effort;
// anything missing is left empty in the ShotInfo.
func (Decoder) Decode(filename string) (*raster.Buffer, lens.ShotInfo, error) {
	si := lens.ShotInfo{}

	var img image.Image
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		img, err = decodeFile(filename, tiff.Decode)
		if err != nil {
			return nil, si, err
		}
		si = shotInfoFromFile(filename)

	case ".hdr":
		img, err = decodeFile(filename, rgbe.Decode)
		if err != nil {
			return nil, si, err
		}

	default:
		return nil, si, fmt.Errorf("decode '%s': %w", filename, ErrUnsupported)
	}

	buf, err := raster.FromImage(img)
	if err != nil {
		return nil, si, fmt.Errorf("decode '%s': %w", filename, err)
	}
	return buf, si, nil
}

func decodeFile(filename string, decode func(io.Reader) (image.Image, error)) (image.Image, error) {
	reader, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open+r img '%s': %w", filename, err)
	}
	defer reader.Close()

	img, err := decode(reader)
	if err != nil {
		return nil, fmt.Errorf("decoding '%s': %w", filename, err)
	}
	return img, nil
}

func shotInfoFromFile(filename string) lens.ShotInfo {
	reader, err := os.Open(filename)
	if err != nil {
		return lens.ShotInfo{}
	}
	defer reader.Close()

	si, _ := ReadShotInfo(reader)
	return si
}

// ReadShotInfo pulls the fields lens correction needs out of the EXIF
// data. Individual missing tags are not an error.
func ReadShotInfo(r io.Reader) (lens.ShotInfo, error) {
	si := lens.ShotInfo{}

	ex, err := exif.Decode(r)
	if err != nil {
		return si, fmt.Errorf("exif parsing: %w", err)
	}

	si.CameraMake = exifString(ex, exif.Make)
	si.CameraModel = exifString(ex, exif.Model)
	si.LensMake = exifString(ex, exif.LensMake)
	si.LensModel = exifString(ex, exif.LensModel)
	si.FocalLength = exifRational(ex, exif.FocalLength)
	si.Aperture = exifRational(ex, exif.FNumber)

	return si, nil
}

func exifString(ex *exif.Exif, field exif.FieldName) string {
	tag, err := ex.Get(field)
	if err != nil {
		return ""
	}
	s, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(s, "\x00"))
}

// e.g. FNumber: "56/10", FocalLength: "4800/10"
func exifRational(ex *exif.Exif, field exif.FieldName) float64 {
	tag, err := ex.Get(field)
	if err != nil {
		return 0
	}
	num, denom, err := tag.Rat2(0)
	if err != nil || denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
