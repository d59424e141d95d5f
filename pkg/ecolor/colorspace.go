package ecolor

import (
	"fmt"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/abworrall/rawalchemy/pkg/emath"
)

// A Colorspace is a linear RGB space, defined by the CIE xy
// chromaticities of its three primaries and its reference white.
// Values are immutable once built; share them freely.
type Colorspace struct {
	Name      string
	Primaries [3][2]float64 // R, G, B as (x,y)
	White     [2]float64

	ToXYZ   emath.Mat3 // RGB -> XYZ, relative to this space's white
	FromXYZ emath.Mat3
}

var (
	WhiteD50 = [2]float64{0.3457, 0.3585}
	WhiteD65 = [2]float64{0.3127, 0.3290}

	// CAT02, from CIECAM02. http://www.brucelindbloom.com/ has the background.
	CAT02 = emath.Mat3{
		0.7328, 0.4296, -0.1624,
		-0.7036, 1.6975, 0.0061,
		0.0030, 0.0136, 0.9834,
	}
)

// Names of the spaces in the catalogue
const (
	ProPhotoRGB     = "ProPhoto RGB"
	SRGB            = "sRGB"
	BT2020          = "ITU-R BT.2020"
	FGamut          = "F-Gamut"
	FGamutC         = "F-Gamut C"
	VGamut          = "V-Gamut"
	NGamut          = "N-Gamut"
	CinemaGamut     = "Cinema Gamut"
	SGamut3         = "S-Gamut3"
	SGamut3Cine     = "S-Gamut3.Cine"
	ARRIWideGamut3  = "ARRI Wide Gamut 3"
	ARRIWideGamut4  = "ARRI Wide Gamut 4"
	REDWideGamutRGB = "REDWideGamutRGB"
	DJIDGamut       = "DJI D-Gamut"
)

var catalogue = map[string]Colorspace{}

func init() {
	bt2020 := [3][2]float64{{0.708, 0.292}, {0.170, 0.797}, {0.131, 0.046}}

	for _, cs := range []struct {
		name      string
		primaries [3][2]float64
		white     [2]float64
	}{
		{ProPhotoRGB, [3][2]float64{{0.7347, 0.2653}, {0.1596, 0.8404}, {0.0366, 0.0001}}, WhiteD50},
		{SRGB, [3][2]float64{{0.64, 0.33}, {0.30, 0.60}, {0.15, 0.06}}, WhiteD65},
		{BT2020, bt2020, WhiteD65},
		{FGamut, bt2020, WhiteD65},
		{NGamut, bt2020, WhiteD65},
		{FGamutC, [3][2]float64{{0.7347, 0.2653}, {0.0263, 0.9737}, {0.1173, -0.0224}}, WhiteD65},
		{VGamut, [3][2]float64{{0.730, 0.280}, {0.165, 0.840}, {0.100, -0.030}}, WhiteD65},
		{CinemaGamut, [3][2]float64{{0.74, 0.27}, {0.17, 1.14}, {0.08, -0.10}}, WhiteD65},
		{SGamut3, [3][2]float64{{0.730, 0.280}, {0.140, 0.855}, {0.100, -0.050}}, WhiteD65},
		{SGamut3Cine, [3][2]float64{{0.766, 0.275}, {0.225, 0.800}, {0.089, -0.087}}, WhiteD65},
		{ARRIWideGamut3, [3][2]float64{{0.684, 0.313}, {0.221, 0.848}, {0.0861, -0.1020}}, WhiteD65},
		{ARRIWideGamut4, [3][2]float64{{0.7347, 0.2653}, {0.1424, 0.8576}, {0.0991, -0.0308}}, WhiteD65},
		{REDWideGamutRGB, [3][2]float64{{0.780308, 0.304253}, {0.121595, 1.493994}, {0.095612, -0.084589}}, WhiteD65},
		{DJIDGamut, [3][2]float64{{0.71, 0.31}, {0.21, 0.88}, {0.09, -0.08}}, WhiteD65},
	} {
		c, err := NewColorspace(cs.name, cs.primaries, cs.white)
		if err != nil {
			panic(err)
		}
		catalogue[cs.name] = c
	}
}

// xyToXYZ lifts a chromaticity to XYZ with Y=1.
func xyToXYZ(xy [2]float64) emath.Vec3 {
	X, Y, Z := colorful.XyyToXyz(xy[0], xy[1], 1.0)
	return emath.Vec3{X, Y, Z}
}

// NewColorspace derives the normalized primary matrix: the columns
// are the primaries' XYZ, each scaled so that RGB(1,1,1) lands on the
// white point with Y=1.
func NewColorspace(name string, primaries [3][2]float64, white [2]float64) (Colorspace, error) {
	r, g, b := xyToXYZ(primaries[0]), xyToXYZ(primaries[1]), xyToXYZ(primaries[2])
	p := emath.Mat3{
		r[0], g[0], b[0],
		r[1], g[1], b[1],
		r[2], g[2], b[2],
	}
	pInv, err := p.Inverse()
	if err != nil {
		return Colorspace{}, fmt.Errorf("colorspace '%s' primaries: %w", name, err)
	}

	s := pInv.Apply(xyToXYZ(white))
	toXYZ := p.Mult(s.Diag())
	fromXYZ, err := toXYZ.Inverse()
	if err != nil {
		return Colorspace{}, fmt.Errorf("colorspace '%s' npm: %w", name, err)
	}

	return Colorspace{
		Name:      name,
		Primaries: primaries,
		White:     white,
		ToXYZ:     toXYZ,
		FromXYZ:   fromXYZ,
	}, nil
}

func (cs Colorspace) String() string {
	return fmt.Sprintf("%s (white %.4f,%.4f)", cs.Name, cs.White[0], cs.White[1])
}

// Luma returns the luminance coefficients, i.e. the Y row of ToXYZ.
func (cs Colorspace) Luma() emath.Vec3 { return cs.ToXYZ.Row(1) }

// Lookup finds a space in the catalogue by name.
func Lookup(name string) (Colorspace, error) {
	if cs, exists := catalogue[name]; exists {
		return cs, nil
	}
	return Colorspace{}, fmt.Errorf("no colorspace named '%s'", name)
}

func ListColorspaces() []string {
	names := []string{}
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ChromaticAdaptation maps XYZ relative to white `from` into XYZ
// relative to white `to`, von Kries style in the CAT02 cone space.
func ChromaticAdaptation(from, to [2]float64) emath.Mat3 {
	if from == to {
		return emath.Identity3()
	}
	catInv, err := CAT02.Inverse()
	if err != nil {
		panic(err) // CAT02 is a constant, invertible matrix
	}
	src := CAT02.Apply(xyToXYZ(from))
	dst := CAT02.Apply(xyToXYZ(to))
	scale := emath.Vec3{dst[0] / src[0], dst[1] / src[1], dst[2] / src[2]}
	return catInv.Mult(scale.Diag()).Mult(CAT02)
}

// RGBToRGB builds the single matrix that maps linear RGB in `src`
// into linear RGB in `dst`, adapting the white point on the way.
func RGBToRGB(src, dst Colorspace) emath.Mat3 {
	return dst.FromXYZ.Mult(ChromaticAdaptation(src.White, dst.White)).Mult(src.ToXYZ)
}
