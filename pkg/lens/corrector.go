package lens

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/abworrall/rawalchemy/pkg/emath"
	"github.com/abworrall/rawalchemy/pkg/raster"
)

// A Corrector undoes the optical flaws described by a Profile.
type Corrector struct {
	Profile    Profile
	Distortion bool // Which corrections to run, if the profile has them
	TCA        bool
	Vignetting bool
	AutoScale  bool // Zoom in just enough to hide the empty edges left by distortion correction

	Logger *log.Logger
}

func NewCorrector(p Profile) *Corrector {
	return &Corrector{
		Profile:    p,
		Distortion: true,
		TCA:        true,
		Vignetting: true,
		AutoScale:  true,
	}
}

func (c *Corrector) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}

// IsSkippable reports whether err only means there was not enough
// information to correct the shot; the image is still usable.
func IsSkippable(err error) bool {
	return errors.Is(err, ErrMissingCameraInfo) || errors.Is(err, ErrMissingOpticalInfo) || errors.Is(err, ErrNoProfile)
}

// Correct finds the profile for the shot and applies it. If the shot
// can't be corrected, the original buffer is returned along with an
// error that IsSkippable.
func (db *Database) Correct(buf *raster.Buffer, shot ShotInfo, logger *log.Logger) (*raster.Buffer, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := shot.Check(); err != nil {
		return buf, err
	}

	if db.FindCamera(shot.CameraMake, shot.CameraModel) == nil {
		logger.Printf("[Lens] camera '%s %s' not in database, continuing with lens only\n", shot.CameraMake, shot.CameraModel)
	}
	l := db.FindLens(shot.LensMake, shot.LensModel)
	if l == nil {
		return buf, fmt.Errorf("%w for '%s %s'", ErrNoProfile, shot.LensMake, shot.LensModel)
	}

	c := NewCorrector(l.ProfileAt(shot.FocalLength, shot.Aperture))
	c.Logger = logger
	c.logf("[Lens] %s, %s\n", l.Model, c.Profile)

	return c.Apply(buf)
}

// Apply corrects vignetting in place, and then, if there is any
// geometry to fix, resamples into a new buffer and releases the input.
// The geometric pass reads the devignetted pixels.
func (c *Corrector) Apply(buf *raster.Buffer) (*raster.Buffer, error) {
	if buf.Released() {
		return nil, fmt.Errorf("lens correction of released buffer")
	}

	p := c.Profile
	toNorm := emath.PixelToNormalized(buf.Width, buf.Height)

	if c.Vignetting && p.HasVignetting {
		if err := devignette(buf, toNorm, p.Vignetting); err != nil {
			return nil, fmt.Errorf("vignetting: %w", err)
		}
	}

	if !(c.Distortion && p.HasDistortion) && !(c.TCA && p.HasTCA) {
		return buf, nil
	}

	g := c.geometry(toNorm, buf.Width, buf.Height)
	if c.AutoScale && c.Distortion && p.HasDistortion {
		g.scale = g.autoScale()
		c.logf("[Lens] auto-scale %.4f\n", g.scale)
	}

	out := raster.New(buf.Width, buf.Height)
	err := raster.EachRow(out, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < out.Width; x++ {
				var rgb [3]float32
				for ch := 0; ch < 3; ch++ {
					sx, sy := g.source(float64(x), float64(y), ch)
					rgb[ch] = bilinear(buf, sx, sy, ch)
				}
				out.SetRGB(x, y, rgb[0], rgb[1], rgb[2])
			}
		}
	})
	if err != nil {
		out.Release()
		return nil, fmt.Errorf("lens remap: %w", err)
	}

	buf.Release()
	return out, nil
}

// pa model; divide out the lens falloff.
func devignette(buf *raster.Buffer, toNorm emath.Aff3, k [3]float64) error {
	return raster.EachRow(buf, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := buf.Row(y)
			for x := 0; x < buf.Width; x++ {
				nx, ny := toNorm.Transform(float64(x), float64(y))
				r2 := nx*nx + ny*ny
				falloff := 1 + k[0]*r2 + k[1]*r2*r2 + k[2]*r2*r2*r2
				if falloff < 1e-6 {
					continue
				}
				inv := float32(1 / falloff)
				row[3*x] *= inv
				row[3*x+1] *= inv
				row[3*x+2] *= inv
			}
		}
	})
}

// geometry maps an output pixel to where it came from in the input,
// per channel.
type geometry struct {
	toNorm, fromNorm emath.Aff3
	w, h             int
	dist             [3]float64 // a, b, c; zero is no distortion
	chanScale        [3]float64 // TCA, relative to green
	scale            float64
}

func (c *Corrector) geometry(toNorm emath.Aff3, w, h int) geometry {
	g := geometry{
		toNorm:    toNorm,
		fromNorm:  toNorm.Invert(),
		w:         w,
		h:         h,
		chanScale: [3]float64{1, 1, 1},
		scale:     1,
	}
	if c.Distortion && c.Profile.HasDistortion {
		g.dist = c.Profile.Distortion
	}
	if c.TCA && c.Profile.HasTCA {
		g.chanScale[0], g.chanScale[2] = c.Profile.TCA[0], c.Profile.TCA[1]
	}
	return g
}

func (g geometry) source(x, y float64, ch int) (float64, float64) {
	nx, ny := g.toNorm.Transform(x, y)
	nx, ny = nx/g.scale, ny/g.scale

	a, b, c := g.dist[0], g.dist[1], g.dist[2]
	r := math.Hypot(nx, ny)
	f := (a*r*r*r + b*r*r + c*r + 1 - a - b - c) * g.chanScale[ch]

	return g.fromNorm.Transform(nx*f, ny*f)
}

// Pixel centers own the half pixel around them.
func (g geometry) inside(x, y float64) bool {
	return x >= -0.5 && y >= -0.5 && x <= float64(g.w)-0.5 && y <= float64(g.h)-0.5
}

func (g geometry) perimeterInside() bool {
	const steps = 16
	w, h := float64(g.w-1), float64(g.h-1)
	for i := 0; i <= steps; i++ {
		t := float64(i) / steps
		for _, pt := range [][2]float64{{t * w, 0}, {t * w, h}, {0, t * h}, {w, t * h}} {
			for ch := 0; ch < 3; ch++ {
				if !g.inside(g.source(pt[0], pt[1], ch)) {
					return false
				}
			}
		}
	}
	return true
}

// autoScale finds the smallest zoom (at least 1.0) that keeps every
// output edge pixel inside the source image.
func (g geometry) autoScale() float64 {
	const maxScale = 4.0

	g.scale = 1
	if g.perimeterInside() {
		return 1
	}
	g.scale = maxScale
	if !g.perimeterInside() {
		return maxScale
	}

	lo, hi := 1.0, maxScale
	for i := 0; i < 40; i++ {
		g.scale = (lo + hi) / 2
		if g.perimeterInside() {
			hi = g.scale
		} else {
			lo = g.scale
		}
	}
	return hi
}

// bilinear samples one channel at a fractional position; outside the
// image is black.
func bilinear(buf *raster.Buffer, x, y float64, ch int) float32 {
	if x < -0.5 || y < -0.5 || x > float64(buf.Width)-0.5 || y > float64(buf.Height)-0.5 || math.IsNaN(x) || math.IsNaN(y) {
		return 0
	}
	x = emath.Clamp(x, 0, float64(buf.Width-1))
	y = emath.Clamp(y, 0, float64(buf.Height-1))

	x0, y0 := int(x), int(y)
	x1, y1 := emath.ClampIndex(x0+1, buf.Width), emath.ClampIndex(y0+1, buf.Height)
	fx, fy := float32(x-float64(x0)), float32(y-float64(y0))

	p00 := buf.Pix[buf.PixOffset(x0, y0)+ch]
	p10 := buf.Pix[buf.PixOffset(x1, y0)+ch]
	p01 := buf.Pix[buf.PixOffset(x0, y1)+ch]
	p11 := buf.Pix[buf.PixOffset(x1, y1)+ch]

	top := p00 + (p10-p00)*fx
	bot := p01 + (p11-p01)*fx
	return top + (bot-top)*fy
}
