package alchemy

// The pipeline takes one decoded linear image through a fixed series
// of in-place transforms, ending with a log-encoded (and optionally
// LUT-graded) image.

import (
	"fmt"
	"log"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/abworrall/rawalchemy/pkg/ecolor"
	"github.com/abworrall/rawalchemy/pkg/emath"
	"github.com/abworrall/rawalchemy/pkg/imgio"
	"github.com/abworrall/rawalchemy/pkg/kernel"
	"github.com/abworrall/rawalchemy/pkg/lens"
	"github.com/abworrall/rawalchemy/pkg/logcurve"
	"github.com/abworrall/rawalchemy/pkg/lut"
	"github.com/abworrall/rawalchemy/pkg/metering"
	"github.com/abworrall/rawalchemy/pkg/raster"
)

// The decoder hands us linear ProPhoto RGB.
const SourceColorspace = ecolor.ProPhotoRGB

// After gamut conversion, nothing goes below this; log curves don't
// like zero or negatives.
const linearFloor = 1e-6

type Stage int

const (
	Queued Stage = iota
	Decoded
	ExposureApplied
	Stylized
	GamutConverted
	LogEncoded
	LutApplied
	Final
)

var stageNames = []string{"Queued", "Decoded", "ExposureApplied", "Stylized", "GamutConverted", "LogEncoded", "LutApplied", "Final"}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

type Decoder interface {
	Decode(filename string) (*raster.Buffer, lens.ShotInfo, error)
}

type Encoder interface {
	Encode(buf *raster.Buffer, filename string) error
}

// An OpticalCorrector may return a new buffer; if so it has released
// the one it was given. Errors for which lens.IsSkippable is true
// leave the buffer untouched.
type OpticalCorrector interface {
	Correct(buf *raster.Buffer, shot lens.ShotInfo, logger *log.Logger) (*raster.Buffer, error)
}

// A Pipeline holds everything that is shared, read-only, by all the
// conversions it runs: the config, the resolved colorspaces and the
// LUT. Each conversion owns its own buffer.
type Pipeline struct {
	Config  Config
	Decoder Decoder
	Encoder Encoder
	Lens    OpticalCorrector // nil means no lens correction
	LUT     lut.LUT          // nil means no LUT

	Logger *log.Logger

	strategy  metering.Strategy
	source    ecolor.Colorspace
	working   ecolor.Colorspace
	curve     string
	toWorking emath.Mat3
}

// New validates the config and resolves everything it names. A bad
// config fails here, before any file is opened.
func New(cfg Config, logger *log.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	p := Pipeline{
		Config:  cfg,
		Decoder: imgio.Decoder{},
		Encoder: imgio.Encoder{PreviewWidth: cfg.PreviewWidth},
		Logger:  logger,
		curve:   ecolor.EncodingCurveFor(cfg.LogSpace),
	}

	var err error
	if p.strategy, err = metering.ParseStrategy(cfg.Metering); err != nil {
		return nil, &ConfigError{"Metering", cfg.Metering, err.Error()}
	}
	if p.source, err = ecolor.Lookup(SourceColorspace); err != nil {
		return nil, fmt.Errorf("source colorspace: %w", err)
	}
	if p.working, err = ecolor.WorkingSpaceFor(cfg.LogSpace); err != nil {
		return nil, &ConfigError{"LogSpace", cfg.LogSpace, err.Error()}
	}
	p.toWorking = ecolor.RGBToRGB(p.source, p.working)

	return &p, nil
}

// LoadLUT loads the .cube file for the pipeline to apply. A LUT that
// won't load is logged and skipped; the images are still produced.
func (p *Pipeline) LoadLUT(filename string) {
	if filename == "" {
		return
	}
	l, err := lut.Load(filename)
	if err != nil {
		p.Logger.Printf("[LUT] not loaded, carrying on without it: %v\n", err)
		return
	}
	p.LUT = l
	p.Logger.Printf("[LUT] loaded %s\n", l)
}

func (p *Pipeline) String() string {
	s := fmt.Sprintf("Pipeline[%s -> %s, curve %s, metering %s", p.source.Name, p.working.Name, p.curve, p.strategy)
	if p.Config.Exposure != nil {
		s += fmt.Sprintf(" (overridden: %+.2f stops)", *p.Config.Exposure)
	}
	if p.LUT != nil {
		s += ", " + p.LUT.String()
	}
	return s + "]"
}

// conversion is the state of one file moving through the pipeline.
type conversion struct {
	p     *Pipeline
	in    string
	out   string
	log   *log.Logger
	buf   *raster.Buffer
	shot  lens.ShotInfo
	stage Stage
	start time.Time
	last  time.Time
}

// advance moves to the next stage; stages can be skipped (LutApplied)
// but never revisited.
func (c *conversion) advance(to Stage) {
	if to <= c.stage {
		panic(fmt.Sprintf("pipeline stage %s after %s", to, c.stage))
	}
	c.stage = to
	if c.p.Config.Verbosity > 0 {
		now := time.Now()
		c.log.Printf("%-16s %s\n", to, now.Sub(c.last).Round(time.Millisecond))
		c.last = now
	}
}

func (c *conversion) fail(err error) error {
	if c.buf != nil {
		c.buf.Release()
	}
	return &FileError{File: c.in, Stage: c.stage, Err: err}
}

// Convert reads one file, transforms it and writes the result. Any
// error is a *FileError.
func (p *Pipeline) Convert(in, out string, logger *log.Logger) error {
	if logger == nil {
		logger = p.Logger
	}
	now := time.Now()
	c := conversion{p: p, in: in, out: out, log: logger, start: now, last: now}

	var err error
	if c.buf, c.shot, err = p.Decoder.Decode(in); err != nil {
		return c.fail(err)
	}
	if err := c.buf.Validate(); err != nil {
		return c.fail(err)
	}
	c.advance(Decoded)

	for _, step := range []func() error{c.expose, c.stylize, c.convertGamut, c.encodeLog} {
		if err := step(); err != nil {
			return c.fail(err)
		}
	}
	c.applyLUT()

	c.advance(Final)
	if err := p.Encoder.Encode(c.buf, out); err != nil {
		return c.fail(err)
	}
	c.buf.Release()
	c.buf = nil

	logger.Printf("wrote %s (%s)\n", out, time.Since(c.start).Round(time.Millisecond))
	return nil
}

func (c *conversion) expose() error {
	cfg := c.p.Config

	var gain float64
	if cfg.Exposure != nil {
		gain = math.Pow(2, *cfg.Exposure)
		c.log.Printf("[Exposure] manual %+.2f stops, gain %.4f\n", *cfg.Exposure, gain)
	} else {
		opts := cfg.meteringOptions()
		opts.Logger = c.log
		if cfg.Verbosity > 1 {
			opts.GridDump = strings.TrimSuffix(c.out, filepath.Ext(c.out)) + "_metering.png"
		}
		gain = metering.ComputeGain(c.p.strategy, raster.Sample(c.buf, cfg.SampleSize), c.p.source, opts)
	}

	if err := kernel.ApplyGain(c.buf, gain); err != nil {
		return err
	}
	c.advance(ExposureApplied)
	return nil
}

func (c *conversion) stylize() error {
	cfg := c.p.Config

	if cfg.LensCorrect && c.p.Lens != nil {
		next, err := c.p.Lens.Correct(c.buf, c.shot, c.log)
		switch {
		case lens.IsSkippable(err):
			c.log.Printf("[Lens] skipping correction: %v\n", err)
		case err != nil:
			return fmt.Errorf("lens correction: %w", err)
		default:
			c.buf = next
		}
	}

	err := kernel.ApplySaturationContrast(c.buf, cfg.Saturation, cfg.Contrast, cfg.Pivot, c.p.source.Luma())
	if err != nil {
		return err
	}
	c.advance(Stylized)
	return nil
}

func (c *conversion) convertGamut() error {
	if err := kernel.ApplyMatrix(c.buf, c.p.toWorking); err != nil {
		return err
	}
	if err := kernel.FloorAt(c.buf, linearFloor); err != nil {
		return err
	}
	c.advance(GamutConverted)
	return nil
}

func (c *conversion) encodeLog() error {
	if err := logcurve.Encode(c.buf, c.p.curve); err != nil {
		return err
	}
	c.advance(LogEncoded)
	return nil
}

// A LUT failure is not fatal; the log-encoded image is kept as is.
func (c *conversion) applyLUT() {
	if c.p.LUT == nil {
		return
	}
	if err := c.p.LUT.Apply(c.buf); err != nil {
		c.log.Printf("[LUT] not applied, keeping the log image: %v\n", err)
		return
	}
	c.advance(LutApplied)
}
