package alchemy

import (
	"fmt"
	"log"

	"gopkg.in/yaml.v2"

	"github.com/abworrall/rawalchemy/pkg/ecolor"
	"github.com/abworrall/rawalchemy/pkg/imgio"
	"github.com/abworrall/rawalchemy/pkg/logcurve"
	"github.com/abworrall/rawalchemy/pkg/metering"
	"github.com/abworrall/rawalchemy/pkg/raster"
)

type Config struct {
	Verbosity int

	LogSpace   string   // e.g. "F-Log2"; picks both the working gamut and the encoding curve
	Exposure   *float64 // Manual exposure, in stops. If nil, the scene is metered
	Metering   string   // How to meter the scene; see metering.ListStrategies()
	TargetGray float64  // Where metering puts the scene's average luminance

	LutPath      string // Optional .cube file, applied after log encoding
	LensCorrect  bool
	LensDatabase string // YAML file or dir of lens profiles

	Saturation float64
	Contrast   float64
	Pivot      float64 // Contrast is expanded around this value

	PeakCeiling    float64 // Highest value the bright percentile may reach after gain
	PeakPercentile float64
	SampleSize     int // Metering looks at roughly this many pixels along the long edge

	OutputFormat string // "tif" or "hdr"
	PreviewWidth int    // If >0, also write a PNG preview this wide
	Jobs         int    // How many files to convert at once
}

func NewConfig() Config {
	mopts := metering.DefaultOptions()
	return Config{
		Metering:       "hybrid",
		TargetGray:     mopts.TargetGray,
		LensCorrect:    true,
		Saturation:     1.25,
		Contrast:       1.10,
		Pivot:          0.18,
		PeakCeiling:    mopts.PeakCeiling,
		PeakPercentile: mopts.PeakPercentile,
		SampleSize:     raster.DefaultSampleSize,
		OutputFormat:   "tif",
		Jobs:           4,
	}
}

func newConfigFromYaml(b []byte) (Config, error) {
	c := NewConfig()
	err := yaml.UnmarshalStrict(b, &c)
	return c, err
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Printf("Can't marshal config yaml: %v\n", err)
		return ""
	}
	return string(b)
}

// Finalize checks everything that can be checked before touching any
// pixels. All problems come back as a *ConfigError.
func (c Config) Finalize() error {
	if !ecolor.IsLogSpace(c.LogSpace) {
		return &ConfigError{"LogSpace", c.LogSpace, fmt.Sprintf("want one of %v", ecolor.ListLogSpaces())}
	}
	if _, err := ecolor.WorkingSpaceFor(c.LogSpace); err != nil {
		return &ConfigError{"LogSpace", c.LogSpace, err.Error()}
	}
	if _, err := logcurve.Lookup(ecolor.EncodingCurveFor(c.LogSpace)); err != nil {
		return &ConfigError{"LogSpace", c.LogSpace, err.Error()}
	}

	if _, err := metering.ParseStrategy(c.Metering); err != nil {
		return &ConfigError{"Metering", c.Metering, err.Error()}
	}

	if !imgio.IsSupportedOutput(c.OutputFormat) {
		return &ConfigError{"OutputFormat", c.OutputFormat, "want tif or hdr"}
	}

	positive := []struct {
		name string
		val  float64
	}{
		{"TargetGray", c.TargetGray},
		{"Saturation", c.Saturation},
		{"Contrast", c.Contrast},
		{"Pivot", c.Pivot},
		{"PeakCeiling", c.PeakCeiling},
		{"PeakPercentile", c.PeakPercentile},
	}
	for _, p := range positive {
		if !(p.val > 0) {
			return &ConfigError{p.name, fmt.Sprintf("%g", p.val), "must be > 0"}
		}
	}
	if c.PeakPercentile > 100 {
		return &ConfigError{"PeakPercentile", fmt.Sprintf("%g", c.PeakPercentile), "must be <= 100"}
	}
	if c.SampleSize < 1 {
		return &ConfigError{"SampleSize", fmt.Sprintf("%d", c.SampleSize), "must be >= 1"}
	}
	if c.Jobs < 1 {
		return &ConfigError{"Jobs", fmt.Sprintf("%d", c.Jobs), "must be >= 1"}
	}
	if c.PreviewWidth < 0 {
		return &ConfigError{"PreviewWidth", fmt.Sprintf("%d", c.PreviewWidth), "must be >= 0"}
	}

	return nil
}

func (c Config) meteringOptions() metering.Options {
	return metering.Options{
		TargetGray:     c.TargetGray,
		PeakCeiling:    c.PeakCeiling,
		PeakPercentile: c.PeakPercentile,
	}
}
