package metering

// Auto-exposure: look at a downsampled view of the linear image, and
// figure out a single gain to apply to it.

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/abworrall/rawalchemy/pkg/ecolor"
	"github.com/abworrall/rawalchemy/pkg/emath"
	"github.com/abworrall/rawalchemy/pkg/raster"
)

const (
	logEpsilon       = 1e-6 // added before taking logs
	geoMeanEpsilon   = 1e-4 // geometric means below this are "black"
	statEpsilon      = 1e-6 // other statistics below this are "black"
	highlightTarget  = 0.9  // highlight-safe puts the bright percentile here
	matrixGridSize   = 7
	matrixBiasWeight = 1.5
)

// ComputeGain runs the strategy over the sample. The result is always
// positive, and within the strategy's clamp range. It never modifies
// the image.
func ComputeGain(s Strategy, sample raster.SampleView, cs ecolor.Colorspace, opts Options) float64 {
	luma := cs.Luma()

	var gain float64
	switch s {
	case Average:
		gain = emath.Clamp(averageGain(luminances(sample, luma), opts.TargetGray), 1.0, 50.0)
		opts.logf("[Auto Exposure] Avg Gain: %.4f", gain)

	case CenterWeighted:
		gain = emath.Clamp(centerWeightedGain(luminances(sample, luma), opts.TargetGray), 0.1, 100.0)
		opts.logf("[Auto Exposure] Center-Weighted Gain: %.4f", gain)

	case HighlightSafe:
		peak := emath.Percentile(channelMaxes(sample), opts.PeakPercentile)
		gain = 1.0
		if peak >= statEpsilon {
			gain = highlightTarget / peak
		}
		opts.logf("[Auto Exposure] Highlight Safe Gain: %.4f", gain)

	case Hybrid:
		base := averageGain(luminances(sample, luma), opts.TargetGray)
		gain = emath.Clamp(protectPeaks(base, sample, opts, "Hybrid"), 0.1, 100.0)
		opts.logf("[Auto Exposure] Hybrid Gain: %.4f", gain)

	case Matrix:
		base := matrixGain(luminances(sample, luma), opts)
		gain = emath.Clamp(protectPeaks(base, sample, opts, "Matrix"), 0.1, 100.0)
		opts.logf("[Auto Exposure] Matrix Gain: %.4f", gain)

	default:
		opts.logf("[Auto Exposure] unknown strategy %s, leaving exposure alone", s)
		gain = 1.0
	}

	return gain
}

// luminances returns the sampled luminance as a grid, floored at zero.
func luminances(sample raster.SampleView, luma emath.Vec3) emath.FloatGrid {
	g := emath.NewFloatGrid(sample.Dx(), sample.Dy())
	sample.Each(func(x, y int, r, gr, b float32) {
		lum := luma[0]*float64(r) + luma[1]*float64(gr) + luma[2]*float64(b)
		if lum < 0 {
			lum = 0
		}
		g.Set(x, y, lum)
	})
	return g
}

func channelMaxes(sample raster.SampleView) []float64 {
	maxes := make([]float64, 0, sample.Len())
	sample.Each(func(x, y int, r, g, b float32) {
		maxes = append(maxes, float64(max(r, g, b)))
	})
	return maxes
}

// averageGain aims the geometric mean luminance at the target gray.
func averageGain(lums emath.FloatGrid, targetGray float64) float64 {
	vals := lums.Values()
	if len(vals) == 0 {
		return 1.0
	}
	logged := make([]float64, len(vals))
	for i, v := range vals {
		logged[i] = v + logEpsilon
	}
	geoMean := stat.GeometricMean(logged, nil)
	if geoMean < geoMeanEpsilon || math.IsNaN(geoMean) {
		return 1.0
	}
	return targetGray / geoMean
}

// centerWeightedGain weights each luminance with a gaussian centred
// on the middle of the frame.
func centerWeightedGain(lums emath.FloatGrid, targetGray float64) float64 {
	w, h := lums.Dx(), lums.Dy()
	if w == 0 || h == 0 {
		return 1.0
	}
	sigma := float64(min(w, h)) / 2.0
	weights := emath.NewGaussianGrid(w, h, float64(w)/2.0, float64(h)/2.0, sigma)

	weightedMean := stat.Mean(lums.Values(), weights.Values())
	if weightedMean < statEpsilon || math.IsNaN(weightedMean) {
		return 1.0
	}
	return targetGray / weightedMean
}

// matrixGain averages luminance into a 7x7 grid of zones, then weights
// the zones: center zones count more, the brightest zones much less,
// the darkest zones a little more.
func matrixGain(lums emath.FloatGrid, opts Options) float64 {
	grid := zoneGrid(lums, matrixGridSize)

	c := float64(matrixGridSize-1) / 2.0
	bias := emath.NewGaussianGrid(matrixGridSize, matrixGridSize, c, c, float64(matrixGridSize)/2.5)
	p90 := grid.Percentile(90)
	p10 := grid.Percentile(10)

	weights := emath.NewFloatGrid(matrixGridSize, matrixGridSize)
	for y := 0; y < matrixGridSize; y++ {
		for x := 0; x < matrixGridSize; x++ {
			wt := 1.0 + matrixBiasWeight*bias.Get(x, y)
			if lum := grid.Get(x, y); lum > p90 {
				wt *= 0.2
			} else if lum < p10 {
				wt *= 1.2
			}
			weights.Set(x, y, wt)
		}
	}

	if opts.GridDump != "" {
		if err := grid.ToImg("matrix metering zones", opts.GridDump, 80); err != nil {
			opts.logf("[Auto Exposure] grid dump: %v", err)
		}
	}

	weightedMean := stat.Mean(grid.Values(), weights.Values())
	if weightedMean < statEpsilon || math.IsNaN(weightedMean) {
		return 1.0
	}
	return opts.TargetGray / weightedMean
}

// zoneGrid averages the luminance into an n*n grid. Zones are
// lums.Dy()/n rows by lums.Dx()/n cols; leftover edge pixels are
// ignored, and a zone with no pixels at all reads as zero.
func zoneGrid(lums emath.FloatGrid, n int) emath.FloatGrid {
	grid := emath.NewFloatGrid(n, n)
	zw, zh := lums.Dx()/n, lums.Dy()/n
	if zw == 0 || zh == 0 {
		return grid
	}
	for zy := 0; zy < n; zy++ {
		for zx := 0; zx < n; zx++ {
			sum := 0.0
			for y := zy * zh; y < (zy+1)*zh; y++ {
				for x := zx * zw; x < (zx+1)*zw; x++ {
					sum += lums.Get(x, y)
				}
			}
			grid.Set(zx, zy, sum/float64(zw*zh))
		}
	}
	return grid
}

// protectPeaks caps the gain so that the bright percentile of channel
// maxima doesn't land above the peak ceiling.
func protectPeaks(gain float64, sample raster.SampleView, opts Options, label string) float64 {
	peak := emath.Percentile(channelMaxes(sample), opts.PeakPercentile)
	if peak*gain > opts.PeakCeiling {
		limited := opts.PeakCeiling / peak
		opts.logf("[Auto Exposure] %s limited. (Desired: %.2f -> Actual: %.2f)", label, gain, limited)
		return limited
	}
	return gain
}
