package kernel

import (
	"fmt"

	"github.com/abworrall/rawalchemy/pkg/emath"
	"github.com/abworrall/rawalchemy/pkg/raster"
)

// ApplyGain scales every channel; exposure in linear light.
func ApplyGain(buf *raster.Buffer, gain float64) error {
	g := float32(gain)
	if err := Apply(buf, func(rgb []float32) {
		rgb[0] *= g
		rgb[1] *= g
		rgb[2] *= g
	}); err != nil {
		return fmt.Errorf("gain %.4f: %w", gain, err)
	}
	return nil
}

// ApplySaturationContrast pushes each channel away from the pixel's
// luminance by `saturation`, then away from `pivot` by `contrast`.
// Results are floored at zero; there is no upper limit.
func ApplySaturationContrast(buf *raster.Buffer, saturation, contrast, pivot float64, luma emath.Vec3) error {
	s, k, p := float32(saturation), float32(contrast), float32(pivot)
	cr, cg, cb := float32(luma[0]), float32(luma[1]), float32(luma[2])

	err := Apply(buf, func(rgb []float32) {
		lum := rgb[0]*cr + rgb[1]*cg + rgb[2]*cb
		for i := 0; i < 3; i++ {
			v := lum + (rgb[i]-lum)*s
			v = (v-p)*k + p
			if v < 0 {
				v = 0
			}
			rgb[i] = v
		}
	})
	if err != nil {
		return fmt.Errorf("saturation %.2f contrast %.2f: %w", saturation, contrast, err)
	}
	return nil
}

// FloorAt lifts every channel to at least `min`.
func FloorAt(buf *raster.Buffer, min float64) error {
	m := float32(min)
	return Apply(buf, func(rgb []float32) {
		if rgb[0] < m {
			rgb[0] = m
		}
		if rgb[1] < m {
			rgb[1] = m
		}
		if rgb[2] < m {
			rgb[2] = m
		}
	})
}
