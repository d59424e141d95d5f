package kernel

import (
	"fmt"

	"github.com/abworrall/rawalchemy/pkg/emath"
	"github.com/abworrall/rawalchemy/pkg/raster"
)

// ApplyMatrix replaces each pixel with M * pixel. No clamping; the
// log encoder deals with anything that goes negative.
func ApplyMatrix(buf *raster.Buffer, m emath.Mat3) error {
	var f [9]float32
	for i := range m {
		f[i] = float32(m[i])
	}

	err := Apply(buf, func(rgb []float32) {
		r, g, b := rgb[0], rgb[1], rgb[2]
		rgb[0] = f[0]*r + f[1]*g + f[2]*b
		rgb[1] = f[3]*r + f[4]*g + f[5]*b
		rgb[2] = f[6]*r + f[7]*g + f[8]*b
	})
	if err != nil {
		return fmt.Errorf("matrix: %w", err)
	}
	return nil
}
