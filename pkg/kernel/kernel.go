package kernel

// In-place pixel kernels. Every kernel is a PixelFunc run over all
// pixels, with rows split up across CPUs.

import (
	"fmt"

	"github.com/abworrall/rawalchemy/pkg/raster"
)

// A PixelFunc mutates a single RGB triple in place.
type PixelFunc func(rgb []float32)

// Apply runs pf over every pixel of the buffer.
func Apply(buf *raster.Buffer, pf PixelFunc) error {
	if buf.Released() {
		return fmt.Errorf("kernel applied to released buffer")
	}
	return raster.EachRow(buf, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := buf.Row(y)
			for i := 0; i < len(row); i += 3 {
				pf(row[i : i+3 : i+3])
			}
		}
	})
}
