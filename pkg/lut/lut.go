package lut

// Color lookup tables, as loaded from .cube files and applied to a
// log-encoded buffer.

import (
	"fmt"
	"math"

	"github.com/abworrall/rawalchemy/pkg/raster"
)

// A LUT transforms a buffer in place. Implementations validate
// themselves before touching any pixel, so a failed Apply leaves the
// buffer as it was.
type LUT interface {
	Apply(buf *raster.Buffer) error
	String() string
}

// A Domain is the input range a table covers, per channel.
type Domain struct {
	Min [3]float64
	Max [3]float64
}

func DefaultDomain() Domain {
	return Domain{Max: [3]float64{1, 1, 1}}
}

func (d Domain) Validate() error {
	for i := 0; i < 3; i++ {
		if !(d.Max[i] > d.Min[i]) {
			return fmt.Errorf("channel %d domain [%g, %g] is empty", i, d.Min[i], d.Max[i])
		}
	}
	return nil
}

// index maps v into [0, n-1] grid space for channel c.
func (d Domain) index(c int, v float32, n int) float64 {
	idx := (float64(v) - d.Min[c]) * float64(n-1) / (d.Max[c] - d.Min[c])
	if idx < 0 || math.IsNaN(idx) {
		return 0
	}
	if idx > float64(n-1) {
		return float64(n - 1)
	}
	return idx
}
