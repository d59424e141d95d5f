package lut

import (
	"fmt"

	"github.com/abworrall/rawalchemy/pkg/raster"
)

// Cube1D is a per-channel curve: Size entries of RGB, each channel
// looked up independently with linear interpolation.
type Cube1D struct {
	Title  string
	Size   int
	Domain Domain
	Table  []float32 // Size * 3
}

func NewCube1D(size int) *Cube1D {
	return &Cube1D{
		Size:   size,
		Domain: DefaultDomain(),
		Table:  make([]float32, size*3),
	}
}

func (c *Cube1D) String() string {
	return fmt.Sprintf("1D LUT '%s' [%d, domain %v..%v]", c.Title, c.Size, c.Domain.Min, c.Domain.Max)
}

func (c *Cube1D) Validate() error {
	if c.Size < 2 {
		return fmt.Errorf("1D LUT size %d too small", c.Size)
	}
	if len(c.Table) != c.Size*3 {
		return fmt.Errorf("1D LUT size %d wants %d values, has %d", c.Size, c.Size*3, len(c.Table))
	}
	return c.Domain.Validate()
}

func (c *Cube1D) lookup(ch int, v float32) float32 {
	idx := c.Domain.index(ch, v, c.Size)
	i0 := int(idx)
	i1 := min(i0+1, c.Size-1)
	f := float32(idx - float64(i0))
	return c.Table[i0*3+ch]*(1-f) + c.Table[i1*3+ch]*f
}

func (c *Cube1D) Apply(buf *raster.Buffer) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("1D LUT: %w", err)
	}
	if buf.Released() {
		return fmt.Errorf("1D LUT: released buffer")
	}
	return raster.EachRow(buf, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := buf.Row(y)
			for i := 0; i < len(row); i += 3 {
				row[i] = c.lookup(0, row[i])
				row[i+1] = c.lookup(1, row[i+1])
				row[i+2] = c.lookup(2, row[i+2])
			}
		}
	})
}
