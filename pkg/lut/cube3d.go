package lut

import (
	"fmt"

	"github.com/abworrall/rawalchemy/pkg/raster"
)

// Cube3D is an N*N*N table of RGB outputs. Entry (r,g,b) lives at
// Table[((r*N + g)*N + b)*3 :]. Immutable once loaded, so one table
// can be shared across goroutines.
type Cube3D struct {
	Title  string
	Size   int
	Domain Domain
	Table  []float32
}

func NewCube3D(size int) *Cube3D {
	return &Cube3D{
		Size:   size,
		Domain: DefaultDomain(),
		Table:  make([]float32, size*size*size*3),
	}
}

// NewIdentity3D builds a table where every node maps to its own
// normalized coordinate.
func NewIdentity3D(size int) *Cube3D {
	c := NewCube3D(size)
	scale := float32(size - 1)
	for r := 0; r < size; r++ {
		for g := 0; g < size; g++ {
			for b := 0; b < size; b++ {
				c.Set(r, g, b, float32(r)/scale, float32(g)/scale, float32(b)/scale)
			}
		}
	}
	return c
}

func (c *Cube3D) offset(r, g, b int) int { return ((r*c.Size+g)*c.Size + b) * 3 }

func (c *Cube3D) Set(r, g, b int, vr, vg, vb float32) {
	i := c.offset(r, g, b)
	c.Table[i], c.Table[i+1], c.Table[i+2] = vr, vg, vb
}

func (c *Cube3D) At(r, g, b int) (float32, float32, float32) {
	i := c.offset(r, g, b)
	return c.Table[i], c.Table[i+1], c.Table[i+2]
}

func (c *Cube3D) String() string {
	return fmt.Sprintf("3D LUT '%s' [%d^3, domain %v..%v]", c.Title, c.Size, c.Domain.Min, c.Domain.Max)
}

func (c *Cube3D) Validate() error {
	if c.Size < 2 {
		return fmt.Errorf("3D LUT size %d too small", c.Size)
	}
	if want := c.Size * c.Size * c.Size * 3; len(c.Table) != want {
		return fmt.Errorf("3D LUT size %d wants %d values, has %d", c.Size, want, len(c.Table))
	}
	return c.Domain.Validate()
}

func (c *Cube3D) Apply(buf *raster.Buffer) error {
	return ApplyTetrahedral(buf, c.Table, c.Size, c.Domain)
}

// ApplyTetrahedral maps every pixel through the table. Each pixel's
// grid cell is split into six tetrahedra; the one holding the pixel is
// picked by ordering the fractional offsets, and its four corners are
// blended with barycentric weights. Inputs outside the domain clamp
// to its edges.
func ApplyTetrahedral(buf *raster.Buffer, table []float32, size int, dom Domain) error {
	c := &Cube3D{Size: size, Domain: dom, Table: table}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("tetrahedral: %w", err)
	}
	if buf.Released() {
		return fmt.Errorf("tetrahedral: released buffer")
	}

	return raster.EachRow(buf, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := buf.Row(y)
			for i := 0; i < len(row); i += 3 {
				row[i], row[i+1], row[i+2] = c.Lookup(row[i], row[i+1], row[i+2])
			}
		}
	})
}

// Lookup interpolates a single RGB triple.
func (c *Cube3D) Lookup(r, g, b float32) (float32, float32, float32) {
	n := c.Size
	ir, ig, ib := c.Domain.index(0, r, n), c.Domain.index(1, g, n), c.Domain.index(2, b, n)
	x0, y0, z0 := int(ir), int(ig), int(ib)
	x1, y1, z1 := min(x0+1, n-1), min(y0+1, n-1), min(z0+1, n-1)
	dx, dy, dz := ir-float64(x0), ig-float64(y0), ib-float64(z0)

	c000 := c.offset(x0, y0, z0)
	c111 := c.offset(x1, y1, z1)

	// The walk from c000 to c111 steps along the axes in order of
	// decreasing fraction; cA and cB are the two intermediate corners.
	var cA, cB int
	var w0, wA, wB, w1 float64
	switch {
	case dx >= dy && dy >= dz:
		cA, cB = c.offset(x1, y0, z0), c.offset(x1, y1, z0)
		w0, wA, wB, w1 = 1-dx, dx-dy, dy-dz, dz
	case dx >= dz && dz >= dy:
		cA, cB = c.offset(x1, y0, z0), c.offset(x1, y0, z1)
		w0, wA, wB, w1 = 1-dx, dx-dz, dz-dy, dy
	case dz >= dx && dx >= dy:
		cA, cB = c.offset(x0, y0, z1), c.offset(x1, y0, z1)
		w0, wA, wB, w1 = 1-dz, dz-dx, dx-dy, dy
	case dy >= dx && dx >= dz:
		cA, cB = c.offset(x0, y1, z0), c.offset(x1, y1, z0)
		w0, wA, wB, w1 = 1-dy, dy-dx, dx-dz, dz
	case dy >= dz && dz >= dx:
		cA, cB = c.offset(x0, y1, z0), c.offset(x0, y1, z1)
		w0, wA, wB, w1 = 1-dy, dy-dz, dz-dx, dx
	default: // dz >= dy >= dx
		cA, cB = c.offset(x0, y0, z1), c.offset(x0, y1, z1)
		w0, wA, wB, w1 = 1-dz, dz-dy, dy-dx, dx
	}

	t := c.Table
	var out [3]float32
	for k := 0; k < 3; k++ {
		out[k] = float32(w0*float64(t[c000+k]) + wA*float64(t[cA+k]) + wB*float64(t[cB+k]) + w1*float64(t[c111+k]))
	}
	return out[0], out[1], out[2]
}
