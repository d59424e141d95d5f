package emath

import (
	"fmt"
	"image"
	"math"
	"sort"

	"github.com/fogleman/gg" // Move to https://pkg.go.dev/golang.org/x/image/font#Drawer sometime
	colorful "github.com/lucasb-eyer/go-colorful"
)

// A FloatGrid is a grid of floats, with some operations
type FloatGrid struct {
	stride int
	values []float64
}

func NewFloatGrid(w, h int) FloatGrid {
	return FloatGrid{
		stride: w,
		values: make([]float64, w*h),
	}
}

func (fg *FloatGrid) Set(x, y int, v float64) { fg.values[fg.stride*y+x] = v }
func (fg *FloatGrid) Get(x, y int) float64    { return fg.values[fg.stride*y+x] }
func (fg *FloatGrid) Dx() int                 { return fg.stride }
func (fg *FloatGrid) Values() []float64       { return fg.values }

func (fg *FloatGrid) Dy() int {
	if fg.stride == 0 {
		return 0
	}
	return len(fg.values) / fg.stride
}

// NewGaussianGrid fills a grid with exp(-d^2/2sigma^2), where d is the
// distance from (cx,cy). Values peak at 1.0.
func NewGaussianGrid(w, h int, cx, cy, sigma float64) FloatGrid {
	g := NewFloatGrid(w, h)
	twoSigmaSq := 2.0 * sigma * sigma
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			g.Set(x, y, math.Exp(-(dx*dx+dy*dy)/twoSigmaSq))
		}
	}
	return g
}

// Percentile returns the p'th percentile (p in [0,100]) of the values.
// The rank is (n-1)*p/100, interpolated linearly between the two
// nearest sorted values, so the 50th percentile of 1..10 is 5.5. An
// empty input gives 0.
func Percentile(vals []float64, p float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, vals)
	sort.Float64s(sorted)

	rank := float64(n-1) * math.Max(0, math.Min(100, p)) / 100.0
	lo := int(math.Floor(rank))
	hi := min(lo+1, n-1)
	return sorted[lo] + (rank-float64(lo))*(sorted[hi]-sorted[lo])
}

func (fg *FloatGrid) Percentile(p float64) float64 { return Percentile(fg.values, p) }

func (fg *FloatGrid) MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0 * min
	for _, v := range fg.values {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return min, max
}

func (fg *FloatGrid) Stats() string {
	min, max := fg.MinMax()
	return fmt.Sprintf("fg[%dx%d, vals{%f,%f}]", fg.Dx(), fg.Dy(), min, max)
}

// ToImg saves a heatmap of the grid, blue for the min value through to
// red for the max, with each cell blown up to `cellSize` pixels square
// and its value printed in it.
func (fg *FloatGrid) ToImg(title, filename string, cellSize int) error {
	min, max := fg.MinMax()
	span := max - min
	if span <= 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, fg.Dx()*cellSize, fg.Dy()*cellSize+30))
	dc := gg.NewContextForImage(img)
	for y := 0; y < fg.Dy(); y++ {
		for x := 0; x < fg.Dx(); x++ {
			frac := (fg.Get(x, y) - min) / span
			col := colorful.Hsv(240.0*(1.0-frac), 0.8, 0.9)
			dc.SetRGB(col.R, col.G, col.B)
			dc.DrawRectangle(float64(x*cellSize), float64(y*cellSize+30), float64(cellSize), float64(cellSize))
			dc.Fill()

			dc.SetRGB(0, 0, 0)
			dc.DrawString(fmt.Sprintf("%.3f", fg.Get(x, y)), float64(x*cellSize+4), float64(y*cellSize+30+cellSize/2))
		}
	}

	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 10, 20)
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("floatgrid png '%s': %w", filename, err)
	}
	return nil
}
