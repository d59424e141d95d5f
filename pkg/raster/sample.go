package raster

// DefaultSampleSize is the long edge, in pixels, that metering works at.
const DefaultSampleSize = 1024

// A SampleView is a strided, read-only window onto a Buffer: every
// Step'th pixel along both axes. It copies nothing, so it is only
// valid while the buffer is.
type SampleView struct {
	buf  *Buffer
	Step int
}

// Sample returns a view whose long edge is roughly `target` pixels.
func Sample(buf *Buffer, target int) SampleView {
	if target <= 0 {
		target = DefaultSampleSize
	}
	longEdge := buf.Width
	if buf.Height > longEdge {
		longEdge = buf.Height
	}
	step := longEdge / target
	if step < 1 {
		step = 1
	}
	return SampleView{buf: buf, Step: step}
}

func (s SampleView) Dx() int { return (s.buf.Width + s.Step - 1) / s.Step }
func (s SampleView) Dy() int { return (s.buf.Height + s.Step - 1) / s.Step }
func (s SampleView) Len() int { return s.Dx() * s.Dy() }

// RGB reads the sampled pixel (x,y), in view coords.
func (s SampleView) RGB(x, y int) (float32, float32, float32) {
	return s.buf.RGB(x*s.Step, y*s.Step)
}

// Each calls f on every sampled pixel, in row major order.
func (s SampleView) Each(f func(x, y int, r, g, b float32)) {
	dx, dy := s.Dx(), s.Dy()
	for y := 0; y < dy; y++ {
		for x := 0; x < dx; x++ {
			r, g, b := s.RGB(x, y)
			f(x, y, r, g, b)
		}
	}
}
