package emath

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMat3Inverse(t *testing.T) {
	m := Mat3{
		0.7976749, 0.1351917, 0.0313534,
		0.2880402, 0.7118741, 0.0000857,
		0.0000000, 0.0000000, 0.8252100,
	}
	inv, err := m.Inverse()
	require.NoError(t, err)

	id := m.Mult(inv)
	want := Identity3()
	for i := range id {
		assert.InDelta(t, want[i], id[i], 1e-9, "element %d", i)
	}

	v := Vec3{0.3, 0.5, 0.1}
	back := inv.Apply(m.Apply(v))
	for i := range v {
		assert.InDelta(t, v[i], back[i], 1e-9)
	}
}

func TestMat3InverseSingular(t *testing.T) {
	_, err := Mat3{1, 2, 3, 2, 4, 6, 0, 0, 1}.Inverse()
	assert.Error(t, err)
}

func TestDiagAndRow(t *testing.T) {
	v := Vec3{2, 4, 8}
	assert.Equal(t, Identity3(), v.Diag().Mult(v.InvertDiag()))
	assert.Equal(t, Vec3{4, 5, 6}, Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}.Row(1))
	assert.Equal(t, 2.0+8.0+24.0, v.Dot(Vec3{1, 2, 3}))
}

func TestAff3RoundTrip(t *testing.T) {
	m := PixelToNormalized(640, 480)

	x, y := m.Transform(319.5, 239.5)
	assert.InDelta(t, 0.0, x, 1e-12)
	assert.InDelta(t, 0.0, y, 1e-12)

	// A corner pixel center sits just inside the unit half-diagonal
	x, y = m.Transform(-0.5, -0.5)
	assert.InDelta(t, 1.0, math.Hypot(x, y), 1e-12)

	inv := m.Invert()
	px, py := inv.Transform(m.Transform(17, 401))
	assert.InDelta(t, 17.0, px, 1e-9)
	assert.InDelta(t, 401.0, py, 1e-9)
}

func TestPercentile(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 99))

	vals := []float64{}
	for i := 0; i < 100; i++ {
		vals = append(vals, 0.5)
	}
	assert.InDelta(t, 0.5, Percentile(vals, 99), 1e-12)

	vals = []float64{5, 1, 4, 2, 3}
	assert.Equal(t, 1.0, Percentile(vals, 0))
	assert.Equal(t, 5.0, Percentile(vals, 100))
	assert.Equal(t, []float64{5, 1, 4, 2, 3}, vals, "input must not be reordered")

	tenths := []float64{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
	tests := []struct {
		vals []float64
		p    float64
		want float64
	}{
		{tenths, 50, 5.5},
		{tenths, 99, 9.91},
		{tenths, 10, 1.9},
		{tenths, 90, 9.1},
		{tenths, 150, 10},
		{tenths, -5, 1},
		{[]float64{7}, 99, 7},
		{countTo(49), 10, 5.8},
		{countTo(49), 90, 44.2},
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, Percentile(tc.vals, tc.p), 1e-9, "p%v of %d values", tc.p, len(tc.vals))
	}
}

func countTo(n int) []float64 {
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = float64(i + 1)
	}
	return vals
}

func TestGaussianGrid(t *testing.T) {
	g := NewGaussianGrid(7, 7, 3, 3, 7/2.5)
	assert.Equal(t, 1.0, g.Get(3, 3))
	assert.Less(t, g.Get(0, 0), g.Get(1, 1))
	assert.InDelta(t, g.Get(0, 3), g.Get(6, 3), 1e-12)
}

func TestFloatGridToImg(t *testing.T) {
	g := NewFloatGrid(3, 2)
	for i := range g.Values() {
		g.Values()[i] = float64(i)
	}
	lo, hi := g.MinMax()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 5.0, hi)

	filename := filepath.Join(t.TempDir(), "grid.png")
	require.NoError(t, g.ToImg("test grid", filename, 40))
	assert.FileExists(t, filename)
}
