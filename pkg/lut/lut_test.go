package lut

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawalchemy/pkg/raster"
)

func nearlyEqual(a, b float32, tol float64) bool {
	return math.Abs(float64(a)-float64(b)) <= tol
}

func randomCube(size int, seed int64) *Cube3D {
	rng := rand.New(rand.NewSource(seed))
	c := NewCube3D(size)
	for i := range c.Table {
		c.Table[i] = rng.Float32()
	}
	return c
}

func TestIdentityRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	buf := raster.New(33, 21)
	for i := range buf.Pix {
		buf.Pix[i] = rng.Float32()
	}
	orig := buf.Clone()

	require.NoError(t, NewIdentity3D(4).Apply(buf))
	for i := range buf.Pix {
		require.True(t, nearlyEqual(orig.Pix[i], buf.Pix[i], 1e-6), "value %d: %f vs %f", i, orig.Pix[i], buf.Pix[i])
	}
}

func TestExactAtNodes(t *testing.T) {
	c := randomCube(4, 2)
	c.Domain = Domain{Max: [3]float64{3, 3, 3}}

	for r := 0; r < 4; r++ {
		for g := 0; g < 4; g++ {
			for b := 0; b < 4; b++ {
				wr, wg, wb := c.At(r, g, b)
				gr, gg, gb := c.Lookup(float32(r), float32(g), float32(b))
				assert.Equal(t, []float32{wr, wg, wb}, []float32{gr, gg, gb}, "node %d,%d,%d", r, g, b)
			}
		}
	}
}

func TestDomainClamping(t *testing.T) {
	c := randomCube(5, 3)
	c.Domain = Domain{Min: [3]float64{-0.5, 0, 0}, Max: [3]float64{1, 2, 1}}

	tests := []struct {
		in, clamped [3]float32
	}{
		{[3]float32{-3, 0.5, 0.5}, [3]float32{-0.5, 0.5, 0.5}},
		{[3]float32{5, 0.5, 0.5}, [3]float32{1, 0.5, 0.5}},
		{[3]float32{0.2, 9, -1}, [3]float32{0.2, 2, 0}},
		{[3]float32{0.2, float32(math.Inf(1)), 0.3}, [3]float32{0.2, 2, 0.3}},
	}
	for _, tc := range tests {
		r1, g1, b1 := c.Lookup(tc.in[0], tc.in[1], tc.in[2])
		r2, g2, b2 := c.Lookup(tc.clamped[0], tc.clamped[1], tc.clamped[2])
		assert.Equal(t, []float32{r2, g2, b2}, []float32{r1, g1, b1}, "input %v", tc.in)
	}
}

func TestContinuity(t *testing.T) {
	c := randomCube(9, 4)
	rng := rand.New(rand.NewSource(5))
	const delta = 1e-4

	// Largest possible slope is bounded by the table's value range
	// times the grid density, per unit step in each channel.
	bound := 3 * float64(c.Size-1) * delta * 1.01

	for i := 0; i < 2000; i++ {
		r, g, b := rng.Float32(), rng.Float32(), rng.Float32()
		r1, g1, b1 := c.Lookup(r, g, b)
		r2, g2, b2 := c.Lookup(r+delta, g+delta, b-delta)
		assert.LessOrEqual(t, math.Abs(float64(r1-r2)), bound)
		assert.LessOrEqual(t, math.Abs(float64(g1-g2)), bound)
		assert.LessOrEqual(t, math.Abs(float64(b1-b2)), bound)
	}
}

// For a table that is linear in its coordinates, every tetrahedron
// reproduces the linear function exactly.
func TestAllTetrahedraOnLinearTable(t *testing.T) {
	c := NewCube3D(3)
	for r := 0; r < 3; r++ {
		for g := 0; g < 3; g++ {
			for b := 0; b < 3; b++ {
				x, y, z := float32(r)/2, float32(g)/2, float32(b)/2
				c.Set(r, g, b, 0.5*x+0.25*y+0.125*z, y-z, 2*z)
			}
		}
	}

	// One point per ordering of the fractions
	points := [][3]float32{
		{0.40, 0.30, 0.10}, // dx >= dy >= dz
		{0.40, 0.10, 0.30}, // dx >= dz >= dy
		{0.30, 0.10, 0.40}, // dz >= dx >= dy
		{0.30, 0.40, 0.10}, // dy >= dx >= dz
		{0.10, 0.40, 0.30}, // dy >= dz >= dx
		{0.10, 0.30, 0.40}, // dz >= dy >= dx
	}
	for _, p := range points {
		r, g, b := c.Lookup(p[0], p[1], p[2])
		assert.InDelta(t, 0.5*p[0]+0.25*p[1]+0.125*p[2], r, 1e-6, "%v", p)
		assert.InDelta(t, p[1]-p[2], g, 1e-6, "%v", p)
		assert.InDelta(t, 2*p[2], b, 1e-6, "%v", p)
	}
}

func TestInvalidLUTLeavesBufferAlone(t *testing.T) {
	buf := raster.NewFilled(4, 4, 0.2, 0.4, 0.6)
	orig := buf.Clone()

	bad := NewIdentity3D(4)
	bad.Table = bad.Table[:len(bad.Table)-3]
	assert.Error(t, bad.Apply(buf))

	empty := NewIdentity3D(4)
	empty.Domain = Domain{Min: [3]float64{1, 0, 0}, Max: [3]float64{1, 1, 1}}
	assert.Error(t, empty.Apply(buf))

	assert.Error(t, ApplyTetrahedral(buf, nil, 1, DefaultDomain()))
	assert.Equal(t, orig.Pix, buf.Pix)
}

const identity2Cube = `# made by hand
TITLE "tiny identity"
LUT_3D_SIZE 2
DOMAIN_MIN 0.0 0.0 0.0
DOMAIN_MAX 1.0 1.0 1.0

0 0 0
1 0 0
0 1 0
1 1 0
0 0 1
1 0 1
0 1 1
1 1 1
`

func TestParse3D(t *testing.T) {
	l, err := Parse(strings.NewReader(identity2Cube))
	require.NoError(t, err)
	c, ok := l.(*Cube3D)
	require.True(t, ok)

	assert.Equal(t, "tiny identity", c.Title)
	assert.Equal(t, 2, c.Size)
	if diff := cmp.Diff(NewIdentity3D(2).Table, c.Table); diff != "" {
		t.Errorf("red must vary fastest (-want +got):\n%s", diff)
	}
	assert.Contains(t, c.String(), "tiny identity")
}

func TestParseInputRange(t *testing.T) {
	src := strings.Replace(identity2Cube, "DOMAIN_MIN 0.0 0.0 0.0\nDOMAIN_MAX 1.0 1.0 1.0", "LUT_3D_INPUT_RANGE -0.25 1.5", 1)
	l, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, Domain{Min: [3]float64{-0.25, -0.25, -0.25}, Max: [3]float64{1.5, 1.5, 1.5}}, l.(*Cube3D).Domain)
}

func TestParse1D(t *testing.T) {
	src := "LUT_1D_SIZE 3\n0 0 1\n0.25 0.5 0.5\n1 1 0\n"
	l, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	c, ok := l.(*Cube1D)
	require.True(t, ok)

	buf := raster.NewFilled(2, 2, 0.25, 0.5, 0.75)
	require.NoError(t, c.Apply(buf))
	r, g, b := buf.RGB(1, 1)
	assert.InDelta(t, 0.125, r, 1e-6)
	assert.InDelta(t, 0.5, g, 1e-6)
	assert.InDelta(t, 0.25, b, 1e-6)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"no size":        "0 0 0\n",
		"both sizes":     "LUT_1D_SIZE 2\nLUT_3D_SIZE 2\n",
		"short table":    "LUT_3D_SIZE 2\n0 0 0\n",
		"bad number":     "LUT_1D_SIZE 2\n0 0 0\n1 x 1\n",
		"two columns":    "LUT_1D_SIZE 2\n0 0\n1 1\n",
		"bad size":       "LUT_3D_SIZE one\n",
		"size too small": "LUT_3D_SIZE 1\n0 0 0\n",
		"keyword late":   "LUT_1D_SIZE 2\n0 0 0\nDOMAIN_MAX 1 1 1\n1 1 1\n",
		"empty domain":   "LUT_1D_SIZE 2\nDOMAIN_MIN 1 1 1\n0 0 0\n1 1 1\n",
	}
	for name, src := range tests {
		_, err := Parse(strings.NewReader(src))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "id.cube")
	require.NoError(t, os.WriteFile(filename, []byte(identity2Cube), 0644))

	l, err := Load(filename)
	require.NoError(t, err)
	assert.IsType(t, &Cube3D{}, l)

	_, err = Load(filepath.Join(t.TempDir(), "missing.cube"))
	assert.Error(t, err)
}
