package ecolor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawalchemy/pkg/emath"
)

func nearlyEqualMat(t *testing.T, want, got emath.Mat3, tol float64) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d\nwant:\n%s\ngot:\n%s", i, want, got)
	}
}

func TestSRGBMatrix(t *testing.T) {
	cs, err := Lookup(SRGB)
	require.NoError(t, err)

	// The well known sRGB -> XYZ(D65) matrix
	nearlyEqualMat(t, emath.Mat3{
		0.4124, 0.3576, 0.1805,
		0.2126, 0.7152, 0.0722,
		0.0193, 0.1192, 0.9505,
	}, cs.ToXYZ, 2e-4)

	luma := cs.Luma()
	assert.InDelta(t, 1.0, luma[0]+luma[1]+luma[2], 1e-9)
}

func TestProPhotoMatrix(t *testing.T) {
	cs, err := Lookup(ProPhotoRGB)
	require.NoError(t, err)

	nearlyEqualMat(t, emath.Mat3{
		0.7977, 0.1352, 0.0313,
		0.2880, 0.7119, 0.0001,
		0.0000, 0.0000, 0.8251,
	}, cs.ToXYZ, 5e-4)
}

func TestEveryWorkingSpaceResolves(t *testing.T) {
	for _, logSpace := range ListLogSpaces() {
		cs, err := WorkingSpaceFor(logSpace)
		require.NoError(t, err, logSpace)

		// White maps to white, with Y=1
		white := cs.ToXYZ.Apply(emath.Vec3{1, 1, 1})
		assert.InDelta(t, 1.0, white[1], 1e-9, logSpace)

		id := cs.ToXYZ.Mult(cs.FromXYZ)
		nearlyEqualMat(t, emath.Identity3(), id, 1e-9)
	}
}

func TestWorkingSpaceTable(t *testing.T) {
	tests := []struct {
		logSpace, gamut, curve string
	}{
		{"F-Log2C", FGamutC, "F-Log2"},
		{"F-Log2", FGamut, "F-Log2"},
		{"S-Log3.Cine", SGamut3Cine, "S-Log3"},
		{"S-Log3", SGamut3, "S-Log3"},
		{"L-Log", BT2020, "L-Log"},
		{"Log3G10", REDWideGamutRGB, "Log3G10"},
	}
	for _, tc := range tests {
		cs, err := WorkingSpaceFor(tc.logSpace)
		require.NoError(t, err)
		assert.Equal(t, tc.gamut, cs.Name)
		assert.Equal(t, tc.curve, EncodingCurveFor(tc.logSpace))
	}

	_, err := WorkingSpaceFor("Z-Log")
	assert.Error(t, err)
	assert.False(t, IsLogSpace("Z-Log"))
	assert.Len(t, ListLogSpaces(), 14)
}

func TestRGBToRGB(t *testing.T) {
	pro, _ := Lookup(ProPhotoRGB)
	srgb, _ := Lookup(SRGB)

	// Same space is the identity
	nearlyEqualMat(t, emath.Identity3(), RGBToRGB(srgb, srgb), 1e-9)

	// Neutral stays neutral across a white point change
	m := RGBToRGB(pro, srgb)
	gray := m.Apply(emath.Vec3{0.18, 0.18, 0.18})
	assert.InDelta(t, 0.18, gray[0], 1e-3)
	assert.InDelta(t, 0.18, gray[1], 1e-3)
	assert.InDelta(t, 0.18, gray[2], 1e-3)

	// And there and back again
	back := RGBToRGB(srgb, pro).Mult(m)
	nearlyEqualMat(t, emath.Identity3(), back, 1e-9)
}

func TestChromaticAdaptation(t *testing.T) {
	m := ChromaticAdaptation(WhiteD50, WhiteD65)
	d50 := xyToXYZ(WhiteD50)
	got := m.Apply(d50)
	want := xyToXYZ(WhiteD65)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}
}
