package lens

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abworrall/rawalchemy/pkg/emath"
	"github.com/abworrall/rawalchemy/pkg/raster"
)

const testDB = `
cameras:
  - maker: Fujifilm
    model: X-T5
    crop_factor: 1.5
  - maker: Nikon
    model: Df
lenses:
  - maker: Fujifilm
    model: XF16-55mmF2.8 R LM WR
    distortion:
      - {focal: 55, a: 0, b: 0.01, c: 0}
      - {focal: 16, a: 0, b: -0.03, c: 0}
    tca:
      - {focal: 16, vr: 1.0004, vb: 0.9996}
    vignetting:
      - {focal: 16, aperture: 2.8, k1: -0.6, k2: 0.2, k3: 0}
      - {focal: 16, aperture: 8, k1: -0.2, k2: 0, k3: 0}
      - {focal: 55, aperture: 2.8, k1: -0.4, k2: 0, k3: 0}
  - maker: Nikon
    model: 200-500mm f/5.6
    distortion:
      - {focal: 200, a: 0, b: 0, c: 0.002}
`

func quietLogger() (*log.Logger, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return log.New(out, "", 0), out
}

func openTestDB(t *testing.T) *Database {
	filename := filepath.Join(t.TempDir(), "lenses.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(testDB), 0644))
	db, err := Open(filename)
	require.NoError(t, err)
	return db
}

func fujiShot() ShotInfo {
	return ShotInfo{
		CameraMake:  "FUJIFILM",
		CameraModel: "X-T5",
		LensMake:    "FUJIFILM",
		LensModel:   "XF16-55mmF2.8 R LM WR",
		FocalLength: 16,
		Aperture:    2.8,
	}
}

func TestOpen(t *testing.T) {
	db := openTestDB(t)
	assert.Len(t, db.Cameras, 2)
	assert.Len(t, db.Lenses, 2)
	assert.Equal(t, 16.0, db.Lenses[0].Distortion[0].Focal, "calibrations are sorted by focal length")
	assert.Contains(t, db.String(), "2 lenses")
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(testDB), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("lenses:\n  - {maker: Leica, model: Summilux 35}\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not yaml: ["), 0644))

	db, err := Open(dir)
	require.NoError(t, err)
	assert.Len(t, db.Lenses, 3)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("lenses:\n  - {maker: X, model: Y, colour: red}\n"), 0644))
	_, err = Open(bad)
	assert.Error(t, err, "unknown fields are rejected")

	noModel := filepath.Join(t.TempDir(), "nomodel.yaml")
	require.NoError(t, os.WriteFile(noModel, []byte("lenses:\n  - {maker: X}\n"), 0644))
	_, err = Open(noModel)
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	db := openTestDB(t)

	assert.NotNil(t, db.FindCamera("NIKON CORPORATION", "df"))
	assert.NotNil(t, db.FindCamera("", "X-T5"))
	assert.Nil(t, db.FindCamera("Canon", "X-T5"))

	l := db.FindLens("NIKON", "AF-S NIKKOR  200-500mm f/5.6E ED VR")
	require.NotNil(t, l, "profile model contained in the EXIF model")
	assert.Equal(t, "200-500mm f/5.6", l.Model)
	assert.Nil(t, db.FindLens("Fujifilm", "AF-S NIKKOR 200-500mm f/5.6E ED VR"), "maker must match")

	assert.Nil(t, db.FindLens("Fujifilm", ""))
	assert.NotNil(t, db.FindLens("FUJIFILM", "xf16-55mmf2.8 r lm wr"))
}

func TestShotInfoCheck(t *testing.T) {
	tests := []struct {
		mod  func(*ShotInfo)
		want error
	}{
		{func(*ShotInfo) {}, nil},
		{func(s *ShotInfo) { s.CameraModel = "" }, ErrMissingCameraInfo},
		{func(s *ShotInfo) { s.LensModel = "" }, ErrMissingCameraInfo},
		{func(s *ShotInfo) { s.FocalLength = 0 }, ErrMissingOpticalInfo},
		{func(s *ShotInfo) { s.Aperture = -1 }, ErrMissingOpticalInfo},
	}
	for i, tc := range tests {
		si := fujiShot()
		tc.mod(&si)
		assert.Equal(t, tc.want, si.Check(), "case %d", i)
	}
}

func TestProfileAt(t *testing.T) {
	l := openTestDB(t).FindLens("Fujifilm", "XF16-55mmF2.8 R LM WR")
	require.NotNil(t, l)

	p := l.ProfileAt(16, 2.8)
	want := Profile{
		Distortion:    [3]float64{0, -0.03, 0},
		TCA:           [2]float64{1.0004, 0.9996},
		Vignetting:    [3]float64{-0.6, 0.2, 0},
		HasDistortion: true,
		HasTCA:        true,
		HasVignetting: true,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("profile at calibration point (-want +got):\n%s", diff)
	}

	// Halfway in focal length
	p = l.ProfileAt(35.5, 2.8)
	assert.InDelta(t, -0.01, p.Distortion[1], 1e-9)
	assert.InDelta(t, -0.5, p.Vignetting[0], 1e-9)

	// Aperture interpolation at 16mm, clamped beyond the range
	assert.InDelta(t, -0.4, l.ProfileAt(16, 5.4).Vignetting[0], 1e-9)
	assert.InDelta(t, -0.2, l.ProfileAt(16, 22).Vignetting[0], 1e-9)

	// Clamped beyond the focal range
	assert.InDelta(t, 0.01, l.ProfileAt(200, 2.8).Distortion[1], 1e-9)

	bare := Lens{Model: "bare"}
	assert.Equal(t, Profile{}, bare.ProfileAt(50, 2))
}

func TestIdentityCorrection(t *testing.T) {
	buf := raster.New(24, 17)
	for i := range buf.Pix {
		buf.Pix[i] = float32(i%97) / 97
	}
	orig := buf.Clone()

	c := NewCorrector(Profile{TCA: [2]float64{1, 1}, HasDistortion: true, HasTCA: true})
	c.Logger, _ = quietLogger()
	out, err := c.Apply(buf)
	require.NoError(t, err)

	assert.True(t, buf.Released(), "input is released after a remap")
	assert.NotSame(t, buf, out)
	require.Len(t, out.Pix, len(orig.Pix))
	for i := range orig.Pix {
		assert.InDelta(t, orig.Pix[i], out.Pix[i], 1e-4, "value %d", i)
	}
}

func vignetted(w, h int, k [3]float64, v float32) *raster.Buffer {
	buf := raster.New(w, h)
	toNorm := emath.PixelToNormalized(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			nx, ny := toNorm.Transform(float64(x), float64(y))
			r2 := nx*nx + ny*ny
			f := float32(1 + k[0]*r2 + k[1]*r2*r2 + k[2]*r2*r2*r2)
			buf.SetRGB(x, y, v*f, v*f, v*f)
		}
	}
	return buf
}

func TestVignettingInPlace(t *testing.T) {
	k := [3]float64{-0.3, 0.05, 0}
	buf := vignetted(30, 20, k, 0.5)

	c := NewCorrector(Profile{Vignetting: k, HasVignetting: true})
	out, err := c.Apply(buf)
	require.NoError(t, err)

	assert.Same(t, buf, out, "vignetting alone does not need a new buffer")
	for i, v := range out.Pix {
		assert.InDelta(t, 0.5, v, 1e-5, "value %d", i)
	}
}

func TestVignettingBeforeGeometry(t *testing.T) {
	k := [3]float64{-0.3, 0.05, 0}
	buf := vignetted(30, 20, k, 0.5)

	c := NewCorrector(Profile{Vignetting: k, HasVignetting: true, TCA: [2]float64{1, 1}, HasTCA: true})
	out, err := c.Apply(buf)
	require.NoError(t, err)

	assert.NotSame(t, buf, out)
	for i, v := range out.Pix {
		assert.InDelta(t, 0.5, v, 1e-4, "the remap reads devignetted pixels, value %d", i)
	}
}

func TestBarrelCorrectionAutoScale(t *testing.T) {
	p := Profile{Distortion: [3]float64{0, 0, -0.1}, HasDistortion: true}

	c := NewCorrector(p)
	c.Logger, _ = quietLogger()
	out, err := c.Apply(raster.NewFilled(40, 30, 0.3, 0.3, 0.3))
	require.NoError(t, err)
	for i, v := range out.Pix {
		require.InDelta(t, 0.3, v, 1e-5, "no empty edges, value %d", i)
	}

	c.AutoScale = false
	out, err = c.Apply(raster.NewFilled(40, 30, 0.3, 0.3, 0.3))
	require.NoError(t, err)
	r, g, b := out.RGB(20, 0)
	assert.Equal(t, []float32{0, 0, 0}, []float32{r, g, b}, "top edge maps outside the source")
	r, _, _ = out.RGB(20, 15)
	assert.InDelta(t, 0.3, r, 1e-5)
}

func TestTCA(t *testing.T) {
	w, h := 40, 31
	buf := raster.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := float32(x) / float32(w-1)
			buf.SetRGB(x, y, v, v, v)
		}
	}

	c := NewCorrector(Profile{TCA: [2]float64{0.99, 1.0}, HasTCA: true})
	out, err := c.Apply(buf)
	require.NoError(t, err)

	r, g, b := out.RGB(w-1, 15)
	assert.InDelta(t, 1.0, g, 1e-5)
	assert.InDelta(t, 1.0, b, 1e-5)
	assert.InDelta(t, (19.5+19.5*0.99)/39, r, 1e-4, "red is pulled in towards the center")
}

func TestApplyReleased(t *testing.T) {
	buf := raster.New(4, 4)
	buf.Release()
	_, err := NewCorrector(Profile{}).Apply(buf)
	assert.Error(t, err)
}

func TestDatabaseCorrect(t *testing.T) {
	db := openTestDB(t)
	logger, logs := quietLogger()

	shot := fujiShot()
	shot.LensModel = ""
	buf := raster.NewFilled(8, 6, 0.2, 0.2, 0.2)
	out, err := db.Correct(buf, shot, logger)
	assert.ErrorIs(t, err, ErrMissingCameraInfo)
	assert.True(t, IsSkippable(err))
	assert.Same(t, buf, out)

	shot = fujiShot()
	shot.Aperture = 0
	_, err = db.Correct(buf, shot, logger)
	assert.ErrorIs(t, err, ErrMissingOpticalInfo)

	shot = fujiShot()
	shot.LensModel = "Helios 44-2"
	out, err = db.Correct(buf, shot, logger)
	assert.ErrorIs(t, err, ErrNoProfile)
	assert.True(t, IsSkippable(err))
	assert.Same(t, buf, out)
	assert.False(t, buf.Released())

	out, err = db.Correct(buf, fujiShot(), logger)
	require.NoError(t, err)
	assert.False(t, IsSkippable(err))
	assert.True(t, buf.Released())
	assert.NoError(t, out.Validate())
	assert.Contains(t, logs.String(), "[Lens] XF16-55mmF2.8 R LM WR")

	shot = fujiShot()
	shot.CameraModel = "X100V"
	_, err = db.Correct(raster.NewFilled(8, 6, 0.2, 0.2, 0.2), shot, logger)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "not in database")
}
