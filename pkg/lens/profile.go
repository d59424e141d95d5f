package lens

import (
	"fmt"
	"sort"
)

// A Profile is a lens's calibration at one focal length and aperture.
type Profile struct {
	Distortion    [3]float64 // a, b, c
	TCA           [2]float64 // vr, vb
	Vignetting    [3]float64 // k1, k2, k3
	HasDistortion bool
	HasTCA        bool
	HasVignetting bool
}

func (p Profile) String() string {
	s := "Profile["
	if p.HasDistortion {
		s += fmt.Sprintf(" ptlens a=%.5f b=%.5f c=%.5f", p.Distortion[0], p.Distortion[1], p.Distortion[2])
	}
	if p.HasTCA {
		s += fmt.Sprintf(" tca vr=%.5f vb=%.5f", p.TCA[0], p.TCA[1])
	}
	if p.HasVignetting {
		s += fmt.Sprintf(" pa k1=%.5f k2=%.5f k3=%.5f", p.Vignetting[0], p.Vignetting[1], p.Vignetting[2])
	}
	return s + " ]"
}

// ProfileAt interpolates the calibration points linearly in focal
// length (and, for vignetting, aperture). Values outside the
// calibrated range take the nearest calibration.
func (l *Lens) ProfileAt(focal, aperture float64) Profile {
	p := Profile{}

	if n := len(l.Distortion); n > 0 {
		xs := make([]float64, n)
		ys := make([][]float64, n)
		for i, d := range l.Distortion {
			xs[i], ys[i] = d.Focal, []float64{d.A, d.B, d.C}
		}
		v := interpolate(xs, ys, focal)
		p.Distortion = [3]float64{v[0], v[1], v[2]}
		p.HasDistortion = true
	}

	if n := len(l.TCA); n > 0 {
		xs := make([]float64, n)
		ys := make([][]float64, n)
		for i, t := range l.TCA {
			xs[i], ys[i] = t.Focal, []float64{t.VR, t.VB}
		}
		v := interpolate(xs, ys, focal)
		p.TCA = [2]float64{v[0], v[1]}
		p.HasTCA = true
	}

	if len(l.Vignetting) > 0 {
		// Interpolate over aperture within each calibrated focal length,
		// then over focal length.
		byFocal := map[float64][]Vignetting{}
		for _, v := range l.Vignetting {
			byFocal[v.Focal] = append(byFocal[v.Focal], v)
		}
		focals := []float64{}
		for f := range byFocal {
			focals = append(focals, f)
		}
		sort.Float64s(focals)

		ys := make([][]float64, len(focals))
		for i, f := range focals {
			group := byFocal[f]
			apXs := make([]float64, len(group))
			apYs := make([][]float64, len(group))
			for j, v := range group {
				apXs[j], apYs[j] = v.Aperture, []float64{v.K1, v.K2, v.K3}
			}
			ys[i] = interpolate(apXs, apYs, aperture)
		}
		v := interpolate(focals, ys, focal)
		p.Vignetting = [3]float64{v[0], v[1], v[2]}
		p.HasVignetting = true
	}

	return p
}

// interpolate does piecewise linear interpolation of the vectors ys,
// placed at the sorted positions xs.
func interpolate(xs []float64, ys [][]float64, x float64) []float64 {
	n := len(xs)
	if x <= xs[0] {
		return ys[0]
	} else if x >= xs[n-1] {
		return ys[n-1]
	}

	i := sort.SearchFloat64s(xs, x) // xs[i-1] < x <= xs[i]
	x0, x1 := xs[i-1], xs[i]
	if x1 == x0 {
		return ys[i]
	}
	frac := (x - x0) / (x1 - x0)

	out := make([]float64, len(ys[i]))
	for j := range out {
		out[j] = ys[i-1][j] + (ys[i][j]-ys[i-1][j])*frac
	}
	return out
}
