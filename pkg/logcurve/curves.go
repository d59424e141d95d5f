package logcurve

// Camera log encodings. Each maps linear scene reflectance (0.18 is
// mid gray) to a normalized code value, mostly in [0,1].

import (
	"math"
)

// A Curve maps one linear value to its encoded value.
type Curve func(x float64) float64

var curves = map[string]Curve{
	"F-Log":       FLog,
	"F-Log2":      FLog2,
	"V-Log":       VLog,
	"N-Log":       NLog,
	"L-Log":       LLog,
	"Canon Log 2": CanonLog2,
	"Canon Log 3": CanonLog3,
	"S-Log3":      SLog3,
	"Arri LogC3":  LogC3,
	"Arri LogC4":  LogC4,
	"Log3G10":     Log3G10,
	"D-Log":       DLog,
}

// fujiLog holds the constants shared by the F-Log family.
type fujiLog struct {
	a, b, c, d, e, f, cut float64
}

func (fl fujiLog) encode(x float64) float64 {
	if x >= fl.cut {
		return fl.c*math.Log10(fl.a*x+fl.b) + fl.d
	}
	return fl.e*x + fl.f
}

var (
	fLogConstants  = fujiLog{a: 0.555556, b: 0.009468, c: 0.344676, d: 0.790453, e: 8.735631, f: 0.092864, cut: 0.00089}
	fLog2Constants = fujiLog{a: 5.555556, b: 0.064829, c: 0.245281, d: 0.384316, e: 8.799461, f: 0.092864, cut: 0.000889}
)

func FLog(x float64) float64  { return fLogConstants.encode(x) }
func FLog2(x float64) float64 { return fLog2Constants.encode(x) }

// Panasonic
func VLog(x float64) float64 {
	if x < 0.01 {
		return 5.6*x + 0.125
	}
	return 0.241514*math.Log10(x+0.00873) + 0.598206
}

// Nikon; the constants are 10-bit code values.
func NLog(x float64) float64 {
	if x < 0.328 {
		return 650.0 * math.Cbrt(x+0.0075) / 1023.0
	}
	return (150.0*math.Log(x) + 619.0) / 1023.0
}

// Leica
func LLog(x float64) float64 {
	if x <= 0.006 {
		return 8.0*x + 0.09
	}
	return 0.27*math.Log10(1.3*x+0.0115) + 0.6
}

// Canon's curves take reflection, where 0.9 is the 100% white.
func CanonLog2(x float64) float64 {
	x /= 0.9
	if x < 0 {
		return -0.281863093*math.Log10(-x*87.09937546+1) + 0.035388128
	}
	return 0.281863093*math.Log10(x*87.09937546+1) + 0.035388128
}

func CanonLog3(x float64) float64 {
	x /= 0.9
	switch {
	case x < -0.014:
		return -0.36726845*math.Log10(-x*14.98325+1) + 0.12783901
	case x <= 0.014:
		return 1.9754798*x + 0.12512219
	default:
		return 0.36726845*math.Log10(x*14.98325+1) + 0.12240537
	}
}

// Sony
func SLog3(x float64) float64 {
	if x >= 0.01125 {
		return (420.0 + math.Log10((x+0.01)/(0.18+0.01))*261.5) / 1023.0
	}
	return (x*(171.2102946929-95.0)/0.01125 + 95.0) / 1023.0
}

// ARRI LogC3, at EI 800
func LogC3(x float64) float64 {
	const (
		cut = 0.010591
		a   = 5.555556
		b   = 0.052272
		c   = 0.247190
		d   = 0.385537
		e   = 5.367655
		f   = 0.092809
	)
	if x > cut {
		return c*math.Log10(a*x+b) + d
	}
	return e*x + f
}

var logC4 = func() struct{ a, b, c, s, t float64 } {
	a := (math.Pow(2, 18) - 16) / 117.45
	b := (1023.0 - 95.0) / 1023.0
	c := 95.0 / 1023.0
	s := (7 * math.Ln2 * math.Pow(2, 7-14*c/b)) / (a * b)
	t := (math.Pow(2, 14*(-c/b)+6) - 64) / a
	return struct{ a, b, c, s, t float64 }{a, b, c, s, t}
}()

// ARRI LogC4
func LogC4(x float64) float64 {
	if x >= logC4.t {
		return (math.Log2(logC4.a*x+64)-6)/14*logC4.b + logC4.c
	}
	return (x - logC4.t) / logC4.s
}

// RED Log3G10
func Log3G10(x float64) float64 {
	x += 0.01
	if x < 0 {
		return x * 15.1927
	}
	return 0.224282 * math.Log10(x*155.975327+1)
}

// DJI
func DLog(x float64) float64 {
	if x <= 0.0078 {
		return 6.025*x + 0.0929
	}
	return math.Log10(x*0.9892+0.0108)*0.256663 + 0.584555
}
