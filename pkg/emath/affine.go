package emath

// 2D affine transforms, used to move between pixel coords and the
// normalized coords that lens models are expressed in.

import (
	"math"

	"golang.org/x/image/math/f64"
)

// Use a local type so we can hang methods off it
type Aff3 f64.Aff3

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p Aff3) Mult(q Aff3) Aff3 {
	return Aff3{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

func Identity() Aff3 {
	return Aff3{1, 0, 0, 0, 1, 0}
}

func (m1 Aff3) Translate(tx, ty float64) Aff3 {
	return m1.Mult(Aff3{1, 0, tx, 0, 1, ty})
}

func (m1 Aff3) Scale(s float64) Aff3 {
	return m1.Mult(Aff3{s, 0, 0, 0, s, 0})
}

func (m1 Aff3) Rotate(thetaDeg float64) Aff3 {
	cosTheta := math.Cos(thetaDeg * math.Pi / 180.0)
	sinTheta := math.Sin(thetaDeg * math.Pi / 180.0)
	return m1.Mult(Aff3{cosTheta, -1 * sinTheta, 0, sinTheta, cosTheta, 0})
}

// Transform maps the point (x,y) through the affine transform.
func (m Aff3) Transform(x, y float64) (float64, float64) {
	return m[0]*x + m[1]*y + m[2], m[3]*x + m[4]*y + m[5]
}

// Invert returns the inverse transform. A degenerate transform
// returns the identity.
func (m Aff3) Invert() Aff3 {
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 {
		return Identity()
	}
	a, b := m[4]/det, -m[1]/det
	d, e := -m[3]/det, m[0]/det
	return Aff3{a, b, -(a*m[2] + b*m[5]), d, e, -(d*m[2] + e*m[5])}
}

// PixelToNormalized builds the transform that lens models use: origin
// at the image center, and the half-diagonal mapped to 1.0.
func PixelToNormalized(w, h int) Aff3 {
	halfDiag := math.Hypot(float64(w), float64(h)) / 2.0
	if halfDiag == 0 {
		return Identity()
	}
	// Compose back to front: rightmost operations happen first
	return Identity().Scale(1.0/halfDiag).Translate(-float64(w-1)/2.0, -float64(h-1)/2.0)
}
