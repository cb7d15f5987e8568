package model

import "fmt"

// Fl is the floating point type used throughout the geometry and content
// stream APIs.
type Fl = float64

// Rectangle is a PDF rectangle [llx lly urx ury], not necessarily
// normalized (llx may be greater than urx in the source file).
type Rectangle struct {
	Llx, Lly, Urx, Ury Fl
}

func (r Rectangle) Width() Fl {
	w := r.Urx - r.Llx
	if w < 0 {
		return -w
	}
	return w
}

func (r Rectangle) Height() Fl {
	h := r.Ury - r.Lly
	if h < 0 {
		return -h
	}
	return h
}

func (r Rectangle) ToArray() Array {
	return Array{Real(r.Llx), Real(r.Lly), Real(r.Urx), Real(r.Ury)}
}

func RectangleFromArray(a Array) (Rectangle, bool) {
	if len(a) != 4 {
		return Rectangle{}, false
	}
	vals := make([]Fl, 4)
	for i, o := range a {
		f, ok := AsNumber(o)
		if !ok {
			return Rectangle{}, false
		}
		vals[i] = f
	}
	return Rectangle{vals[0], vals[1], vals[2], vals[3]}, true
}

// Union returns the smallest rectangle containing both r and other.
func (r Rectangle) Union(other Rectangle) Rectangle {
	return Rectangle{
		Llx: minFl(r.Llx, other.Llx),
		Lly: minFl(r.Lly, other.Lly),
		Urx: maxFl(r.Urx, other.Urx),
		Ury: maxFl(r.Ury, other.Ury),
	}
}

func minFl(a, b Fl) Fl {
	if a < b {
		return a
	}
	return b
}

func maxFl(a, b Fl) Fl {
	if a > b {
		return a
	}
	return b
}

// Matrix is a PDF affine transformation matrix [a b c d e f], representing
//
//	[ a b 0 ]
//	[ c d 0 ]
//	[ e f 1 ]
type Matrix [6]Fl

// Identity is the neutral transform.
var Identity = Matrix{1, 0, 0, 1, 0, 0}

// Mul composes m then other (apply m first, then other): for a point p,
// m.Mul(other) applied to p equals other(m(p)).
func (m Matrix) Mul(other Matrix) Matrix {
	return Matrix{
		m[0]*other[0] + m[1]*other[2],
		m[0]*other[1] + m[1]*other[3],
		m[2]*other[0] + m[3]*other[2],
		m[2]*other[1] + m[3]*other[3],
		m[4]*other[0] + m[5]*other[2] + other[4],
		m[4]*other[1] + m[5]*other[3] + other[5],
	}
}

// Translation, Scaling and Rotation build elementary matrices, composed
// in TranslateScaleRotate following translate ∘ scale ∘ rotate applied to
// content (rotate-then-scale-then-translate in user space).
func Translation(tx, ty Fl) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scaling(sx, sy Fl) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }

func RotationMatrix(degreesClockwise int) Matrix {
	switch ((degreesClockwise % 360) + 360) % 360 {
	case 90:
		return Matrix{0, -1, 1, 0, 0, 0}
	case 180:
		return Matrix{-1, 0, 0, -1, 0, 0}
	case 270:
		return Matrix{0, 1, -1, 0, 0, 0}
	default:
		return Identity
	}
}

// TranslateScaleRotate composes rotate, then scale, then translate, in
// that application order (matches mergeRotatedScaledTranslatedPage).
func TranslateScaleRotate(rotateDeg int, sx, sy, tx, ty Fl) Matrix {
	return RotationMatrix(rotateDeg).Mul(Scaling(sx, sy)).Mul(Translation(tx, ty))
}

func (m Matrix) String() string {
	return fmt.Sprintf("%s %s %s %s %s %s",
		FmtReal(m[0]), FmtReal(m[1]), FmtReal(m[2]), FmtReal(m[3]), FmtReal(m[4]), FmtReal(m[5]))
}

// DashPattern is the operand pair of the `d` content stream operator.
type DashPattern struct {
	Array []Fl
	Phase Fl
}

// Rotation is a page /Rotate value, always a multiple of 90.
type Rotation int

const (
	Zero            Rotation = 0
	Quarter         Rotation = 90
	Half            Rotation = 180
	ThreeQuarter    Rotation = 270
)

func NewRotation(degrees int) Rotation {
	d := ((degrees % 360) + 360) % 360
	// round down to a multiple of 90, per the PDF requirement
	// that /Rotate be a multiple of 90.
	d = (d / 90) * 90
	return Rotation(d)
}

func (r Rotation) Clockwise() Rotation { return NewRotation(int(r) + 90) }
