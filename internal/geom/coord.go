// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package geom holds the small geometric vocabulary shared by sources,
// transforms and the renderer: points, rectangles and affine transforms.
package geom

import (
	"errors"
	"fmt"
	"math"
)

// A 2-dimensional point with floating point coordinates.
// Either coordinate may be NaN, which marks an undefined mapping result.
type Point2D struct {
	X float64
	Y float64
}

// A 2D affine coordinate transformation.
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
type Transform2D struct {
	A float64
	B float64
	C float64
	D float64
	E float64
	F float64
}

// Returns a point with both coordinates set to NaN
func NaNPoint() Point2D {
	return Point2D{math.NaN(), math.NaN()}
}

// Returns true if either coordinate is NaN
func (p Point2D) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y)
}

func (p Point2D) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y)
}

func (t Transform2D) String() string {
	return fmt.Sprintf("x'=%.5gx %+.5gy %+.5g, y'=%.5gx %+.5gy %+.5g",
		t.A, t.B, t.C, t.D, t.E, t.F)
}

// Returns the euclidian distance between the two given points
func Dist2D(a, b Point2D) float64 {
	return math.Sqrt(Dist2DSquared(a, b))
}

// Returns the squared euclidian distance between the two given points
func Dist2DSquared(a, b Point2D) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func Add2D(a, b Point2D) Point2D {
	return Point2D{a.X + b.X, a.Y + b.Y}
}

func Sub2D(a, b Point2D) Point2D {
	return Point2D{a.X - b.X, a.Y - b.Y}
}

// Multiplies both coordinates with the given factor
func Scale2D(p Point2D, s float64) Point2D {
	return Point2D{p.X * s, p.Y * s}
}

// Returns the midpoint between a and b
func Mid2D(a, b Point2D) Point2D {
	return Point2D{(a.X + b.X) * 0.5, (a.Y + b.Y) * 0.5}
}

func IdentityTransform2D() Transform2D {
	return Transform2D{1, 0, 0, 0, 1, 0}
}

// Returns a transformation scaling x by sx and y by sy
func ScaleTransform2D(sx, sy float64) Transform2D {
	return Transform2D{sx, 0, 0, 0, sy, 0}
}

// Calculate 2D transformation matrix from three given points in first coordinate
// system, and corresponding reference points in second coordinate system.
// p1, p2, p3 are in the first system. p1p, p2p, p3p are in the second.
func NewTransform2D(p1, p2, p3, p1p, p2p, p3p Point2D) (Transform2D, error) {
	det := (p2.X-p1.X)*(p3.Y-p1.Y) - (p3.X-p1.X)*(p2.Y-p1.Y)
	if math.Abs(det) < 1e-12 {
		return Transform2D{}, errors.New("collinear points")
	}
	// Cramer's rule on the two edge vectors
	dx2, dy2 := p2.X-p1.X, p2.Y-p1.Y
	dx3, dy3 := p3.X-p1.X, p3.Y-p1.Y

	a := ((p2p.X-p1p.X)*dy3 - (p3p.X-p1p.X)*dy2) / det
	b := ((p3p.X-p1p.X)*dx2 - (p2p.X-p1p.X)*dx3) / det
	d := ((p2p.Y-p1p.Y)*dy3 - (p3p.Y-p1p.Y)*dy2) / det
	e := ((p3p.Y-p1p.Y)*dx2 - (p2p.Y-p1p.Y)*dx3) / det

	c := p1p.X - a*p1.X - b*p1.Y
	f := p1p.Y - d*p1.X - e*p1.Y
	return Transform2D{a, b, c, d, e, f}, nil
}

// Apply given 2D transformation to the given coordinates
func (t *Transform2D) Apply(p Point2D) (pP Point2D) {
	xP := t.A*p.X + t.B*p.Y + t.C
	yP := t.D*p.X + t.E*p.Y + t.F
	return Point2D{xP, yP}
}

// Apply given 2D transformation to many given coordinates
func (t *Transform2D) ApplySlice(ps []Point2D) (pPs []Point2D) {
	pPs = make([]Point2D, len(ps))
	for i, p := range ps {
		pPs[i] = t.Apply(p)
	}
	return pPs
}

// Returns the determinant of the linear part
func (t *Transform2D) Det() float64 {
	return t.A*t.E - t.B*t.D
}

// Invert a given 2D transformation. Returns error in the case of a singular matrix
func (t *Transform2D) Invert() (inv Transform2D, err error) {
	det := t.Det()
	if math.Abs(det) < 1e-12 {
		return Transform2D{}, fmt.Errorf("matrix has no inverse, det=%g", det)
	}
	return Transform2D{
		A: t.E / det,
		B: -t.B / det,
		C: (t.B*t.F - t.C*t.E) / det,
		D: -t.D / det,
		E: t.A / det,
		F: (t.C*t.D - t.A*t.F) / det,
	}, nil
}

// Returns the transformation applying t first, then u
func (t *Transform2D) Compose(u Transform2D) Transform2D {
	return Transform2D{
		A: u.A*t.A + u.B*t.D,
		B: u.A*t.B + u.B*t.E,
		C: u.A*t.C + u.B*t.F + u.C,
		D: u.D*t.A + u.E*t.D,
		E: u.D*t.B + u.E*t.E,
		F: u.D*t.C + u.E*t.F + u.F,
	}
}
