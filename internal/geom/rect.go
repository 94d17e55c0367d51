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

package geom

import (
	"fmt"
	"image"
	"math"
)

// A 2-dimensional rectangle with floating point coordinates
type Rect2D struct {
	A Point2D // minimum corner
	B Point2D // maximum corner
}

func (r Rect2D) String() string {
	return fmt.Sprintf("(%v, %v)", r.A, r.B)
}

// Returns the smallest rectangle containing all given points. NaN points are skipped.
// ok is false if no valid point was given
func BoundingRect2D(pts ...Point2D) (r Rect2D, ok bool) {
	r = Rect2D{Point2D{math.Inf(1), math.Inf(1)}, Point2D{math.Inf(-1), math.Inf(-1)}}
	for _, p := range pts {
		if p.IsNaN() {
			continue
		}
		r.A.X, r.A.Y = math.Min(r.A.X, p.X), math.Min(r.A.Y, p.Y)
		r.B.X, r.B.Y = math.Max(r.B.X, p.X), math.Max(r.B.Y, p.Y)
		ok = true
	}
	return r, ok
}

func (r Rect2D) Width() float64  { return r.B.X - r.A.X }
func (r Rect2D) Height() float64 { return r.B.Y - r.A.Y }

// Rounds the corners outward and returns the integer rectangle covering all
// pixel centres within r. The maximum corner is treated as inclusive.
func (r Rect2D) RoundOut() image.Rectangle {
	return RectFromCorners(r.A, r.B)
}

// Converts inclusive pixel-centre corners into a half-open integer rectangle,
// rounding outward.
func RectFromCorners(ul, lr Point2D) image.Rectangle {
	return image.Rect(
		int(math.Floor(ul.X)), int(math.Floor(ul.Y)),
		int(math.Ceil(lr.X))+1, int(math.Ceil(lr.Y))+1,
	)
}

// Returns the four corner pixel centres of r in the order upper left,
// upper right, lower right, lower left. The lower right corner is Max-1.
func CornerPoints(r image.Rectangle) (ul, ur, lr, ll Point2D) {
	x0, y0 := float64(r.Min.X), float64(r.Min.Y)
	x1, y1 := float64(r.Max.X-1), float64(r.Max.Y-1)
	return Point2D{x0, y0}, Point2D{x1, y0}, Point2D{x1, y1}, Point2D{x0, y1}
}

// Grows r by dx pixels on the left and right, and dy pixels on top and bottom
func Expand(r image.Rectangle, dx, dy int) image.Rectangle {
	return image.Rect(r.Min.X-dx, r.Min.Y-dy, r.Max.X+dx, r.Max.Y+dy)
}

// Snaps r outward to the boundaries of a tile grid with the given tile size
func SnapOut(r image.Rectangle, tw, th int) image.Rectangle {
	if tw <= 0 || th <= 0 {
		return r
	}
	return image.Rect(
		floorDiv(r.Min.X, tw)*tw, floorDiv(r.Min.Y, th)*th,
		ceilDiv(r.Max.X, tw)*tw, ceilDiv(r.Max.Y, th)*th,
	)
}

// Scales r by sx, sy, rounding outward so the result covers all scaled pixels
func ScaleRect(r image.Rectangle, sx, sy float64) image.Rectangle {
	return image.Rect(
		int(math.Floor(float64(r.Min.X)*sx)), int(math.Floor(float64(r.Min.Y)*sy)),
		int(math.Ceil(float64(r.Max.X)*sx)), int(math.Ceil(float64(r.Max.Y)*sy)),
	)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
