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

package render

import (
	"fmt"
	"image"
	"math"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/transform"
)

// Edge lengths below this are treated as degenerate
const degenerateLength = 1e-12

// Image to view scale magnitudes beyond which bilinear approximation is always accepted
const (
	extremeZoomIn  = 500.0
	extremeZoomOut = 1.0 / 500.0
)

// A rectangle in view space and its corners mapped into image space. The view
// corners are the centres of the corner pixels. Values are never modified
// after Transform; Split returns fresh quadrants
type SubRectInfo struct {
	Vul, Vur, Vlr, Vll geom.Point2D // view corners
	Iul, Iur, Ilr, Ill geom.Point2D // image corners, at full resolution

	ViewToImageScale geom.Point2D // image pixels per view pixel, per axis
	ImageToViewScale geom.Point2D // view pixels per image pixel, per axis
}

// Creates a sub rectangle for the given view rectangle. Image corners are NaN until Transform is called
func NewSubRectInfo(r image.Rectangle) SubRectInfo {
	s := SubRectInfo{}
	s.Vul, s.Vur, s.Vlr, s.Vll = geom.CornerPoints(r)
	s.Iul, s.Iur, s.Ilr, s.Ill = geom.NaNPoint(), geom.NaNPoint(), geom.NaNPoint(), geom.NaNPoint()
	s.ViewToImageScale, s.ImageToViewScale = geom.NaNPoint(), geom.NaNPoint()
	return s
}

func (s *SubRectInfo) String() string {
	return fmt.Sprintf("view %v-%v image %v %v %v %v scale %v", s.Vul, s.Vlr, s.Iul, s.Iur, s.Ilr, s.Ill, s.ImageToViewScale)
}

// Maps the view corners into image space and derives the scales
func (s *SubRectInfo) Transform(t transform.ImageViewTransform) {
	s.Iul = t.ViewToImage(s.Vul)
	s.Iur = t.ViewToImage(s.Vur)
	s.Ilr = t.ViewToImage(s.Vlr)
	s.Ill = t.ViewToImage(s.Vll)
	s.computeScales(t)
}

// Derives per-axis scales from the ratio of average image edge length to view
// edge length. Single pixel wide rectangles probe the transform one view pixel
// further along the degenerate axis. A degenerate image edge yields NaN
func (s *SubRectInfo) computeScales(t transform.ImageViewTransform) {
	s.ViewToImageScale, s.ImageToViewScale = geom.NaNPoint(), geom.NaNPoint()
	if s.ImageHasNaN() {
		return
	}

	var ix, iy, vx, vy float64
	if vx = 0.5 * (geom.Dist2D(s.Vul, s.Vur) + geom.Dist2D(s.Vll, s.Vlr)); vx > degenerateLength {
		ix = 0.5 * (geom.Dist2D(s.Iul, s.Iur) + geom.Dist2D(s.Ill, s.Ilr))
	} else {
		vx = 1
		ix = geom.Dist2D(s.Iul, t.ViewToImage(geom.Point2D{X: s.Vul.X + 1, Y: s.Vul.Y}))
	}
	if vy = 0.5 * (geom.Dist2D(s.Vul, s.Vll) + geom.Dist2D(s.Vur, s.Vlr)); vy > degenerateLength {
		iy = 0.5 * (geom.Dist2D(s.Iul, s.Ill) + geom.Dist2D(s.Iur, s.Ilr))
	} else {
		vy = 1
		iy = geom.Dist2D(s.Iul, t.ViewToImage(geom.Point2D{X: s.Vul.X, Y: s.Vul.Y + 1}))
	}
	if math.IsNaN(ix) || math.IsNaN(iy) {
		return
	}
	s.ViewToImageScale = geom.Point2D{X: ix / vx, Y: iy / vy}
	if ix > degenerateLength && iy > degenerateLength {
		s.ImageToViewScale = geom.Point2D{X: vx / ix, Y: vy / iy}
	}
}

// Returns true if any image corner is NaN
func (s *SubRectInfo) ImageHasNaN() bool {
	return s.Iul.IsNaN() || s.Iur.IsNaN() || s.Ilr.IsNaN() || s.Ill.IsNaN()
}

// Returns true if all image corners are NaN
func (s *SubRectInfo) ImageIsNaN() bool {
	return s.Iul.IsNaN() && s.Iur.IsNaN() && s.Ilr.IsNaN() && s.Ill.IsNaN()
}

// Returns the view rectangle
func (s *SubRectInfo) ViewRect() image.Rectangle {
	return geom.RectFromCorners(s.Vul, s.Vlr)
}

// Returns the absolute per-axis image to view scale
func (s *SubRectInfo) ImageToViewScaleAbs() geom.Point2D {
	return geom.Point2D{X: math.Abs(s.ImageToViewScale.X), Y: math.Abs(s.ImageToViewScale.Y)}
}

// Bisects the view rectangle into up to four quadrants (upper left, upper right,
// lower right, lower left), each transformed independently. Empty quadrants of
// one pixel wide or high rectangles are omitted
func (s *SubRectInfo) Split(t transform.ImageViewTransform) []SubRectInfo {
	r := s.ViewRect()
	mx, my := r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2
	quads := [4]image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, mx, my),
		image.Rect(mx, r.Min.Y, r.Max.X, my),
		image.Rect(mx, my, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, my, mx, r.Max.Y),
	}
	res := make([]SubRectInfo, 0, 4)
	for _, q := range quads {
		if q.Empty() {
			continue
		}
		info := NewSubRectInfo(q)
		info.Transform(t)
		res = append(res, info)
	}
	return res
}

// Returns true if bilinear interpolation of the image corners approximates the
// transform within tolerance full resolution pixels over this rectangle. Tests
// the centre and the four edge midpoints. Extreme zoom levels always pass
func (s *SubRectInfo) CanBilinearInterpolate(t transform.ImageViewTransform, tolerance float64) bool {
	if s.ImageHasNaN() {
		return false
	}
	sc := s.ImageToViewScaleAbs()
	if mag := math.Hypot(sc.X, sc.Y); mag > extremeZoomIn || mag < extremeZoomOut {
		return true
	}

	samples := [5]struct{ u, v float64 }{
		{0.5, 0.5}, // centre
		{0.5, 0},   // top
		{1, 0.5},   // right
		{0.5, 1},   // bottom
		{0, 0.5},   // left
	}
	for _, sm := range samples {
		viewPt := s.bilinear(s.Vul, s.Vur, s.Vlr, s.Vll, sm.u, sm.v)
		actual := t.ViewToImage(viewPt)
		if actual.IsNaN() {
			return false
		}
		expected := s.bilinear(s.Iul, s.Iur, s.Ilr, s.Ill, sm.u, sm.v)
		if geom.Dist2D(actual, expected) >= tolerance {
			return false
		}
	}
	return true
}

// Bilinear interpolation of four corner points at normalized position (u,v)
func (s *SubRectInfo) bilinear(ul, ur, lr, ll geom.Point2D, u, v float64) geom.Point2D {
	top := geom.Add2D(ul, geom.Scale2D(geom.Sub2D(ur, ul), u))
	bottom := geom.Add2D(ll, geom.Scale2D(geom.Sub2D(lr, ll), u))
	return geom.Add2D(top, geom.Scale2D(geom.Sub2D(bottom, top), v))
}
