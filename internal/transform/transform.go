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

// Package transform maps between image pixel space and view pixel space.
//
// Coordinates follow the pixel-centre convention: an integer coordinate is
// the centre of that pixel. Mappings return a NaN point where they are
// undefined, e.g. beyond the latitude limit of a mercator view.
package transform

import (
	"image"
	"math"

	"github.com/mlnoga/georender/internal/geom"
)

// A geometric mapping between image space and view space
type ImageViewTransform interface {
	// Maps an image pixel position to view space. Returns a NaN point if undefined
	ImageToView(p geom.Point2D) geom.Point2D

	// Maps a view pixel position to image space. Returns a NaN point if undefined
	ViewToImage(p geom.Point2D) geom.Point2D

	// Returns false if the transform cannot be used, e.g. because it is singular
	IsValid() bool

	// Returns the view space rectangle covering the given image rectangle,
	// or an empty rectangle if no part of it maps into view space
	ImageToViewBounds(r image.Rectangle) image.Rectangle
}

// Number of points sampled per edge when bounding a nonlinear mapping
const defaultEdgeSamples = 64

// Returns the bounds of image rectangle r under the point mapping f, sampling n
// points per edge plus an n by n interior grid. NaN results are skipped. Returns an
// empty rectangle if all samples are NaN
func SampleBounds(f func(geom.Point2D) geom.Point2D, r image.Rectangle, n int) image.Rectangle {
	if r.Empty() {
		return image.Rectangle{}
	}
	if n < 2 {
		n = 2
	}
	ul, _, lr, _ := geom.CornerPoints(r)
	pts := make([]geom.Point2D, 0, n*n)
	for j := 0; j < n; j++ {
		y := ul.Y + (lr.Y-ul.Y)*float64(j)/float64(n-1)
		for i := 0; i < n; i++ {
			x := ul.X + (lr.X-ul.X)*float64(i)/float64(n-1)
			pts = append(pts, f(geom.Point2D{X: x, Y: y}))
		}
	}
	b, ok := geom.BoundingRect2D(pts...)
	if !ok {
		return image.Rectangle{}
	}
	return b.RoundOut()
}

// Presents the view of a transform at a decimation level: view coordinates at
// level L are the level 0 view coordinates divided by 2^L
type Scaled struct {
	T     ImageViewTransform
	Level int
	f     float64
}

// Wraps t for the given decimation level. Level 0 returns t itself
func NewScaled(t ImageViewTransform, level int) ImageViewTransform {
	if level == 0 || t == nil {
		return t
	}
	return &Scaled{T: t, Level: level, f: math.Ldexp(1, level)}
}

func (s *Scaled) ImageToView(p geom.Point2D) geom.Point2D {
	return geom.Scale2D(s.T.ImageToView(p), 1/s.f)
}

func (s *Scaled) ViewToImage(p geom.Point2D) geom.Point2D {
	return s.T.ViewToImage(geom.Scale2D(p, s.f))
}

func (s *Scaled) IsValid() bool {
	return s.T != nil && s.T.IsValid()
}

func (s *Scaled) ImageToViewBounds(r image.Rectangle) image.Rectangle {
	b := s.T.ImageToViewBounds(r)
	if b.Empty() {
		return b
	}
	ul, _, lr, _ := geom.CornerPoints(b)
	return geom.RectFromCorners(geom.Scale2D(ul, 1/s.f), geom.Scale2D(lr, 1/s.f))
}
