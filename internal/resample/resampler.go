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

package resample

import (
	"fmt"
	"image"
	"math"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/raster"
)

// Resamples source tiles into output tiles with separable filter kernels. The
// minification kernel applies on axes where a source pixel is smaller than a
// view pixel, the magnification kernel on the others.
//
// A FilterResampler is not safe for concurrent use.
type FilterResampler struct {
	Minify     Kernel
	Magnify    Kernel
	BlurFactor float64 // widens the kernel, 1 for none

	bounds image.Rectangle
	scale  geom.Point2D
}

// Creates a resampler using kernel k in both directions
func NewFilterResampler(k Kernel) *FilterResampler {
	return &FilterResampler{Minify: k, Magnify: k, BlurFactor: 1, scale: geom.Point2D{X: 1, Y: 1}}
}

func (r *FilterResampler) String() string {
	return fmt.Sprintf("minify %s magnify %s blur %.3g", r.Minify, r.Magnify, r.BlurFactor)
}

// Restricts kernel evaluation to source pixels within rect
func (r *FilterResampler) SetBoundingInputRect(rect image.Rectangle) {
	r.bounds = rect
}

func (r *FilterResampler) BoundingInputRect() image.Rectangle {
	return r.bounds
}

// Sets the number of view pixels per source pixel, per axis
func (r *FilterResampler) SetScaleFactor(p geom.Point2D) {
	r.scale = p
}

func (r *FilterResampler) ScaleFactor() geom.Point2D {
	return r.scale
}

// Returns a copy with the same kernels and independent working state
func (r *FilterResampler) Clone() *FilterResampler {
	c := *r
	return &c
}

// Kernel, radius in source pixels and kernel argument scale for an axis with the given scale factor
func (r *FilterResampler) axis(scale float64) (k Kernel, radius, argScale float64) {
	blur := r.BlurFactor
	if !(blur > 0) {
		blur = 1
	}
	scale = math.Abs(scale)
	if !(scale > 0) || math.IsInf(scale, 0) {
		scale = 1
	}
	if scale < 1 {
		k, argScale = r.Minify, scale/blur
	} else {
		k, argScale = r.Magnify, 1/blur
	}
	if k.Kernel == nil {
		k = Bilinear
	}
	return k, k.Support / argScale, argScale
}

// Returns the kernel radius in source pixels, the larger of both axes. Minifying
// axes widen the kernel by the inverse scale factor
func (r *FilterResampler) KernelSupport() float64 {
	_, rx, _ := r.axis(r.scale.X)
	_, ry, _ := r.axis(r.scale.Y)
	return math.Max(rx, ry)
}

// Fills the pixels of out within viewRect. The four points are the source
// positions of the corner pixel centres of viewRect (upper left, upper right,
// lower right, lower left), in the pixel space of in. Positions in between are
// interpolated bilinearly. Null source pixels are ignored and the remaining
// weights renormalized. Output pixels whose nearest source pixel is null, or
// which receive no valid weight, are left untouched. Returns the number of
// output pixels written
func (r *FilterResampler) Resample(in, out *raster.Tile, viewRect image.Rectangle, ul, ur, lr, ll geom.Point2D) int {
	if viewRect.Empty() || ul.IsNaN() || ur.IsNaN() || lr.IsNaN() || ll.IsNaN() {
		return 0
	}
	dst := viewRect.Intersect(out.Rect())
	if dst.Empty() {
		return 0
	}
	src := in.Rect()
	if !r.bounds.Empty() {
		src = src.Intersect(r.bounds)
	}
	if src.Empty() {
		return 0
	}

	kx, radX, argX := r.axis(r.scale.X)
	ky, radY, argY := r.axis(r.scale.Y)

	bands := min(in.Bands(), out.Bands())
	data := make([][]float64, bands)
	for b := range data {
		data[b] = in.Float64s(b)
	}
	inRect, inW := in.Rect(), in.Width()

	// per-row and per-column steps along the view rectangle edges
	w, h := viewRect.Dx(), viewRect.Dy()
	leftStep, rightStep := geom.Point2D{}, geom.Point2D{}
	if h > 1 {
		leftStep = divide(geom.Sub2D(ll, ul), float64(h-1))
		rightStep = divide(geom.Sub2D(lr, ur), float64(h-1))
	}

	wx := make([]float64, 0, int(2*radX)+2)
	wy := make([]float64, 0, int(2*radY)+2)
	sums := make([]float64, bands)
	weights := make([]float64, bands)
	written := 0

	for y := dst.Min.Y; y < dst.Max.Y; y++ {
		j := float64(y - viewRect.Min.Y)
		left := geom.Add2D(ul, geom.Scale2D(leftStep, j))
		right := geom.Add2D(ur, geom.Scale2D(rightStep, j))
		step := geom.Point2D{}
		if w > 1 {
			step = divide(geom.Sub2D(right, left), float64(w-1))
		}

		for x := dst.Min.X; x < dst.Max.X; x++ {
			p := geom.Add2D(left, geom.Scale2D(step, float64(x-viewRect.Min.X)))
			if p.IsNaN() {
				continue
			}

			// the nearest source pixel must be valid
			nx, ny := int(math.Floor(p.X+0.5)), int(math.Floor(p.Y+0.5))
			if !image.Pt(nx, ny).In(src) {
				continue
			}
			ni := (ny-inRect.Min.Y)*inW + nx - inRect.Min.X

			// kernel windows, clamped to the source bounds
			x0 := max(int(math.Ceil(p.X-radX)), src.Min.X)
			x1 := min(int(math.Floor(p.X+radX)), src.Max.X-1)
			y0 := max(int(math.Ceil(p.Y-radY)), src.Min.Y)
			y1 := min(int(math.Floor(p.Y+radY)), src.Max.Y-1)
			wx = kernelWeights(wx[:0], kx, argX, p.X, x0, x1)
			wy = kernelWeights(wy[:0], ky, argY, p.Y, y0, y1)

			for b := range sums {
				sums[b], weights[b] = 0, 0
				if math.IsNaN(data[b][ni]) {
					weights[b] = math.NaN()
				}
			}
			for sy := y0; sy <= y1; sy++ {
				fy := wy[sy-y0]
				if fy == 0 {
					continue
				}
				row := (sy-inRect.Min.Y)*inW - inRect.Min.X
				for sx := x0; sx <= x1; sx++ {
					f := fy * wx[sx-x0]
					if f == 0 {
						continue
					}
					for b := 0; b < bands; b++ {
						v := data[b][row+sx]
						if math.IsNaN(v) || math.IsNaN(weights[b]) {
							continue
						}
						sums[b] += f * v
						weights[b] += f
					}
				}
			}

			touched := false
			for b := 0; b < bands; b++ {
				if math.IsNaN(weights[b]) || math.Abs(weights[b]) < 1e-12 {
					continue
				}
				out.Set(b, x, y, sums[b]/weights[b])
				touched = true
			}
			if touched {
				written++
			}
		}
	}
	return written
}

// Divides both coordinates of p by d, keeping integer steps exact
func divide(p geom.Point2D, d float64) geom.Point2D {
	return geom.Point2D{X: p.X / d, Y: p.Y / d}
}

// Appends the kernel weights for source positions lo..hi around p
func kernelWeights(w []float64, k Kernel, argScale, p float64, lo, hi int) []float64 {
	for s := lo; s <= hi; s++ {
		t := math.Abs(float64(s)-p) * argScale
		if t > k.Support {
			w = append(w, 0)
			continue
		}
		w = append(w, k.At(t))
	}
	return w
}
