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

// Package render implements an adaptive resampling renderer. It maps requested
// view tiles back through an image to view transform, subdividing the view
// rectangle until bilinear interpolation of the image corners is accurate to
// a tolerance, and resamples source data at a matching decimation level.
package render

import (
	"fmt"
	"image"
	"io"
	"math"
	"math/bits"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/resample"
	"github.com/mlnoga/georender/internal/source"
	"github.com/mlnoga/georender/internal/transform"
)

const (
	DefaultTolerance          = 1.0 // full resolution pixels
	DefaultPadding            = 8   // view pixels on each side of a request
	DefaultMaxLevelsToCompute = 6   // levels synthesized beyond the coarsest native one
	minViewSize               = 4   // smaller view rectangles are not rendered, nor split
)

// Counters of renderer activity
type Stats struct {
	Tiles       int64 // rendered tile requests
	Bypasses    int64 // requests passed through to the input
	Blanks      int64 // requests answered with a blank tile
	Fills       int64 // leaf rectangles handed to the resampler
	Splits      int64 // rectangles subdivided into quadrants
	Synthesized int64 // decimation buffers built on the fly
}

func (s Stats) String() string {
	return fmt.Sprintf("tiles %d bypasses %d blanks %d fills %d splits %d synthesized %d",
		s.Tiles, s.Bypasses, s.Blanks, s.Fills, s.Splits, s.Synthesized)
}

// Renders tiles of an input source as seen through a view transform. A Renderer
// is itself an image source, so renderers can be chained.
//
// A Renderer is not safe for concurrent use. Use Clone to create one renderer per worker.
type Renderer struct {
	input     source.ImageSource
	view      transform.ImageViewTransform
	resampler *resample.FilterResampler

	enabled            bool
	startLevel         int
	maxLevelsToCompute int

	Tolerance float64   // bilinear approximation tolerance in full resolution pixels
	Padding   int       // view pixels added around each request
	Log       io.Writer // trace output, nil for none

	dirty            bool
	inputFullResRect image.Rectangle
	viewRect         image.Rectangle

	// single slot buffer for synthesized decimation levels
	buf      *raster.Tile
	bufRect  image.Rectangle
	bufLevel int

	stats Stats
}

// Creates an enabled renderer for the given input and view, resampling with a bilinear kernel
func NewRenderer(input source.ImageSource, view transform.ImageViewTransform) *Renderer {
	return &Renderer{
		input:              input,
		view:               view,
		resampler:          resample.NewFilterResampler(resample.Bilinear),
		enabled:            true,
		maxLevelsToCompute: DefaultMaxLevelsToCompute,
		Tolerance:          DefaultTolerance,
		Padding:            DefaultPadding,
		dirty:              true,
	}
}

func (r *Renderer) String() string {
	return fmt.Sprintf("renderer enabled %v view %v resampler %v start level %d max computed %d",
		r.enabled, r.view, r.resampler, r.startLevel, r.maxLevelsToCompute)
}

// Returns a renderer sharing input, view and configuration, with independent
// working state and zeroed counters
func (r *Renderer) Clone() *Renderer {
	return &Renderer{
		input:              r.input,
		view:               r.view,
		resampler:          r.resampler.Clone(),
		enabled:            r.enabled,
		startLevel:         r.startLevel,
		maxLevelsToCompute: r.maxLevelsToCompute,
		Tolerance:          r.Tolerance,
		Padding:            r.Padding,
		Log:                r.Log,
		dirty:              true,
	}
}

func (r *Renderer) SetInput(src source.ImageSource) {
	r.input = src
	r.Invalidate()
}

func (r *Renderer) Input() source.ImageSource {
	return r.input
}

// Replaces the view transform
func (r *Renderer) SetView(t transform.ImageViewTransform) {
	r.view = t
	r.Invalidate()
}

func (r *Renderer) View() transform.ImageViewTransform {
	return r.view
}

// Enables or disables rendering. A disabled renderer passes requests through to its input
func (r *Renderer) SetEnabled(enabled bool) {
	r.enabled = enabled
	r.Invalidate()
}

func (r *Renderer) Enabled() bool {
	return r.enabled
}

// Sets the offset added to every selected input level, for inputs whose level 0
// is already decimated
func (r *Renderer) SetStartingResolutionLevel(level int) {
	r.startLevel = level
}

func (r *Renderer) StartingResolutionLevel() int {
	return r.startLevel
}

// Sets how many levels beyond the coarsest native input level may be synthesized
func (r *Renderer) SetMaxLevelsToCompute(n int) {
	r.maxLevelsToCompute = n
}

func (r *Renderer) MaxLevelsToCompute() int {
	return r.maxLevelsToCompute
}

func (r *Renderer) SetResampler(rs *resample.FilterResampler) {
	r.resampler = rs
}

func (r *Renderer) Resampler() *resample.FilterResampler {
	return r.resampler
}

// Marks the cached bounding rectangles for recomputation and drops the synthesis buffer
func (r *Renderer) Invalidate() {
	r.dirty = true
	r.buf, r.bufRect, r.bufLevel = nil, image.Rectangle{}, 0
}

// Returns a copy of the activity counters
func (r *Renderer) Stats() Stats {
	return r.stats
}

func (r *Renderer) ResetStats() {
	r.stats = Stats{}
}

func (r *Renderer) logf(format string, args ...interface{}) {
	if r.Log != nil {
		fmt.Fprintf(r.Log, format, args...)
	}
}

// Returns true if requests are passed through to the input
func (r *Renderer) bypass() bool {
	return !r.enabled || r.view == nil || !r.view.IsValid()
}

// Recomputes the bounding rectangles if dirty. Returns false if there is no valid geometry
func (r *Renderer) updateBounds() bool {
	if !r.dirty {
		return !r.viewRect.Empty()
	}
	r.dirty = false
	r.inputFullResRect, r.viewRect = image.Rectangle{}, image.Rectangle{}
	if r.input == nil || r.view == nil {
		return false
	}
	r.inputFullResRect = r.input.BoundingRect(0)
	if r.inputFullResRect.Empty() {
		return false
	}
	r.viewRect = r.view.ImageToViewBounds(r.inputFullResRect)
	r.logf("Renderer input %v view %v\n", r.inputFullResRect, r.viewRect)
	return !r.viewRect.Empty()
}

// Returns the view bounds at the given output level
func (r *Renderer) viewRectAt(level int) image.Rectangle {
	if level == 0 {
		return r.viewRect
	}
	return transform.NewScaled(r.view, level).ImageToViewBounds(r.inputFullResRect)
}

// Returns a blank tile covering rect, or nil without input
func (r *Renderer) blankTile(rect image.Rectangle) *raster.Tile {
	r.stats.Blanks++
	if r.input == nil {
		return nil
	}
	return source.NewBlankTile(r.input, rect)
}

// Renders the view tile rect at the given output level. View coordinates at
// level L are the level 0 view coordinates divided by 2^L. Missing data, NaN
// geometry and exhausted synthesis budgets yield null pixels
func (r *Renderer) GetTile(rect image.Rectangle, level int) *raster.Tile {
	if r.bypass() {
		r.stats.Bypasses++
		if r.input == nil {
			return nil
		}
		return r.input.GetTile(rect, level)
	}
	if !r.updateBounds() {
		return r.blankTile(rect)
	}
	viewRect := r.viewRectAt(level)
	if !viewRect.Overlaps(rect) || viewRect.Dx() < minViewSize || viewRect.Dy() < minViewSize {
		return r.blankTile(rect)
	}
	r.stats.Tiles++

	out := source.NewBlankTile(r.input, rect)
	view := transform.NewScaled(r.view, level)
	padded := geom.Expand(rect, r.Padding, r.Padding).Intersect(geom.Expand(viewRect, r.Padding, r.Padding))
	info := NewSubRectInfo(padded)
	info.Transform(view)

	footprint, ok := geom.BoundingRect2D(info.Iul, info.Iur, info.Ilr, info.Ill)
	if ok && !footprint.RoundOut().Overlaps(r.inputFullResRect) {
		r.stats.Blanks++
		out.ValidateStatus()
		return out
	}

	r.recursiveResample(out, view, info, 1)
	out.ValidateStatus()
	return out
}

// Fills out for the rectangle described by info, subdividing while bilinear
// approximation of the transform is not accurate enough
func (r *Renderer) recursiveResample(out *raster.Tile, view transform.ImageViewTransform, info SubRectInfo, depth int) {
	// Only fully undefined rectangles are dropped. Partially undefined ones
	// keep subdividing so pixels along the edge of the domain still get filled
	if info.ImageIsNaN() {
		return
	}
	vr := info.ViewRect()
	if vr.Dx() < minViewSize && vr.Dy() < minViewSize {
		if !info.ImageHasNaN() {
			r.fillTile(out, info)
		}
		return
	}
	if info.CanBilinearInterpolate(view, r.Tolerance) {
		r.fillTile(out, info)
		return
	}

	r.stats.Splits++
	r.logf("Splitting %v at depth %d\n", vr, depth)
	for _, q := range info.Split(view) {
		qr := q.ViewRect()
		switch {
		case q.ImageIsNaN():
			// outside the domain of the transform
		case qr.Dx() < minViewSize && qr.Dy() < minViewSize:
			if !q.ImageHasNaN() {
				r.fillTile(out, q)
			}
		case q.CanBilinearInterpolate(view, r.Tolerance):
			r.fillTile(out, q)
		default:
			r.recursiveResample(out, view, q, depth+1)
		}
	}
}

// Returns the input level for a given absolute image to view scale:
// floor(log2(1/min(scale.X, scale.Y))) clamped at zero, plus the starting level
func SelectResolutionLevel(scale geom.Point2D, start int) int {
	s := math.Min(scale.X, scale.Y)
	level := 0
	if s > 0 && !math.IsInf(s, 1) {
		// tolerate rounding just below a power of two
		level = int(math.Floor(math.Log2(1/s) + 1e-9))
	}
	if level < 0 {
		level = 0
	}
	return level + start
}

// Resamples source data for a leaf rectangle into out
func (r *Renderer) fillTile(out *raster.Tile, info SubRectInfo) {
	scale := info.ImageToViewScaleAbs()
	if math.IsNaN(scale.X) || math.IsNaN(scale.Y) {
		return
	}
	level := SelectResolutionLevel(scale, r.startLevel)

	nominal := math.Ldexp(1, -level)
	factor := geom.Point2D{X: nominal, Y: nominal}
	if f, ok := r.input.DecimationFactor(level); ok && f.X > 0 && f.Y > 0 &&
		(math.Abs(f.X-nominal) > 1e-6 || math.Abs(f.Y-nominal) > 1e-6) {
		factor = f
	}

	ul := geom.Point2D{X: info.Iul.X * factor.X, Y: info.Iul.Y * factor.Y}
	ur := geom.Point2D{X: info.Iur.X * factor.X, Y: info.Iur.Y * factor.Y}
	lr := geom.Point2D{X: info.Ilr.X * factor.X, Y: info.Ilr.Y * factor.Y}
	ll := geom.Point2D{X: info.Ill.X * factor.X, Y: info.Ill.Y * factor.Y}

	r.resampler.SetScaleFactor(geom.Point2D{X: scale.X / factor.X, Y: scale.Y / factor.Y})
	margin := r.resampler.KernelSupport() + 0.5
	b, _ := geom.BoundingRect2D(ul, ur, lr, ll)
	req := image.Rect(
		int(math.Floor(b.A.X-margin)), int(math.Floor(b.A.Y-margin)),
		int(math.Ceil(b.B.X+margin))+1, int(math.Ceil(b.B.Y+margin))+1,
	)

	in := r.getTileAtResolutionLevel(req, level)
	if in == nil {
		return
	}
	if s := in.Status(); s == raster.StatusNull || s == raster.StatusEmpty {
		return
	}

	r.resampler.SetBoundingInputRect(geom.ScaleRect(r.inputFullResRect, factor.X, factor.Y))
	r.resampler.Resample(in, out, info.ViewRect(), ul, ur, lr, ll)
	r.stats.Fills++
}

// Returns the view bounds at the given level, or the input bounds when bypassed
func (r *Renderer) BoundingRect(level int) image.Rectangle {
	if r.bypass() {
		if r.input == nil {
			return image.Rectangle{}
		}
		return r.input.BoundingRect(level)
	}
	if !r.updateBounds() {
		return image.Rectangle{}
	}
	return r.viewRectAt(level)
}

func (r *Renderer) DecimationFactor(level int) (geom.Point2D, bool) {
	if r.bypass() {
		if r.input == nil {
			return geom.Point2D{}, false
		}
		return r.input.DecimationFactor(level)
	}
	f := math.Ldexp(1, -level)
	return geom.Point2D{X: f, Y: f}, true
}

// Returns floor(log2(max(width, height)))+1 of the level 0 view bounds
func (r *Renderer) NumDecimationLevels() int {
	if r.bypass() {
		if r.input == nil {
			return 0
		}
		return r.input.NumDecimationLevels()
	}
	if !r.updateBounds() {
		return 0
	}
	return bits.Len(uint(max(r.viewRect.Dx(), r.viewRect.Dy())))
}

func (r *Renderer) NumBands() int {
	if r.input == nil {
		return 0
	}
	return r.input.NumBands()
}

func (r *Renderer) ScalarType() raster.ScalarType {
	if r.input == nil {
		return raster.Float32
	}
	return r.input.ScalarType()
}

func (r *Renderer) NullPix(band int) float64 {
	if r.input == nil {
		return math.NaN()
	}
	return r.input.NullPix(band)
}

func (r *Renderer) TileSize() image.Point {
	if r.input == nil {
		return source.DefaultTileSize
	}
	return r.input.TileSize()
}
