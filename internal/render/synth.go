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
	"image"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/source"
)

// Returns input data covering rect in the pixel space of the given level. Levels the
// input provides are read directly. Coarser levels are synthesized by block averaging
// the coarsest native level, up to maxLevelsToCompute levels beyond it. The result of
// the last synthesis is kept and reused while requests stay within it. Returns nil if
// the level is out of reach
func (r *Renderer) getTileAtResolutionLevel(rect image.Rectangle, level int) *raster.Tile {
	native := r.input.NumDecimationLevels()
	if level < native {
		return r.input.GetTile(rect, level)
	}
	coarsest := native - 1
	steps := level - coarsest
	if native <= 0 || steps > r.maxLevelsToCompute || steps >= 31 {
		return nil
	}
	m := 1 << steps

	ts := r.input.TileSize()
	if ts.X <= 0 || ts.Y <= 0 {
		ts = source.DefaultTileSize
	}
	tw, th := ((ts.X+m-1)/m)*m, ((ts.Y+m-1)/m)*m

	scaled := image.Rect(rect.Min.X*m, rect.Min.Y*m, rect.Max.X*m, rect.Max.Y*m)
	cover := scaled.Intersect(r.input.BoundingRect(coarsest))
	if cover.Empty() {
		return nil
	}
	cover = geom.SnapOut(cover, tw, th)
	dstRect := image.Rect(cover.Min.X/m, cover.Min.Y/m, cover.Max.X/m, cover.Max.Y/m)

	if r.buf != nil && r.bufLevel == level && dstRect.In(r.bufRect) {
		return r.buf
	}

	if r.buf == nil {
		r.buf = source.NewBlankTile(r.input, dstRect)
	} else {
		r.buf.SetRect(dstRect)
		r.buf.MakeBlank()
	}
	r.bufRect, r.bufLevel = dstRect, level

	for y := cover.Min.Y; y < cover.Max.Y; y += th {
		for x := cover.Min.X; x < cover.Max.X; x += tw {
			blk := r.input.GetTile(image.Rect(x, y, x+tw, y+th), coarsest)
			if blk == nil {
				continue
			}
			raster.DecimateInto(r.buf, blk, m)
		}
	}
	r.buf.ValidateStatus()
	r.stats.Synthesized++
	r.logf("Renderer synthesized level %d from %d at %v\n", level, coarsest, dstRect)
	return r.buf
}
