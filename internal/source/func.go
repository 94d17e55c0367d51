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

package source

import (
	"image"
	"math"
	"sync/atomic"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/raster"
)

// A procedurally generated, single level image source. F returns the sample
// value of a band at a full resolution pixel position
type Func struct {
	Width, Height int
	Bands         int
	Scalar        raster.ScalarType
	Null          float64
	F             func(band, x, y int) float64
	Tile          image.Point

	calls atomic.Int64
}

// Creates a single band float32 source of the given size, with NaN nulls
func NewFunc(width, height int, f func(band, x, y int) float64) *Func {
	return &Func{
		Width:  width,
		Height: height,
		Bands:  1,
		Scalar: raster.Float32,
		Null:   math.NaN(),
		F:      f,
		Tile:   DefaultTileSize,
	}
}

// Returns a source computing a linear gradient a*x + b*y + c
func NewGradient(width, height int, a, b, c float64) *Func {
	return NewFunc(width, height, func(band, x, y int) float64 {
		return a*float64(x) + b*float64(y) + c
	})
}

// Returns the number of GetTile calls served so far
func (f *Func) Calls() int64 {
	return f.calls.Load()
}

func (f *Func) GetTile(rect image.Rectangle, level int) *raster.Tile {
	if level != 0 {
		return nil
	}
	f.calls.Add(1)
	t := NewBlankTile(f, rect)
	r := rect.Intersect(f.BoundingRect(0))
	for b := 0; b < f.Bands; b++ {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				t.Set(b, x, y, f.F(b, x, y))
			}
		}
	}
	t.ValidateStatus()
	return t
}

func (f *Func) BoundingRect(level int) image.Rectangle {
	if level != 0 {
		return image.Rectangle{}
	}
	return image.Rect(0, 0, f.Width, f.Height)
}

func (f *Func) DecimationFactor(level int) (geom.Point2D, bool) {
	if level != 0 {
		return geom.Point2D{}, false
	}
	return geom.Point2D{X: 1, Y: 1}, true
}

func (f *Func) NumDecimationLevels() int      { return 1 }
func (f *Func) NumBands() int                 { return f.Bands }
func (f *Func) ScalarType() raster.ScalarType { return f.Scalar }
func (f *Func) NullPix(band int) float64      { return f.Null }

func (f *Func) TileSize() image.Point {
	if f.Tile.X <= 0 || f.Tile.Y <= 0 {
		return DefaultTileSize
	}
	return f.Tile
}
