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

// Package source provides tiled access to raster images at several decimation
// levels. Level 0 is full resolution; level L is nominally decimated by 2^L.
package source

import (
	"image"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/raster"
)

// Default tile size for sources without a natural tiling
var DefaultTileSize = image.Point{256, 256}

// A tiled, multi-resolution raster image
type ImageSource interface {
	// Returns a tile covering rect at the given level, in the pixel space of that
	// level. Parts outside the data are null. Returns nil if the level is unavailable
	GetTile(rect image.Rectangle, level int) *raster.Tile

	// Returns the zero-based bounds of the data at the given level
	BoundingRect(level int) image.Rectangle

	// Returns the scale of the given level relative to full resolution, or false
	// if the source does not know it and 2^-level should be assumed
	DecimationFactor(level int) (geom.Point2D, bool)

	// Returns the number of natively available levels, including full resolution
	NumDecimationLevels() int

	NumBands() int
	ScalarType() raster.ScalarType

	// Returns the null value of the given band
	NullPix(band int) float64

	// Returns the natural tile size of the source
	TileSize() image.Point
}

// Creates a blank tile matching the layout of src, covering rect
func NewBlankTile(src ImageSource, rect image.Rectangle) *raster.Tile {
	t := raster.NewTile(rect, src.ScalarType(), src.NumBands())
	for b := 0; b < src.NumBands(); b++ {
		t.SetNull(b, src.NullPix(b))
	}
	t.MakeBlank()
	return t
}
