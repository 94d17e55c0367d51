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
	"fmt"
	"image"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/raster"
)

// An in-memory image source with an overview pyramid built by 2x null-aware box averaging
type Memory struct {
	levels []*raster.Tile
	tile   image.Point
}

// Creates an in-memory source from a full resolution tile, adding up to
// overviews decimated levels. The full tile is moved to the origin if needed
func NewMemory(full *raster.Tile, overviews int) *Memory {
	if full.Rect().Min != (image.Point{}) {
		moved := raster.NewTile(full.Rect().Sub(full.Rect().Min), full.ScalarType(), full.Bands())
		copy(moved.Null, full.Null)
		moved.MakeBlank()
		copyShifted(moved, full)
		full = moved
	}
	m := &Memory{levels: []*raster.Tile{full}, tile: DefaultTileSize}
	for i := 0; i < overviews; i++ {
		prev := m.levels[len(m.levels)-1]
		if prev.Width() < 2 || prev.Height() < 2 {
			break
		}
		m.levels = append(m.levels, raster.Decimate(prev, 2))
	}
	return m
}

// Copies src into dst, which has the same size but a different origin
func copyShifted(dst, src *raster.Tile) {
	d, s := dst.Rect().Min, src.Rect().Min
	for b := 0; b < src.Bands(); b++ {
		for y := 0; y < src.Height(); y++ {
			for x := 0; x < src.Width(); x++ {
				dst.Set(b, d.X+x, d.Y+y, src.Get(b, s.X+x, s.Y+y))
			}
		}
	}
	dst.ValidateStatus()
}

func (m *Memory) String() string {
	return fmt.Sprintf("memory %v %s x%d levels %d", m.levels[0].Rect(), m.ScalarType(), m.NumBands(), len(m.levels))
}

// Sets the tile size reported to consumers
func (m *Memory) SetTileSize(p image.Point) {
	m.tile = p
}

// Returns the raster of the given level, or nil
func (m *Memory) Level(level int) *raster.Tile {
	if level < 0 || level >= len(m.levels) {
		return nil
	}
	return m.levels[level]
}

func (m *Memory) GetTile(rect image.Rectangle, level int) *raster.Tile {
	l := m.Level(level)
	if l == nil {
		return nil
	}
	t := NewBlankTile(m, rect)
	t.CopyFrom(l)
	t.ValidateStatus()
	return t
}

func (m *Memory) BoundingRect(level int) image.Rectangle {
	if l := m.Level(level); l != nil {
		return l.Rect()
	}
	return image.Rectangle{}
}

func (m *Memory) DecimationFactor(level int) (geom.Point2D, bool) {
	return geom.Point2D{}, false
}

func (m *Memory) NumDecimationLevels() int      { return len(m.levels) }
func (m *Memory) NumBands() int                 { return m.levels[0].Bands() }
func (m *Memory) ScalarType() raster.ScalarType { return m.levels[0].ScalarType() }
func (m *Memory) NullPix(band int) float64      { return m.levels[0].Null[band] }
func (m *Memory) TileSize() image.Point         { return m.tile }

// Decodes a TIFF file into an in-memory source with the given number of overviews
func OpenTIFF(fileName string, overviews int) (*Memory, error) {
	t, err := raster.ReadTIFFFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fileName, err)
	}
	return NewMemory(t, overviews), nil
}
