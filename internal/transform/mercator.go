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

package transform

import (
	"fmt"
	"image"
	"math"

	"github.com/mlnoga/georender/internal/geom"
)

// Latitude limit of the spherical mercator projection, in degrees
const MaxMercatorLatitude = 85.05112878

// Describes an equirectangular geographic image grid. Pixel (0,0) is centred on
// (OriginLon, OriginLat); DegPerPixelY is usually negative for north-up images
type GeoGrid struct {
	OriginLon, OriginLat       float64
	DegPerPixelX, DegPerPixelY float64
}

// Maps a geographic image grid onto a spherical mercator (EPSG:3857) slippy map
// pixel grid at the given zoom level, with tiles of TileSize pixels
type Mercator struct {
	Grid     GeoGrid
	Zoom     int
	TileSize int
}

// Creates a mercator view transform
func NewMercator(grid GeoGrid, zoom, tileSize int) *Mercator {
	return &Mercator{Grid: grid, Zoom: zoom, TileSize: tileSize}
}

func (m *Mercator) String() string {
	return fmt.Sprintf("mercator zoom %d tile %d origin (%.6f,%.6f) step (%.6g,%.6g)", m.Zoom, m.TileSize,
		m.Grid.OriginLon, m.Grid.OriginLat, m.Grid.DegPerPixelX, m.Grid.DegPerPixelY)
}

// Returns the width and height of the whole world in view pixels
func (m *Mercator) worldSize() float64 {
	return float64(m.TileSize) * math.Ldexp(1, m.Zoom)
}

func (m *Mercator) IsValid() bool {
	return m.Grid.DegPerPixelX != 0 && m.Grid.DegPerPixelY != 0 && m.Zoom >= 0 && m.Zoom < 31 && m.TileSize > 0
}

// Returns the longitude and latitude of an image position
func (m *Mercator) ImageToLonLat(p geom.Point2D) (lon, lat float64) {
	return m.Grid.OriginLon + p.X*m.Grid.DegPerPixelX, m.Grid.OriginLat + p.Y*m.Grid.DegPerPixelY
}

// Returns the image position of a longitude and latitude
func (m *Mercator) LonLatToImage(lon, lat float64) geom.Point2D {
	return geom.Point2D{X: (lon - m.Grid.OriginLon) / m.Grid.DegPerPixelX, Y: (lat - m.Grid.OriginLat) / m.Grid.DegPerPixelY}
}

func (m *Mercator) ImageToView(p geom.Point2D) geom.Point2D {
	if !m.IsValid() || p.IsNaN() {
		return geom.NaNPoint()
	}
	lon, lat := m.ImageToLonLat(p)
	if math.Abs(lat) > MaxMercatorLatitude {
		return geom.NaNPoint()
	}
	w := m.worldSize()
	latRad := lat * math.Pi / 180
	return geom.Point2D{
		X: w * (lon + 180) / 360,
		Y: w * (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2,
	}
}

func (m *Mercator) ViewToImage(p geom.Point2D) geom.Point2D {
	if !m.IsValid() || p.IsNaN() {
		return geom.NaNPoint()
	}
	w := m.worldSize()
	lon := 360*p.X/w - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*p.Y/w))) * 180 / math.Pi
	if math.Abs(lat) > MaxMercatorLatitude {
		return geom.NaNPoint()
	}
	return m.LonLatToImage(lon, lat)
}

func (m *Mercator) ImageToViewBounds(r image.Rectangle) image.Rectangle {
	if !m.IsValid() {
		return image.Rectangle{}
	}
	return SampleBounds(m.ImageToView, r, defaultEdgeSamples)
}
