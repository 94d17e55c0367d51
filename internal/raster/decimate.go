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

package raster

import "image"

// Box-averages src into dst with an integer reduction factor m >= 1. Pixel
// (x,y) of dst covers the block [x*m, x*m+m) x [y*m, y*m+m) of src. Null
// samples are excluded from the mean. If the sample at the block centre
// (x*m+m/2, y*m+m/2) is null or outside src, the dst pixel is left untouched.
// Returns the number of dst pixels written
func DecimateInto(dst, src *Tile, m int) int {
	if m < 1 || dst.scalar != src.scalar {
		return decimateGeneric(dst, src, m)
	}
	switch dst.scalar {
	case Uint8:
		return decimate[uint8](dst, src, m)
	case Int8:
		return decimate[int8](dst, src, m)
	case Uint16:
		return decimate[uint16](dst, src, m)
	case Int16:
		return decimate[int16](dst, src, m)
	case Uint32:
		return decimate[uint32](dst, src, m)
	case Int32:
		return decimate[int32](dst, src, m)
	case Uint64:
		return decimate[uint64](dst, src, m)
	case Int64:
		return decimate[int64](dst, src, m)
	case Float32:
		return decimate[float32](dst, src, m)
	default:
		return decimate[float64](dst, src, m)
	}
}

func decimate[T Number](dst, src *Tile, m int) int {
	bands := min(dst.bands, src.bands)
	sr := src.rect
	dr := dst.rect.Intersect(image.Rect(floorDiv(sr.Min.X, m), floorDiv(sr.Min.Y, m),
		ceilDiv(sr.Max.X, m), ceilDiv(sr.Max.Y, m)))
	sw, dw := sr.Dx(), dst.rect.Dx()
	dMin := dst.rect.Min
	written := 0
	for b := 0; b < bands; b++ {
		s, d := Band[T](src, b), Band[T](dst, b)
		null := src.Null[b]
		for y := dr.Min.Y; y < dr.Max.Y; y++ {
			for x := dr.Min.X; x < dr.Max.X; x++ {
				cx, cy := x*m+m/2, y*m+m/2
				if !image.Pt(cx, cy).In(sr) {
					continue
				}
				if isNullValue(float64(s[(cy-sr.Min.Y)*sw+cx-sr.Min.X]), null) {
					continue
				}
				block := image.Rect(x*m, y*m, x*m+m, y*m+m).Intersect(sr)
				sum, cnt := 0.0, 0
				for by := block.Min.Y; by < block.Max.Y; by++ {
					row := s[(by-sr.Min.Y)*sw : (by-sr.Min.Y+1)*sw]
					for bx := block.Min.X; bx < block.Max.X; bx++ {
						v := float64(row[bx-sr.Min.X])
						if isNullValue(v, null) {
							continue
						}
						sum += v
						cnt++
					}
				}
				d[(y-dMin.Y)*dw+x-dMin.X] = convert[T](sum / float64(cnt))
				written++
			}
		}
	}
	dst.status = StatusUnknown
	return written
}

// Slow path for mismatched scalar types
func decimateGeneric(dst, src *Tile, m int) int {
	if m < 1 {
		return 0
	}
	bands := min(dst.bands, src.bands)
	dr := dst.rect
	written := 0
	for b := 0; b < bands; b++ {
		for y := dr.Min.Y; y < dr.Max.Y; y++ {
			for x := dr.Min.X; x < dr.Max.X; x++ {
				if src.IsNull(b, x*m+m/2, y*m+m/2) {
					continue
				}
				sum, cnt := 0.0, 0
				for by := y * m; by < y*m+m; by++ {
					for bx := x * m; bx < x*m+m; bx++ {
						if !src.IsNull(b, bx, by) {
							sum += src.Get(b, bx, by)
							cnt++
						}
					}
				}
				dst.Set(b, x, y, sum/float64(cnt))
				written++
			}
		}
	}
	dst.status = StatusUnknown
	return written
}

// Returns a new tile holding src reduced by the integer factor m. The result
// covers every dst pixel whose block centre lies inside src
func Decimate(src *Tile, m int) *Tile {
	if m <= 1 {
		return src.Clone()
	}
	r := src.rect
	dr := image.Rect(floorDiv(r.Min.X, m), floorDiv(r.Min.Y, m),
		floorDiv(r.Max.X-1-m/2, m)+1, floorDiv(r.Max.Y-1-m/2, m)+1)
	if dr.Empty() {
		dr = image.Rect(floorDiv(r.Min.X, m), floorDiv(r.Min.Y, m), floorDiv(r.Min.X, m)+1, floorDiv(r.Min.Y, m)+1)
	}
	dst := NewTile(dr, src.scalar, src.bands)
	copy(dst.Null, src.Null)
	copy(dst.Min, src.Min)
	copy(dst.Max, src.Max)
	dst.MakeBlank()
	DecimateInto(dst, src, m)
	dst.ValidateStatus()
	return dst
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
