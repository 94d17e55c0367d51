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

import (
	"fmt"
	"image"
	"math"
)

// Data status of a tile, from the point of view of its null values
type Status int

const (
	StatusUnknown Status = iota
	StatusNull           // no buffer at all
	StatusEmpty          // buffer present, all samples null
	StatusPartial        // some samples null
	StatusFull           // no sample null
)

func (s Status) String() string {
	switch s {
	case StatusNull:
		return "null"
	case StatusEmpty:
		return "empty"
	case StatusPartial:
		return "partial"
	case StatusFull:
		return "full"
	default:
		return "unknown"
	}
}

// A raster tile: a rectangle of pixels with one or more bands, all of the
// same scalar type. Bands are stored sequentially. Coordinates passed to
// Get and Set are absolute, i.e. in the space of Rect().
type Tile struct {
	rect   image.Rectangle
	scalar ScalarType
	bands  int
	status Status
	data   any // []T with T matching scalar, bands*pixels long

	Null []float64 // per-band null value
	Min  []float64 // per-band minimum valid value
	Max  []float64 // per-band maximum valid value
}

// Creates a tile with the given rectangle, scalar type and number of bands.
// All samples are set to the band null value.
func NewTile(rect image.Rectangle, scalar ScalarType, bands int) *Tile {
	t := &Tile{
		rect:   rect.Canon(),
		scalar: scalar,
		bands:  bands,
		Null:   make([]float64, bands),
		Min:    make([]float64, bands),
		Max:    make([]float64, bands),
	}
	lo, hi := scalar.Range()
	for b := 0; b < bands; b++ {
		t.Null[b], t.Min[b], t.Max[b] = scalar.DefaultNull(), lo, hi
	}
	t.data = allocData(scalar, bands*t.rect.Dx()*t.rect.Dy())
	t.MakeBlank()
	return t
}

func allocData(scalar ScalarType, n int) any {
	switch scalar {
	case Uint8:
		return make([]uint8, n)
	case Int8:
		return make([]int8, n)
	case Uint16:
		return make([]uint16, n)
	case Int16:
		return make([]int16, n)
	case Uint32:
		return make([]uint32, n)
	case Int32:
		return make([]int32, n)
	case Uint64:
		return make([]uint64, n)
	case Int64:
		return make([]int64, n)
	case Float32:
		return make([]float32, n)
	default:
		return make([]float64, n)
	}
}

func (t *Tile) Rect() image.Rectangle  { return t.rect }
func (t *Tile) Width() int             { return t.rect.Dx() }
func (t *Tile) Height() int            { return t.rect.Dy() }
func (t *Tile) Bands() int             { return t.bands }
func (t *Tile) ScalarType() ScalarType { return t.scalar }
func (t *Tile) Status() Status         { return t.status }
func (t *Tile) SetStatus(s Status)     { t.status = s }
func (t *Tile) Pixels() int            { return t.rect.Dx() * t.rect.Dy() }

func (t *Tile) String() string {
	return fmt.Sprintf("%v %s x%d %s", t.rect, t.scalar, t.bands, t.status)
}

// Returns the samples of band b as a typed slice. Panics if T does not match the scalar type of t
func Band[T Number](t *Tile, b int) []T {
	d, ok := t.data.([]T)
	if !ok {
		panic(fmt.Sprintf("raster: band access as %s on %s tile", scalarTypeOf[T](), t.scalar))
	}
	n := t.Pixels()
	return d[b*n : (b+1)*n]
}

// Moves the tile to a new rectangle. Keeps the buffer if it is large enough.
// Sample contents are undefined afterwards, call MakeBlank to reset them
func (t *Tile) SetRect(r image.Rectangle) {
	r = r.Canon()
	need := t.bands * r.Dx() * r.Dy()
	if need > dataCap(t.data) {
		t.data = allocData(t.scalar, need)
	} else {
		t.data = reslice(t.data, need)
	}
	t.rect = r
	t.status = StatusUnknown
}

func dataCap(d any) int {
	switch d := d.(type) {
	case []uint8:
		return cap(d)
	case []int8:
		return cap(d)
	case []uint16:
		return cap(d)
	case []int16:
		return cap(d)
	case []uint32:
		return cap(d)
	case []int32:
		return cap(d)
	case []uint64:
		return cap(d)
	case []int64:
		return cap(d)
	case []float32:
		return cap(d)
	case []float64:
		return cap(d)
	}
	return 0
}

func reslice(d any, n int) any {
	switch d := d.(type) {
	case []uint8:
		return d[:n]
	case []int8:
		return d[:n]
	case []uint16:
		return d[:n]
	case []int16:
		return d[:n]
	case []uint32:
		return d[:n]
	case []int32:
		return d[:n]
	case []uint64:
		return d[:n]
	case []int64:
		return d[:n]
	case []float32:
		return d[:n]
	case []float64:
		return d[:n]
	}
	return d
}

// Returns the index of absolute pixel (x,y) in band b, or -1 if outside
func (t *Tile) index(b, x, y int) int {
	if !image.Pt(x, y).In(t.rect) || b < 0 || b >= t.bands {
		return -1
	}
	return b*t.Pixels() + (y-t.rect.Min.Y)*t.rect.Dx() + (x - t.rect.Min.X)
}

// Returns the sample at absolute position (x,y) in band b, or the band null value if outside
func (t *Tile) Get(b, x, y int) float64 {
	i := t.index(b, x, y)
	if i < 0 {
		if b >= 0 && b < t.bands {
			return t.Null[b]
		}
		return math.NaN()
	}
	return t.at(i)
}

func (t *Tile) at(i int) float64 {
	switch d := t.data.(type) {
	case []uint8:
		return float64(d[i])
	case []int8:
		return float64(d[i])
	case []uint16:
		return float64(d[i])
	case []int16:
		return float64(d[i])
	case []uint32:
		return float64(d[i])
	case []int32:
		return float64(d[i])
	case []uint64:
		return float64(d[i])
	case []int64:
		return float64(d[i])
	case []float32:
		return float64(d[i])
	case []float64:
		return d[i]
	}
	return math.NaN()
}

// Sets the sample at absolute position (x,y) in band b. Values are rounded
// and clamped for integer types. Positions outside the tile are ignored
func (t *Tile) Set(b, x, y int, v float64) {
	i := t.index(b, x, y)
	if i < 0 {
		return
	}
	t.setAt(i, v)
}

func (t *Tile) setAt(i int, v float64) {
	switch d := t.data.(type) {
	case []uint8:
		d[i] = convert[uint8](v)
	case []int8:
		d[i] = convert[int8](v)
	case []uint16:
		d[i] = convert[uint16](v)
	case []int16:
		d[i] = convert[int16](v)
	case []uint32:
		d[i] = convert[uint32](v)
	case []int32:
		d[i] = convert[int32](v)
	case []uint64:
		d[i] = convert[uint64](v)
	case []int64:
		d[i] = convert[int64](v)
	case []float32:
		d[i] = float32(v)
	case []float64:
		d[i] = v
	}
}

// Returns true if the sample at (x,y) in band b is null or outside the tile
func (t *Tile) IsNull(b, x, y int) bool {
	i := t.index(b, x, y)
	if i < 0 {
		return true
	}
	return isNullValue(t.at(i), t.Null[b])
}

// Sets the null value of band b
func (t *Tile) SetNull(b int, v float64) {
	t.Null[b] = v
}

// Sets all samples to the null value of their band, and the status to empty
func (t *Tile) MakeBlank() {
	n := t.Pixels()
	for b := 0; b < t.bands; b++ {
		null := t.Null[b]
		for i := b * n; i < (b+1)*n; i++ {
			t.setAt(i, null)
		}
	}
	t.status = StatusEmpty
}

// Recomputes the status from the sample contents and returns it
func (t *Tile) ValidateStatus() Status {
	if t.data == nil {
		t.status = StatusNull
		return t.status
	}
	n := t.Pixels()
	total, nulls := n*t.bands, 0
	for b := 0; b < t.bands; b++ {
		null := t.Null[b]
		for i := b * n; i < (b+1)*n; i++ {
			if isNullValue(t.at(i), null) {
				nulls++
			}
		}
	}
	switch {
	case total == 0 || nulls == total:
		t.status = StatusEmpty
	case nulls == 0:
		t.status = StatusFull
	default:
		t.status = StatusPartial
	}
	return t.status
}

// Returns a deep copy of the tile
func (t *Tile) Clone() *Tile {
	c := &Tile{
		rect:   t.rect,
		scalar: t.scalar,
		bands:  t.bands,
		status: t.status,
		data:   allocData(t.scalar, t.bands*t.Pixels()),
		Null:   append([]float64(nil), t.Null...),
		Min:    append([]float64(nil), t.Min...),
		Max:    append([]float64(nil), t.Max...),
	}
	c.CopyFrom(t)
	c.status = t.status
	return c
}

// Copies the region where src and t intersect into t, band by band, converting
// scalar types as needed. Null samples of src become null samples of t
func (t *Tile) CopyFrom(src *Tile) {
	r := t.rect.Intersect(src.rect)
	if r.Empty() {
		return
	}
	bands := min(t.bands, src.bands)
	if t.scalar == src.scalar && sameNulls(t, src, bands) {
		copyRegionTyped(t, src, r, bands)
	} else {
		for b := 0; b < bands; b++ {
			for y := r.Min.Y; y < r.Max.Y; y++ {
				for x := r.Min.X; x < r.Max.X; x++ {
					v := src.Get(b, x, y)
					if isNullValue(v, src.Null[b]) {
						v = t.Null[b]
					}
					t.Set(b, x, y, v)
				}
			}
		}
	}
	t.status = StatusUnknown
}

func sameNulls(a, b *Tile, bands int) bool {
	for i := 0; i < bands; i++ {
		if a.Null[i] != b.Null[i] && !(math.IsNaN(a.Null[i]) && math.IsNaN(b.Null[i])) {
			return false
		}
	}
	return true
}

func copyRegionTyped(dst, src *Tile, r image.Rectangle, bands int) {
	switch dst.scalar {
	case Uint8:
		copyRegion[uint8](dst, src, r, bands)
	case Int8:
		copyRegion[int8](dst, src, r, bands)
	case Uint16:
		copyRegion[uint16](dst, src, r, bands)
	case Int16:
		copyRegion[int16](dst, src, r, bands)
	case Uint32:
		copyRegion[uint32](dst, src, r, bands)
	case Int32:
		copyRegion[int32](dst, src, r, bands)
	case Uint64:
		copyRegion[uint64](dst, src, r, bands)
	case Int64:
		copyRegion[int64](dst, src, r, bands)
	case Float32:
		copyRegion[float32](dst, src, r, bands)
	case Float64:
		copyRegion[float64](dst, src, r, bands)
	}
}

func copyRegion[T Number](dst, src *Tile, r image.Rectangle, bands int) {
	dw, sw := dst.rect.Dx(), src.rect.Dx()
	w := r.Dx()
	for b := 0; b < bands; b++ {
		d, s := Band[T](dst, b), Band[T](src, b)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			do := (y-dst.rect.Min.Y)*dw + r.Min.X - dst.rect.Min.X
			so := (y-src.rect.Min.Y)*sw + r.Min.X - src.rect.Min.X
			copy(d[do:do+w], s[so:so+w])
		}
	}
}

// Returns true if both tiles have the same rectangle, type, bands and samples.
// Null samples compare equal to each other
func (t *Tile) Equal(o *Tile) bool {
	if t.rect != o.rect || t.scalar != o.scalar || t.bands != o.bands {
		return false
	}
	n := t.Pixels() * t.bands
	for i := 0; i < n; i++ {
		a, b := t.at(i), o.at(i)
		band := i / max(t.Pixels(), 1)
		an, bn := isNullValue(a, t.Null[band]), isNullValue(b, o.Null[band])
		if an != bn || (!an && a != b) {
			return false
		}
	}
	return true
}

// Returns the samples of band b converted to float32, with nulls mapped to NaN
func (t *Tile) Float32s(b int) []float32 {
	n := t.Pixels()
	res := make([]float32, n)
	null := t.Null[b]
	for i := 0; i < n; i++ {
		v := t.at(b*n + i)
		if isNullValue(v, null) {
			res[i] = float32(math.NaN())
		} else {
			res[i] = float32(v)
		}
	}
	return res
}

// Returns the samples of band b converted to float64, with nulls mapped to NaN
func (t *Tile) Float64s(b int) []float64 {
	n := t.Pixels()
	res := make([]float64, n)
	null := t.Null[b]
	for i := 0; i < n; i++ {
		v := t.at(b*n + i)
		if isNullValue(v, null) {
			res[i] = math.NaN()
		} else {
			res[i] = v
		}
	}
	return res
}
