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
	"bytes"
	"image"
	"math"
	"testing"
)

func TestConvert(t *testing.T) {
	tests := []struct {
		scalar ScalarType
		in     float64
		want   float64
	}{
		{Uint8, 12.4, 12},
		{Uint8, 12.5, 13},
		{Uint8, -3, 0},
		{Uint8, 300, 255},
		{Int8, -200, -128},
		{Int16, 1e6, 32767},
		{Uint16, math.NaN(), 0},
		{Float32, 1.25, 1.25},
	}
	for _, test := range tests {
		tile := NewTile(image.Rect(0, 0, 1, 1), test.scalar, 1)
		tile.Set(0, 0, 0, test.in)
		if got := tile.Get(0, 0, 0); got != test.want {
			t.Errorf("%s set %f: got %f; want %f", test.scalar, test.in, got, test.want)
		}
	}
}

func TestParseScalarType(t *testing.T) {
	for i := Uint8; i <= Float64; i++ {
		p, err := ParseScalarType(i.String())
		if err != nil || p != i {
			t.Errorf("ParseScalarType(%s)=%v,%v; want %v", i, p, err, i)
		}
	}
	if _, err := ParseScalarType("complex128"); err == nil {
		t.Errorf("ParseScalarType(complex128): want error")
	}
}

func TestTileAbsoluteCoordinates(t *testing.T) {
	tile := NewTile(image.Rect(100, 200, 104, 203), Int16, 2)
	if tile.Status() != StatusEmpty {
		t.Errorf("new tile status=%s; want empty", tile.Status())
	}
	tile.Set(1, 103, 202, -7)
	if v := tile.Get(1, 103, 202); v != -7 {
		t.Errorf("Get=%f; want -7", v)
	}
	if v := Band[int16](tile, 1)[2*4+3]; v != -7 {
		t.Errorf("band storage=%d; want -7", v)
	}
	if !tile.IsNull(0, 0, 0) {
		t.Errorf("outside pixel should be null")
	}
	if s := tile.ValidateStatus(); s != StatusPartial {
		t.Errorf("status=%s; want partial", s)
	}
}

func TestBandTypeMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic")
		}
	}()
	tile := NewTile(image.Rect(0, 0, 2, 2), Uint8, 1)
	_ = Band[float32](tile, 0)
}

func TestValidateStatus(t *testing.T) {
	tile := NewTile(image.Rect(0, 0, 2, 2), Float32, 1)
	if s := tile.ValidateStatus(); s != StatusEmpty {
		t.Errorf("status=%s; want empty", s)
	}
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			tile.Set(0, x, y, 1)
		}
	}
	if s := tile.ValidateStatus(); s != StatusFull {
		t.Errorf("status=%s; want full", s)
	}
	tile.MakeBlank()
	if s := tile.ValidateStatus(); s != StatusEmpty {
		t.Errorf("status after MakeBlank=%s; want empty", s)
	}
}

func TestSetRectReusesBuffer(t *testing.T) {
	tile := NewTile(image.Rect(0, 0, 8, 8), Float64, 1)
	before := &Band[float64](tile, 0)[0]
	tile.SetRect(image.Rect(10, 10, 14, 14))
	tile.MakeBlank()
	if after := &Band[float64](tile, 0)[0]; after != before {
		t.Errorf("shrinking reallocated the buffer")
	}
	if w, h := tile.Width(), tile.Height(); w != 4 || h != 4 {
		t.Errorf("size=%dx%d; want 4x4", w, h)
	}
	tile.SetRect(image.Rect(0, 0, 16, 16))
	if n := len(Band[float64](tile, 0)); n != 256 {
		t.Errorf("len=%d; want 256", n)
	}
}

func TestCopyFrom(t *testing.T) {
	src := NewTile(image.Rect(0, 0, 4, 4), Float32, 1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(0, x, y, float64(x+10*y))
		}
	}
	src.Set(0, 2, 2, math.NaN())

	// same type
	dst := NewTile(image.Rect(2, 2, 6, 6), Float32, 1)
	dst.CopyFrom(src)
	if v := dst.Get(0, 3, 3); v != 33 {
		t.Errorf("copied value=%f; want 33", v)
	}
	if !dst.IsNull(0, 2, 2) || !dst.IsNull(0, 5, 5) {
		t.Errorf("null and uncovered pixels should be null")
	}

	// converting, with a different null value
	conv := NewTile(image.Rect(0, 0, 4, 4), Uint8, 1)
	conv.SetNull(0, 255)
	conv.MakeBlank()
	conv.CopyFrom(src)
	if v := conv.Get(0, 2, 2); v != 255 {
		t.Errorf("converted null=%f; want 255", v)
	}
	if v := conv.Get(0, 1, 3); v != 31 {
		t.Errorf("converted value=%f; want 31", v)
	}

	c := src.Clone()
	if !c.Equal(src) {
		t.Errorf("clone differs from original")
	}
	c.Set(0, 0, 0, 5)
	if c.Equal(src) || src.Get(0, 0, 0) != 0 {
		t.Errorf("clone shares storage with original")
	}
}

func TestDecimateBlockAverage(t *testing.T) {
	// 2x2 block with one null sample off the block centre
	src := NewTile(image.Rect(0, 0, 2, 2), Float32, 1)
	src.SetNull(0, -9999)
	src.Set(0, 0, 0, 10)
	src.Set(0, 1, 0, 20)
	src.Set(0, 0, 1, -9999)
	src.Set(0, 1, 1, 30)

	dst := NewTile(image.Rect(0, 0, 1, 1), Float32, 1)
	dst.SetNull(0, -9999)
	dst.MakeBlank()
	if n := DecimateInto(dst, src, 2); n != 1 {
		t.Errorf("written=%d; want 1", n)
	}
	if v := dst.Get(0, 0, 0); v != 20 {
		t.Errorf("average=%f; want 20", v)
	}
}

func TestDecimateNullCentre(t *testing.T) {
	src := NewTile(image.Rect(0, 0, 4, 4), Uint16, 1)
	src.SetNull(0, 0)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			src.Set(0, x, y, 100)
		}
	}
	src.Set(0, 1, 1, 0) // centre of block (0,0)
	dst := NewTile(image.Rect(0, 0, 2, 2), Uint16, 1)
	dst.Set(0, 0, 0, 7)
	DecimateInto(dst, src, 2)
	if v := dst.Get(0, 0, 0); v != 7 {
		t.Errorf("block with null centre=%f; want untouched 7", v)
	}
	if v := dst.Get(0, 1, 1); v != 100 {
		t.Errorf("full block=%f; want 100", v)
	}
}

func TestDecimate(t *testing.T) {
	src := NewTile(image.Rect(0, 0, 8, 6), Int32, 1)
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			src.Set(0, x, y, float64(x))
		}
	}
	d := Decimate(src, 2)
	if r := d.Rect(); r != image.Rect(0, 0, 4, 3) {
		t.Errorf("rect=%v; want (0,0)-(4,3)", r)
	}
	// mean of 2 and 3 is 2.5, rounded to 3 for integers
	if v := d.Get(0, 1, 1); v != 3 {
		t.Errorf("value=%f; want 3", v)
	}
	if s := d.Status(); s != StatusFull {
		t.Errorf("status=%s; want full", s)
	}
}

func TestTIFFRoundTrip(t *testing.T) {
	src := NewTile(image.Rect(0, 0, 5, 3), Uint16, 1)
	for y := 0; y < 3; y++ {
		for x := 0; x < 5; x++ {
			src.Set(0, x, y, float64(1000*y+x+1))
		}
	}
	var buf bytes.Buffer
	if err := WriteTIFF(&buf, src); err != nil {
		t.Fatal(err)
	}
	dst, err := ReadTIFF(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if dst.ScalarType() != Uint16 || dst.Bands() != 1 {
		t.Fatalf("read %s x%d; want uint16 x1", dst.ScalarType(), dst.Bands())
	}
	if !dst.Equal(src) {
		t.Errorf("round trip changed samples: got %v want %v", Band[uint16](dst, 0), Band[uint16](src, 0))
	}
}

func TestTIFFFloatStretch(t *testing.T) {
	src := NewTile(image.Rect(0, 0, 2, 1), Float32, 3)
	for b := 0; b < 3; b++ {
		src.Set(b, 0, 0, -1)
		src.Set(b, 1, 0, 1)
	}
	var buf bytes.Buffer
	if err := WriteTIFF(&buf, src); err != nil {
		t.Fatal(err)
	}
	dst, err := ReadTIFF(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if dst.Bands() != 3 || dst.Get(0, 0, 0) != 0 || dst.Get(2, 1, 0) != 65535 {
		t.Errorf("stretched output %v; want 0 and 65535", Band[uint16](dst, 0))
	}
}

func TestColorRamp(t *testing.T) {
	r, err := ParseColorRamp("#000000,#ffffff")
	if err != nil {
		t.Fatal(err)
	}
	if c := r.At(0); c.R != 0 || c.A != 255 {
		t.Errorf("At(0)=%v; want black", c)
	}
	if c := r.At(1); c.R != 255 || c.G != 255 || c.B != 255 {
		t.Errorf("At(1)=%v; want white", c)
	}
	if _, err := ParseColorRamp("#zzzzzz,#000000"); err == nil {
		t.Errorf("bad hex: want error")
	}
	if r, err := ParseColorRamp("elevation"); err != nil || r == nil {
		t.Errorf("elevation ramp: %v", err)
	}
}

func TestToImage(t *testing.T) {
	tile := NewTile(image.Rect(0, 0, 2, 1), Float32, 1)
	tile.Set(0, 0, 0, 5)
	img := ToImage(tile, []Stretch{{Min: 0, Max: 10, Gamma: 1}}, nil)
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		t.Fatalf("image type %T; want *image.NRGBA for partial tile", img)
	}
	if c := nrgba.NRGBAAt(0, 0); c.R != 128 || c.A != 255 {
		t.Errorf("pixel=%v; want gray 128", c)
	}
	if c := nrgba.NRGBAAt(1, 0); c.A != 0 {
		t.Errorf("null pixel alpha=%d; want 0", c.A)
	}

	tile.Set(0, 1, 0, 10)
	if _, ok := ToImage(tile, nil, nil).(*image.Gray); !ok {
		t.Errorf("full single band tile should yield *image.Gray")
	}
	var buf bytes.Buffer
	if err := EncodePNG(&buf, img); err != nil || buf.Len() == 0 {
		t.Errorf("EncodePNG: %v", err)
	}
}
