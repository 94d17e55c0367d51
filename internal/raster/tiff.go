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
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff"
)

// Reads a TIFF image from the given file into a tile.
func ReadTIFFFile(fileName string) (*Tile, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTIFF(bufio.NewReader(file))
}

// Reads a TIFF image into a tile with origin (0,0). Gray images become a single
// band, color images three bands. 8-bit images map to Uint8, everything else to Uint16
func ReadTIFF(reader io.Reader) (*Tile, error) {
	img, err := tiff.Decode(reader)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	scalar, bands := colorModelToScalarAndBands(img.ColorModel())
	if bands == 0 {
		return nil, fmt.Errorf("unsupported TIFF color model %T", img.ColorModel())
	}

	t := NewTile(image.Rect(0, 0, width, height), scalar, bands)
	n := width * height
	switch img := img.(type) {
	case *image.Gray:
		d := Band[uint8](t, 0)
		for y := 0; y < height; y++ {
			copy(d[y*width:(y+1)*width], img.Pix[y*img.Stride:y*img.Stride+width])
		}
	case *image.Gray16:
		d := Band[uint16](t, 0)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				d[y*width+x] = img.Gray16At(b.Min.X+x, b.Min.Y+y).Y
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				if scalar == Uint8 {
					r, g, bl = r>>8, g>>8, bl>>8
				}
				i := y*width + x
				if bands == 1 {
					t.setAt(i, float64(r))
				} else {
					t.setAt(i, float64(r))
					t.setAt(i+n, float64(g))
					t.setAt(i+2*n, float64(bl))
				}
			}
		}
	}
	t.ValidateStatus()
	return t, nil
}

func colorModelToScalarAndBands(m color.Model) (ScalarType, int) {
	switch m {
	case color.RGBAModel, color.NRGBAModel:
		return Uint8, 3
	case color.RGBA64Model, color.NRGBA64Model:
		return Uint16, 3
	case color.AlphaModel, color.GrayModel:
		return Uint8, 1
	case color.Alpha16Model, color.Gray16Model:
		return Uint16, 1
	default:
		return Uint16, 3
	}
}

// Writes a tile to a TIFF file.
func WriteTIFFFile(fileName string, t *Tile) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := WriteTIFF(writer, t); err != nil {
		return err
	}
	return writer.Flush()
}

// Writes a tile as TIFF. Uint8 tiles are written as 8-bit, everything else as
// 16-bit. Types wider than 16 bits are stretched from their band min/max first.
// One band gives a gray image, three or more bands an RGB image
func WriteTIFF(writer io.Writer, t *Tile) error {
	if t.bands != 1 && t.bands < 3 {
		return errors.New("TIFF output needs one or at least three bands")
	}
	r := image.Rect(0, 0, t.Width(), t.Height())
	var img image.Image
	switch {
	case t.scalar == Uint8 && t.bands == 1:
		g := image.NewGray(r)
		copy(g.Pix, Band[uint8](t, 0))
		img = g
	case t.scalar == Uint8:
		c := image.NewRGBA(r)
		R, G, B := Band[uint8](t, 0), Band[uint8](t, 1), Band[uint8](t, 2)
		for i := range R {
			c.Pix[4*i], c.Pix[4*i+1], c.Pix[4*i+2], c.Pix[4*i+3] = R[i], G[i], B[i], 255
		}
		img = c
	default:
		scales := make([]func(float64) uint16, min(t.bands, 3))
		for b := range scales {
			scales[b] = to16Bit(t, b)
		}
		if t.bands == 1 {
			g := image.NewGray16(r)
			for y := 0; y < r.Dy(); y++ {
				for x := 0; x < r.Dx(); x++ {
					g.SetGray16(x, y, color.Gray16{Y: scales[0](t.Get(0, t.rect.Min.X+x, t.rect.Min.Y+y))})
				}
			}
			img = g
		} else {
			c := image.NewRGBA64(r)
			for y := 0; y < r.Dy(); y++ {
				for x := 0; x < r.Dx(); x++ {
					ax, ay := t.rect.Min.X+x, t.rect.Min.Y+y
					c.SetRGBA64(x, y, color.RGBA64{
						R: scales[0](t.Get(0, ax, ay)),
						G: scales[1](t.Get(1, ax, ay)),
						B: scales[2](t.Get(2, ax, ay)),
						A: 65535,
					})
				}
			}
			img = c
		}
	}
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: false})
}

// Returns a mapping of band b values to 16 bits. Uint16 passes through, other
// types are stretched from the observed band min/max. Nulls map to zero
func to16Bit(t *Tile, b int) func(float64) uint16 {
	null := t.Null[b]
	if t.scalar == Uint16 {
		return func(v float64) uint16 {
			if isNullValue(v, null) {
				return 0
			}
			return uint16(v)
		}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	n := t.Pixels()
	for i := b * n; i < (b+1)*n; i++ {
		v := t.at(i)
		if isNullValue(v, null) {
			continue
		}
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	scale := 0.0
	if hi > lo {
		scale = 65535 / (hi - lo)
	}
	return func(v float64) uint16 {
		if isNullValue(v, null) {
			return 0
		}
		return uint16(math.Round(math.Max(0, math.Min(65535, (v-lo)*scale))))
	}
}
