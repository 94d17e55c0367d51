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
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlnoga/georender/internal/stats"
)

// Number of random samples drawn for automatic stretching
const autoStretchSamples = 32 * 1024

// Linear stretch of sample values to [0,1], followed by a gamma curve
type Stretch struct {
	Min, Max float64
	Gamma    float64
}

func (s Stretch) String() string {
	return fmt.Sprintf("min %.6g max %.6g gamma %.3g", s.Min, s.Max, s.Gamma)
}

// Maps v to [0,1]. Returns NaN for NaN input
func (s Stretch) Apply(v float64) float64 {
	if v != v {
		return v
	}
	f := 0.0
	if s.Max > s.Min {
		f = (v - s.Min) / (s.Max - s.Min)
	}
	f = math.Max(0, math.Min(1, f))
	if s.Gamma > 0 && s.Gamma != 1 {
		f = math.Pow(f, 1/s.Gamma)
	}
	return f
}

// Determines a stretch for band b from the 0.5 and 99.5 percentiles of its
// valid samples. Falls back to min/max for flat data
func AutoStretch(t *Tile, b int) Stretch {
	data := t.Float32s(b)
	nan := float32(math.NaN())
	lo := stats.FastApproxPercentile(data, nan, 0.005, autoStretchSamples)
	hi := stats.FastApproxPercentile(data, nan, 0.995, autoStretchSamples)
	if !(hi > lo) {
		min, _, max, _ := stats.MinMeanMax(data, nan)
		lo, hi = min, max
	}
	if !(hi > lo) {
		lo, hi = lo-0.5, lo+0.5
	}
	return Stretch{Min: float64(lo), Max: float64(hi), Gamma: 1}
}

// A color ramp blending between evenly spaced stops in CIE-L*a*b* space
type ColorRamp struct {
	stops []colorful.Color
}

// Predefined color ramps, by name
var namedRamps = map[string][]string{
	"gray":      {"#000000", "#ffffff"},
	"elevation": {"#1a3d8f", "#3b8f3b", "#d8c779", "#9a6b3f", "#ffffff"},
	"viridis":   {"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"},
	"heat":      {"#000000", "#8b0000", "#ff8c00", "#ffff00", "#ffffff"},
}

// Creates a color ramp from two or more hex colors
func NewColorRamp(hexStops ...string) (*ColorRamp, error) {
	if len(hexStops) < 2 {
		return nil, fmt.Errorf("color ramp needs at least two stops, got %d", len(hexStops))
	}
	r := &ColorRamp{stops: make([]colorful.Color, len(hexStops))}
	for i, h := range hexStops {
		c, err := colorful.Hex(strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("color ramp stop %d: %w", i, err)
		}
		r.stops[i] = c
	}
	return r, nil
}

// Parses a color ramp from a predefined name or a comma-separated list of hex colors.
// The empty string yields a nil ramp
func ParseColorRamp(s string) (*ColorRamp, error) {
	if s == "" || s == "none" {
		return nil, nil
	}
	if stops, ok := namedRamps[strings.ToLower(s)]; ok {
		return NewColorRamp(stops...)
	}
	return NewColorRamp(strings.Split(s, ",")...)
}

// Returns the color at position f in [0,1]
func (r *ColorRamp) At(f float64) color.NRGBA {
	f = math.Max(0, math.Min(1, f))
	pos := f * float64(len(r.stops)-1)
	i := int(pos)
	if i >= len(r.stops)-1 {
		i = len(r.stops) - 2
	}
	c := r.stops[i].BlendLab(r.stops[i+1], pos-float64(i)).Clamped()
	R, G, B := c.RGB255()
	return color.NRGBA{R: R, G: G, B: B, A: 255}
}

// Converts a tile into an image for display. Uses the given per-band stretches,
// or automatic ones if nil. One band with a ramp and three or more bands yield
// RGB images, a single band without a ramp a gray image. Null pixels are
// transparent; a gray image is used only if there are none
func ToImage(t *Tile, s []Stretch, ramp *ColorRamp) image.Image {
	bands := 1
	if t.bands >= 3 {
		bands = 3
	}
	if s == nil {
		s = make([]Stretch, bands)
		for b := range s {
			s[b] = AutoStretch(t, b)
		}
	}
	r := image.Rect(0, 0, t.Width(), t.Height())
	ox, oy := t.rect.Min.X, t.rect.Min.Y

	if bands == 1 && ramp == nil && t.ValidateStatus() == StatusFull {
		g := image.NewGray(r)
		for y := 0; y < r.Dy(); y++ {
			for x := 0; x < r.Dx(); x++ {
				g.SetGray(x, y, color.Gray{Y: uint8(math.Round(255 * s[0].Apply(t.Get(0, ox+x, oy+y))))})
			}
		}
		return g
	}

	img := image.NewNRGBA(r)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			if t.anyNull(bands, ox+x, oy+y) {
				continue // transparent
			}
			var c color.NRGBA
			switch {
			case bands == 3:
				c = color.NRGBA{
					R: uint8(math.Round(255 * s[0].Apply(t.Get(0, ox+x, oy+y)))),
					G: uint8(math.Round(255 * s[1].Apply(t.Get(1, ox+x, oy+y)))),
					B: uint8(math.Round(255 * s[2].Apply(t.Get(2, ox+x, oy+y)))),
					A: 255,
				}
			case ramp != nil:
				c = ramp.At(s[0].Apply(t.Get(0, ox+x, oy+y)))
			default:
				v := uint8(math.Round(255 * s[0].Apply(t.Get(0, ox+x, oy+y))))
				c = color.NRGBA{R: v, G: v, B: v, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func (t *Tile) anyNull(bands, x, y int) bool {
	for b := 0; b < bands; b++ {
		if t.IsNull(b, x, y) {
			return true
		}
	}
	return false
}

// Write an image as PNG
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

// Write an image as JPG with the given quality. Transparent pixels come out black
func EncodeJPEG(w io.Writer, img image.Image, quality int) error {
	return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
}
