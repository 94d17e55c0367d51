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

package config

import (
	"fmt"
	"image"
	"io"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/render"
	"github.com/mlnoga/georender/internal/resample"
	"github.com/mlnoga/georender/internal/source"
	"github.com/mlnoga/georender/internal/transform"
)

// Creates the input source, wrapped in a tile cache if enabled. defaultCacheMB
// is used for a negative cache setting. The returned function releases the cache
func (c *Config) BuildSource(defaultCacheMB int, log io.Writer) (src source.ImageSource, closer func(), err error) {
	if c.Input.Path != "" {
		m, err := source.OpenTIFF(c.Input.Path, c.Input.Overviews)
		if err != nil {
			return nil, nil, err
		}
		logf(log, "Loaded %v from %s\n", m, c.Input.Path)
		src = m
	} else {
		src = c.syntheticSource()
		logf(log, "Using synthetic %s input of %dx%d pixels\n", c.Input.Synthetic, c.Input.Width, c.Input.Height)
	}

	mb := c.Cache.MB
	if mb < 0 {
		mb = defaultCacheMB
	}
	if mb <= 0 {
		return src, func() {}, nil
	}
	cached := source.NewCachedMB(src, mb)
	logf(log, "Caching input tiles in %d MB\n", mb)
	return cached, cached.Close, nil
}

func (c *Config) syntheticSource() *source.Func {
	var f func(band, x, y int) float64
	switch c.Input.Synthetic {
	case "checker":
		f = func(band, x, y int) float64 {
			if ((x>>5)+(y>>5))&1 == 0 {
				return float64(band * 100)
			}
			return float64(255 - band*100)
		}
	default:
		f = func(band, x, y int) float64 {
			return float64(x) + 2*float64(y) + 1000*float64(band)
		}
	}
	src := source.NewFunc(c.Input.Width, c.Input.Height, f)
	src.Bands = c.Input.Bands
	return src
}

// Creates the view transform for an input with the given full resolution bounds
func (c *Config) BuildTransform(inputBounds image.Rectangle, log io.Writer) (transform.ImageViewTransform, error) {
	v := &c.View
	switch v.Kind {
	case "identity":
		return transform.NewIdentity(), nil
	case "scale":
		return transform.NewScale(v.ScaleX, v.ScaleY), nil
	case "affine":
		if len(v.Affine) != 6 {
			return nil, fmt.Errorf("affine view needs 6 coefficients, got %d", len(v.Affine))
		}
		a := v.Affine
		return transform.NewAffine(geom.Transform2D{A: a[0], B: a[1], C: a[2], D: a[3], E: a[4], F: a[5]}), nil
	case "mercator":
		grid := transform.GeoGrid{
			OriginLon: v.OriginLon, OriginLat: v.OriginLat,
			DegPerPixelX: v.DegPerPixelX, DegPerPixelY: v.DegPerPixelY,
		}
		if grid.DegPerPixelX == 0 && grid.DegPerPixelY == 0 && !inputBounds.Empty() {
			// whole world, equirectangular
			grid.OriginLon, grid.OriginLat = -180, 90
			grid.DegPerPixelX = 360 / float64(inputBounds.Dx())
			grid.DegPerPixelY = -180 / float64(inputBounds.Dy())
		}
		return transform.NewMercator(grid, v.Zoom, v.TileSize), nil
	case "tiepoints":
		imagePts := make([]geom.Point2D, len(v.TiePoints))
		viewPts := make([]geom.Point2D, len(v.TiePoints))
		for i, tp := range v.TiePoints {
			if len(tp) != 4 {
				return nil, fmt.Errorf("tie point %d needs 4 values, got %d", i, len(tp))
			}
			imagePts[i] = geom.Point2D{X: tp[0], Y: tp[1]}
			viewPts[i] = geom.Point2D{X: tp[2], Y: tp[3]}
		}
		a, rms, err := transform.FitAffine(imagePts, viewPts, v.Robust)
		if err != nil {
			return nil, fmt.Errorf("fitting tie points: %w", err)
		}
		logf(log, "Fitted %v to %d tie points, residual RMS %.3g pixels\n", a, len(imagePts), rms)
		return a, nil
	}
	return nil, fmt.Errorf("unknown view kind %q", v.Kind)
}

// Creates a renderer for src and view with the configured resampler and limits
func (c *Config) BuildRenderer(src source.ImageSource, view transform.ImageViewTransform) (*render.Renderer, error) {
	k, err := resample.ParseKernel(c.Render.Kernel)
	if err != nil {
		return nil, err
	}
	r := render.NewRenderer(src, view)
	r.SetResampler(resample.NewFilterResampler(k))
	r.Tolerance = c.Render.Tolerance
	r.SetMaxLevelsToCompute(c.Render.MaxLevelsToCompute)
	r.SetStartingResolutionLevel(c.Render.StartingLevel)
	r.SetEnabled(c.Render.Enabled)
	return r, nil
}

// Returns the configured output rectangle, or the renderer bounds at the output level
func (c *Config) OutputRect(r *render.Renderer) image.Rectangle {
	if len(c.Output.Rect) == 4 {
		q := c.Output.Rect
		return image.Rect(q[0], q[1], q[2], q[3])
	}
	return r.BoundingRect(c.Output.Level)
}

func logf(w io.Writer, format string, args ...interface{}) {
	if w != nil {
		fmt.Fprintf(w, format, args...)
	}
}
