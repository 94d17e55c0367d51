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

package ops

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/render"
	"github.com/mlnoga/georender/internal/source"
)

// Renders rect at the given output level in tiles of tileSize view pixels,
// concurrently with up to c.MaxThreads renderer clones, and assembles the
// result into a single tile. Cancelling ctx stops between tiles
func Mosaic(ctx context.Context, c *Context, r *render.Renderer, rect image.Rectangle, level int, tileSize int) (*raster.Tile, error) {
	if rect.Empty() {
		return nil, errors.New("empty mosaic rectangle")
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("invalid tile size %d", tileSize)
	}
	if r.Input() == nil {
		return nil, errors.New("renderer without input")
	}
	threads := c.MaxThreads
	if threads < 1 {
		threads = 1
	}

	grid := geom.SnapOut(rect, tileSize, tileSize)
	var rects []image.Rectangle
	for y := grid.Min.Y; y < grid.Max.Y; y += tileSize {
		for x := grid.Min.X; x < grid.Max.X; x += tileSize {
			if t := image.Rect(x, y, x+tileSize, y+tileSize).Intersect(rect); !t.Empty() {
				rects = append(rects, t)
			}
		}
	}
	if len(rects) < threads {
		threads = len(rects)
	}

	start := time.Now()
	c.Logf("Rendering %v at level %d as %d tiles with %d threads\n", rect, level, len(rects), threads)

	out := source.NewBlankTile(r, rect)
	var mu sync.Mutex
	pool := NewPool(r, threads)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for _, tr := range rects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rr, err := pool.Get(gctx)
			if err != nil {
				return err
			}
			defer pool.Put(rr)
			t := rr.GetTile(tr, level)
			if t == nil {
				return fmt.Errorf("no data for tile %v at level %d", tr, level)
			}
			mu.Lock()
			out.CopyFrom(t)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.ValidateStatus()
	c.Logf("Rendered %v in %v: %v\n", rect, time.Since(start), pool.Stats())
	return out, nil
}
