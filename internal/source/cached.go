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
	"sync/atomic"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/raster"
	"golang.org/x/sync/singleflight"
)

// Time to live of cached blocks
const cacheTTL = 10 * time.Minute

// Serves tiles from grid-aligned blocks of an underlying source, held in an LRU
// cache. Concurrent loads of the same block are collapsed into one. Safe for
// concurrent use if the underlying source is; cached blocks are never modified
type Cached struct {
	src   ImageSource
	block image.Point
	cache *ccache.Cache[*raster.Tile]
	group singleflight.Group

	hits, loads atomic.Int64
}

// Wraps src with a cache of at most maxBlocks blocks of the source's tile size
func NewCached(src ImageSource, maxBlocks int64) *Cached {
	if maxBlocks < 1 {
		maxBlocks = 1
	}
	prune := uint32(maxBlocks / 16)
	if prune < 1 {
		prune = 1
	}
	return &Cached{
		src:   src,
		block: src.TileSize(),
		cache: ccache.New(ccache.Configure[*raster.Tile]().MaxSize(maxBlocks).ItemsToPrune(prune)),
	}
}

// Wraps src with a cache sized to the given number of megabytes
func NewCachedMB(src ImageSource, mb int) *Cached {
	ts := src.TileSize()
	bytesPerBlock := int64(ts.X) * int64(ts.Y) * int64(src.NumBands()) * int64(src.ScalarType().Bits()/8)
	return NewCached(src, int64(mb)*1024*1024/max(bytesPerBlock, 1))
}

func (c *Cached) String() string {
	return fmt.Sprintf("cached(%v) blocks %v hits %d loads %d", c.src, c.block, c.hits.Load(), c.loads.Load())
}

// Returns the number of block requests served from the cache, and loaded from the source
func (c *Cached) Counts() (hits, loads int64) {
	return c.hits.Load(), c.loads.Load()
}

// Stops the cache's background worker
func (c *Cached) Close() {
	c.cache.Stop()
}

func (c *Cached) GetTile(rect image.Rectangle, level int) *raster.Tile {
	if level < 0 || level >= c.src.NumDecimationLevels() {
		return nil
	}
	t := NewBlankTile(c, rect)
	covered := geom.SnapOut(rect.Intersect(c.src.BoundingRect(level)), c.block.X, c.block.Y)
	for by := covered.Min.Y; by < covered.Max.Y; by += c.block.Y {
		for bx := covered.Min.X; bx < covered.Max.X; bx += c.block.X {
			if b := c.getBlock(bx, by, level); b != nil {
				t.CopyFrom(b)
			}
		}
	}
	t.ValidateStatus()
	return t
}

// Returns the block with upper left corner (bx,by), from cache or loaded from the source
func (c *Cached) getBlock(bx, by, level int) *raster.Tile {
	key := fmt.Sprintf("%d/%d/%d", level, bx, by)
	if item := c.cache.Get(key); item != nil && !item.Expired() {
		c.hits.Add(1)
		return item.Value()
	}
	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		if item := c.cache.Get(key); item != nil && !item.Expired() {
			return item.Value(), nil
		}
		c.loads.Add(1)
		r := image.Rect(bx, by, bx+c.block.X, by+c.block.Y)
		b := c.src.GetTile(r, level)
		c.cache.Set(key, b, cacheTTL)
		return b, nil
	})
	return v.(*raster.Tile)
}

func (c *Cached) BoundingRect(level int) image.Rectangle { return c.src.BoundingRect(level) }
func (c *Cached) DecimationFactor(level int) (geom.Point2D, bool) {
	return c.src.DecimationFactor(level)
}
func (c *Cached) NumDecimationLevels() int      { return c.src.NumDecimationLevels() }
func (c *Cached) NumBands() int                 { return c.src.NumBands() }
func (c *Cached) ScalarType() raster.ScalarType { return c.src.ScalarType() }
func (c *Cached) NullPix(band int) float64      { return c.src.NullPix(band) }
func (c *Cached) TileSize() image.Point         { return c.block }
