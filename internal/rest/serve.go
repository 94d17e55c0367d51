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

// Package rest serves rendered view tiles over HTTP.
package rest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mlnoga/georender/internal/ops"
	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/render"
	"github.com/mlnoga/georender/web"
)

// Largest overview edge rendered to derive display stretches
const stretchProbeSize = 512

// Highest accepted output level
const maxLevel = 30

type server struct {
	c         *ops.Context
	proto     *render.Renderer
	pool      *ops.Pool
	tileSize  int
	opts      ops.PreviewOptions
	stretches []raster.Stretch
}

// Creates the router for tile requests against clones of r, with tiles of
// tileSize view pixels. Previews share one stretch derived from an overview of
// the whole view, so adjacent tiles match
func NewRouter(c *ops.Context, r *render.Renderer, tileSize int, opts ops.PreviewOptions) *gin.Engine {
	s := &server{
		c:        c,
		proto:    r,
		pool:     ops.NewPool(r, c.MaxThreads),
		tileSize: tileSize,
		opts:     opts,
	}
	s.stretches = s.probeStretches()

	router := gin.New()
	router.Use(gin.Recovery())
	if c.Log != nil {
		router.Use(gin.LoggerWithWriter(c.Log))
	}
	router.GET("/", getIndex)
	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.GET("/info", s.getInfo)
			v1.GET("/tiles/:level/:col/:row", s.getTile)
		}
	}
	return router
}

func getIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

// Renders the coarsest view level fitting into the probe size and auto stretches it
func (s *server) probeStretches() []raster.Stretch {
	r := s.proto.Clone()
	level := 0
	for ; level < maxLevel; level++ {
		b := r.BoundingRect(level)
		if b.Dx() <= stretchProbeSize && b.Dy() <= stretchProbeSize {
			break
		}
	}
	t := r.GetTile(r.BoundingRect(level), level)
	if t == nil || t.ValidateStatus() == raster.StatusEmpty || t.Status() == raster.StatusNull {
		return nil
	}
	st := ops.AutoStretches(t, s.opts.Gamma)
	s.c.Logf("Display stretch from level %d overview: %v\n", level, st)
	return st
}

type rectJSON struct {
	MinX int `json:"minX"`
	MinY int `json:"minY"`
	MaxX int `json:"maxX"`
	MaxY int `json:"maxY"`
}

func toRectJSON(r image.Rectangle) rectJSON {
	return rectJSON{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y}
}

func (s *server) getInfo(c *gin.Context) {
	r := s.proto
	in := r.Input()
	c.JSON(http.StatusOK, gin.H{
		"input":      toRectJSON(in.BoundingRect(0)),
		"view":       toRectJSON(r.BoundingRect(0)),
		"bands":      r.NumBands(),
		"scalarType": r.ScalarType().String(),
		"levels":     r.NumDecimationLevels(),
		"tileSize":   s.tileSize,
		"enabled":    r.Enabled(),
		"stats":      s.pool.Stats(),
	})
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

// Returns the range of tile columns and rows intersecting bounds, widened by one tile
func tileRange(bounds image.Rectangle, ts int) (lo, hi image.Point) {
	if bounds.Empty() {
		return image.Pt(0, 0), image.Pt(0, 0)
	}
	lo = image.Pt(floorDiv(bounds.Min.X, ts)-1, floorDiv(bounds.Min.Y, ts)-1)
	hi = image.Pt(floorDiv(bounds.Max.X-1, ts)+1, floorDiv(bounds.Max.Y-1, ts)+1)
	return lo, hi
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func (s *server) getTile(c *gin.Context) {
	level, err := strconv.Atoi(c.Param("level"))
	if err != nil || level < 0 || level > maxLevel {
		badRequest(c, "invalid level '%s'", c.Param("level"))
		return
	}
	col, err := strconv.Atoi(c.Param("col"))
	if err != nil {
		badRequest(c, "invalid column '%s'", c.Param("col"))
		return
	}
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		badRequest(c, "invalid row '%s'", c.Param("row"))
		return
	}
	format := c.DefaultQuery("format", "png")
	if format != "png" && format != "jpg" && format != "tif" {
		badRequest(c, "invalid format '%s', want png, jpg or tif", format)
		return
	}

	r, err := s.pool.Get(c.Request.Context())
	if err != nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	defer s.pool.Put(r)

	ts := s.tileSize
	lo, hi := tileRange(r.BoundingRect(level), ts)
	if col < lo.X || col > hi.X || row < lo.Y || row > hi.Y {
		badRequest(c, "tile %d/%d out of range %v-%v at level %d", col, row, lo, hi, level)
		return
	}
	rect := image.Rect(col*ts, row*ts, (col+1)*ts, (row+1)*ts)
	t := r.GetTile(rect, level)
	if t == nil || t.Status() == raster.StatusEmpty || t.Status() == raster.StatusNull {
		c.Status(http.StatusNoContent)
		return
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "tif":
		contentType, err = "image/tiff", raster.WriteTIFF(&buf, t)
	case "jpg":
		contentType, err = "image/jpeg", raster.EncodeJPEG(&buf, s.preview(t), s.quality())
	default:
		contentType, err = "image/png", raster.EncodePNG(&buf, s.preview(t))
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s *server) preview(t *raster.Tile) image.Image {
	st := s.stretches
	if len(st) != t.Bands() {
		st = ops.AutoStretches(t, s.opts.Gamma)
	}
	return raster.ToImage(t, st, s.opts.Ramp)
}

func (s *server) quality() int {
	if s.opts.Quality <= 0 || s.opts.Quality > 100 {
		return 95
	}
	return s.opts.Quality
}

// Serves the router on addr until SIGINT or SIGTERM, then shuts down gracefully
func Serve(addr string, router http.Handler, log io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return ServeContext(ctx, addr, router, log)
}

// Serves the router on addr until ctx is done, then shuts down gracefully
func ServeContext(ctx context.Context, addr string, router http.Handler, log io.Writer) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errs := make(chan error, 1)
	go func() {
		errs <- httpServer.ListenAndServe()
	}()
	if log != nil {
		fmt.Fprintf(log, "Serving tiles on http://%s/api/v1/tiles/{level}/{col}/{row}\n", addr)
	}

	select {
	case err := <-errs:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	if log != nil {
		fmt.Fprintf(log, "Shutting down server...\n")
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
