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
	"bytes"
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/render"
	"github.com/mlnoga/georender/internal/source"
	"github.com/mlnoga/georender/internal/transform"
)

func TestNewContext(t *testing.T) {
	c := NewContext(nil)
	if c.MaxThreads < 1 {
		t.Errorf("threads %d; want at least 1", c.MaxThreads)
	}
	if c.MemoryMB > 0 && c.CacheMB != c.MemoryMB/4 {
		t.Errorf("cache %d MB; want %d", c.CacheMB, c.MemoryMB/4)
	}
	c.Logf("silent %d\n", 1)
}

func TestMosaic(t *testing.T) {
	src := source.NewGradient(300, 200, 1, 2, 0)
	r := render.NewRenderer(src, transform.NewIdentity())
	var log bytes.Buffer
	c := &Context{Log: &log, MaxThreads: 3}

	rect := image.Rect(10, 5, 290, 195)
	got, err := Mosaic(context.Background(), c, r, rect, 0, 64)
	if err != nil {
		t.Fatal(err)
	}
	if want := src.GetTile(rect, 0); !got.Equal(want) {
		t.Errorf("mosaic differs from input")
	}
	if got.Status() != raster.StatusFull {
		t.Errorf("status %v; want %v", got.Status(), raster.StatusFull)
	}
	if log.Len() == 0 {
		t.Errorf("no log output")
	}
	if s := r.Stats(); s.Tiles != 0 {
		t.Errorf("prototype renderer used for %d tiles; want clones only", s.Tiles)
	}
}

func TestMosaicErrors(t *testing.T) {
	src := source.NewGradient(64, 64, 1, 2, 0)
	r := render.NewRenderer(src, transform.NewIdentity())
	c := &Context{MaxThreads: 2}

	if _, err := Mosaic(context.Background(), c, r, image.Rectangle{}, 0, 16); err == nil {
		t.Errorf("empty rect accepted")
	}
	if _, err := Mosaic(context.Background(), c, r, image.Rect(0, 0, 8, 8), 0, 0); err == nil {
		t.Errorf("zero tile size accepted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Mosaic(ctx, c, r, image.Rect(0, 0, 64, 64), 0, 16); !errors.Is(err, context.Canceled) {
		t.Errorf("err=%v; want %v", err, context.Canceled)
	}
}

func TestPoolGetCancelled(t *testing.T) {
	r := render.NewRenderer(source.NewGradient(8, 8, 1, 0, 0), transform.NewIdentity())
	p := NewPool(r, 1)
	first, err := p.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Get(ctx); err == nil {
		t.Errorf("empty pool returned a renderer")
	}
	p.Put(first)
	if p.Size() != 1 {
		t.Errorf("size %d; want 1", p.Size())
	}
}

func TestSave(t *testing.T) {
	tile := source.NewGradient(32, 16, 1, 2, 0).GetTile(image.Rect(0, 0, 32, 16), 0)
	c := &Context{}
	dir := t.TempDir()
	ramp, err := raster.ParseColorRamp("elevation")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		opts    PreviewOptions
		wantErr bool
	}{
		{"out.tif", PreviewOptions{}, false},
		{"out.PNG", PreviewOptions{Ramp: ramp}, false},
		{"out.jpg", PreviewOptions{Gamma: 2.2, Quality: 80}, false},
		{"out.bmp", PreviewOptions{}, true},
	}
	for _, test := range tests {
		fileName := filepath.Join(dir, test.name)
		err := Save(tile, fileName, test.opts, c)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: err=%v; want error %v", test.name, err, test.wantErr)
			continue
		}
		if test.wantErr {
			continue
		}
		if fi, err := os.Stat(fileName); err != nil || fi.Size() == 0 {
			t.Errorf("%s: not written: %v", test.name, err)
		}
	}

	back, err := raster.ReadTIFFFile(filepath.Join(dir, "out.tif"))
	if err != nil {
		t.Fatal(err)
	}
	if back.Width() != 32 || back.Height() != 16 {
		t.Errorf("read back %dx%d; want 32x16", back.Width(), back.Height())
	}
}

func TestDescribe(t *testing.T) {
	src := source.NewFunc(64, 64, func(band, x, y int) float64 {
		if band == 1 || x < 4 {
			return math.NaN()
		}
		return float64((x*7 + y*13) % 100)
	})
	src.Bands = 2
	tile := src.GetTile(image.Rect(0, 0, 64, 64), 0)
	var log bytes.Buffer
	res := Describe(tile, &Context{Log: &log})
	if len(res) != 2 {
		t.Fatalf("%d results; want 2", len(res))
	}
	if res[1] != nil {
		t.Errorf("all-null band got %v; want nil", res[1])
	}
	s := res[0]
	if s == nil {
		t.Fatalf("no statistics for band 0")
	}
	if s.Valid != 60*64 || s.Min < 0 || s.Min > 5 || s.Max < 94 || s.Max > 99 {
		t.Errorf("stats %v; want 3840 valid samples spanning [0,99]", s)
	}
	if math.Abs(float64(s.Location)-50) > 5 {
		t.Errorf("location %f; want about 50", s.Location)
	}
	if !strings.Contains(log.String(), "Band 1") {
		t.Errorf("log lacks band 1: %q", log.String())
	}
}

func TestCheckPathAllowed(t *testing.T) {
	tests := []struct {
		path string
		ok   bool
	}{
		{"out.tif", true},
		{"tiles/out.png", true},
		{"/etc/passwd", false},
		{"../out.tif", false},
		{"a/../../b.tif", false},
	}
	for _, test := range tests {
		if err := CheckPathAllowed(test.path); (err == nil) != test.ok {
			t.Errorf("CheckPathAllowed(%q)=%v; want ok %v", test.path, err, test.ok)
		}
	}
}
