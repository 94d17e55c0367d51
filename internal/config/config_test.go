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
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/mlnoga/georender/internal/geom"
	"github.com/mlnoga/georender/internal/source"
	"github.com/mlnoga/georender/internal/transform"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	if c.View.Kind != "identity" || c.Render.Kernel != "bilinear" || c.Render.Tolerance != 1 {
		t.Errorf("defaults %+v %+v", c.View, c.Render)
	}
	if c.Render.MaxLevelsToCompute != 6 || !c.Render.Enabled || c.Server.Port != 8080 {
		t.Errorf("defaults %+v %+v", c.Render, c.Server)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("GEORENDER_RENDER_KERNEL", "lanczos3")
	t.Setenv("GEORENDER_RENDER_ENABLED", "false")
	t.Setenv("GEORENDER_SERVER_PORT", "9090")
	c, err := Load(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	if c.Render.Kernel != "lanczos3" || c.Render.Enabled || c.Server.Port != 9090 {
		t.Errorf("env overrides not applied: %+v %+v", c.Render, c.Server)
	}
}

func TestLoadFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "georender.yaml")
	yaml := `
input:
  synthetic: checker
  width: 300
  height: 200
view:
  kind: tiepoints
  tiepoints:
    - [0, 0, 10, 20]
    - [100, 0, 210, 20]
    - [0, 100, 10, 220]
render:
  kernel: cubic
output:
  rect: [0, 0, 64, 32]
  ramp: viridis
`
	if err := os.WriteFile(fileName, []byte(yaml), 0666); err != nil {
		t.Fatal(err)
	}
	v := viper.New()
	v.SetConfigFile(fileName)
	c, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Input.Synthetic != "checker" || c.Input.Width != 300 || len(c.View.TiePoints) != 3 {
		t.Errorf("file settings not applied: %+v %+v", c.Input, c.View)
	}

	view, err := c.BuildTransform(image.Rect(0, 0, 300, 200), nil)
	if err != nil {
		t.Fatal(err)
	}
	p := view.ImageToView(geom.Point2D{X: 50, Y: 50})
	if math.Abs(p.X-110) > 1e-6 || math.Abs(p.Y-120) > 1e-6 {
		t.Errorf("fitted view maps (50,50) to %v; want (110,120)", p)
	}
}

func TestLoadMissingFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(v); err == nil {
		t.Errorf("missing config file accepted")
	}
}

func validConfig(t *testing.T) *Config {
	c, err := Load(viper.New())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		want   string
	}{
		{"synthetic", func(c *Config) { c.Input.Synthetic = "noise" }, "synthetic"},
		{"size", func(c *Config) { c.Input.Width = 0 }, "size"},
		{"kind", func(c *Config) { c.View.Kind = "polar" }, "view kind"},
		{"affine", func(c *Config) { c.View.Kind, c.View.Affine = "affine", []float64{1, 2} }, "6 coefficients"},
		{"tiepoint", func(c *Config) { c.View.Kind, c.View.TiePoints = "tiepoints", [][]float64{{1, 2, 3}} }, "4 values"},
		{"kernel", func(c *Config) { c.Render.Kernel = "box" }, "kernel"},
		{"tolerance", func(c *Config) { c.Render.Tolerance = 0 }, "tolerance"},
		{"rect", func(c *Config) { c.Output.Rect = []int{1, 2} }, "output rect"},
		{"ramp", func(c *Config) { c.Output.Ramp = "#zzz" }, "ramp"},
		{"port", func(c *Config) { c.Server.Port = 0 }, "port"},
	}
	for _, test := range tests {
		c := validConfig(t)
		test.modify(c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), test.want) {
			t.Errorf("%s: err=%v; want error containing %q", test.name, err, test.want)
		}
	}
	if err := validConfig(t).Validate(); err != nil {
		t.Errorf("default config: %v", err)
	}
}

func TestBuildTransform(t *testing.T) {
	bounds := image.Rect(0, 0, 360, 180)
	tests := []struct {
		name   string
		modify func(c *Config)
		in     geom.Point2D
		want   geom.Point2D
	}{
		{"identity", func(c *Config) {}, geom.Point2D{X: 3, Y: 4}, geom.Point2D{X: 3, Y: 4}},
		{"scale", func(c *Config) { c.View.Kind, c.View.ScaleX, c.View.ScaleY = "scale", 2, 0.5 }, geom.Point2D{X: 3, Y: 4}, geom.Point2D{X: 6, Y: 2}},
		{"affine", func(c *Config) { c.View.Kind, c.View.Affine = "affine", []float64{1, 0, 10, 0, 1, -5} }, geom.Point2D{X: 3, Y: 4}, geom.Point2D{X: 13, Y: -1}},
		{"mercator", func(c *Config) { c.View.Kind, c.View.Zoom = "mercator", 0 }, geom.Point2D{X: 180, Y: 90}, geom.Point2D{X: 128, Y: 128}},
	}
	for _, test := range tests {
		c := validConfig(t)
		test.modify(c)
		view, err := c.BuildTransform(bounds, nil)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if got := view.ImageToView(test.in); geom.Dist2D(got, test.want) > 1e-6 {
			t.Errorf("%s: %v maps to %v; want %v", test.name, test.in, got, test.want)
		}
	}

	c := validConfig(t)
	c.View.Kind, c.View.TiePoints = "tiepoints", [][]float64{{0, 0, 0, 0}, {1, 1, 1, 1}}
	if _, err := c.BuildTransform(bounds, nil); err == nil {
		t.Errorf("two tie points accepted")
	}
}

func TestBuildSourceAndRenderer(t *testing.T) {
	c := validConfig(t)
	c.Input.Width, c.Input.Height, c.Input.Bands = 64, 32, 2
	c.Cache.MB = 0
	src, closer, err := c.BuildSource(0, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer closer()
	if _, ok := src.(*source.Func); !ok {
		t.Errorf("source %T; want uncached *source.Func", src)
	}
	if src.NumBands() != 2 {
		t.Errorf("bands %d; want 2", src.NumBands())
	}

	c.Cache.MB = -1
	cachedSrc, cachedCloser, err := c.BuildSource(16, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer cachedCloser()
	if _, ok := cachedSrc.(*source.Cached); !ok {
		t.Errorf("source %T; want *source.Cached", cachedSrc)
	}

	c.Render.Kernel, c.Render.StartingLevel = "cubic", 1
	r, err := c.BuildRenderer(src, transform.NewIdentity())
	if err != nil {
		t.Fatal(err)
	}
	if r.StartingResolutionLevel() != 1 || r.Resampler().Magnify.Name != "cubic" {
		t.Errorf("renderer not configured: %v", r)
	}
	if got := c.OutputRect(r); got != image.Rect(0, 0, 64, 32) {
		t.Errorf("output rect %v; want %v", got, image.Rect(0, 0, 64, 32))
	}

	c.Input.Path = filepath.Join(t.TempDir(), "missing.tif")
	if _, _, err := c.BuildSource(0, nil); err == nil {
		t.Errorf("missing input file accepted")
	}
}
