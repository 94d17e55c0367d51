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

// Package config loads renderer settings from defaults, an optional config
// file and GEORENDER_* environment variables, and wires sources, view
// transforms and renderers from them.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/resample"
)

// Prefix of environment variables overriding settings, e.g. GEORENDER_RENDER_KERNEL
const EnvPrefix = "GEORENDER"

type InputConfig struct {
	Path      string `mapstructure:"path"`      // TIFF file
	Synthetic string `mapstructure:"synthetic"` // gradient or checker, if no path is given
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	Bands     int    `mapstructure:"bands"`
	Overviews int    `mapstructure:"overviews"` // decimated levels built for file inputs
}

type ViewConfig struct {
	Kind         string      `mapstructure:"kind"`   // identity, affine, scale, mercator or tiepoints
	Affine       []float64   `mapstructure:"affine"` // A..F of x'=Ax+By+C, y'=Dx+Ey+F
	ScaleX       float64     `mapstructure:"scalex"`
	ScaleY       float64     `mapstructure:"scaley"`
	Zoom         int         `mapstructure:"zoom"`
	TileSize     int         `mapstructure:"tilesize"`
	OriginLon    float64     `mapstructure:"originlon"`
	OriginLat    float64     `mapstructure:"originlat"`
	DegPerPixelX float64     `mapstructure:"degperpixelx"`
	DegPerPixelY float64     `mapstructure:"degperpixely"`
	TiePoints    [][]float64 `mapstructure:"tiepoints"` // rows of image x, image y, view x, view y
	Robust       bool        `mapstructure:"robust"`
}

type RenderConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	Kernel             string  `mapstructure:"kernel"`
	Tolerance          float64 `mapstructure:"tolerance"`
	MaxLevelsToCompute int     `mapstructure:"maxlevels"`
	StartingLevel      int     `mapstructure:"startlevel"`
	TileSize           int     `mapstructure:"tilesize"`
}

type OutputConfig struct {
	Path    string  `mapstructure:"path"`
	Level   int     `mapstructure:"level"`
	Rect    []int   `mapstructure:"rect"` // min x, min y, max x, max y; empty for the whole view
	Ramp    string  `mapstructure:"ramp"`
	Gamma   float64 `mapstructure:"gamma"`
	Quality int     `mapstructure:"quality"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`
}

type CacheConfig struct {
	MB int `mapstructure:"mb"` // 0 disables the tile cache, negative uses a quarter of physical memory
}

// All settings
type Config struct {
	Input   InputConfig  `mapstructure:"input"`
	View    ViewConfig   `mapstructure:"view"`
	Render  RenderConfig `mapstructure:"render"`
	Output  OutputConfig `mapstructure:"output"`
	Server  ServerConfig `mapstructure:"server"`
	Cache   CacheConfig  `mapstructure:"cache"`
	Threads int          `mapstructure:"threads"` // 0 for one per logical core
}

// Registers default values for all settings
func SetDefaults(v *viper.Viper) {
	v.SetDefault("input.path", "")
	v.SetDefault("input.synthetic", "gradient")
	v.SetDefault("input.width", 1024)
	v.SetDefault("input.height", 1024)
	v.SetDefault("input.bands", 1)
	v.SetDefault("input.overviews", 8)

	v.SetDefault("view.kind", "identity")
	v.SetDefault("view.affine", []float64{1, 0, 0, 0, 1, 0})
	v.SetDefault("view.scalex", 1.0)
	v.SetDefault("view.scaley", 1.0)
	v.SetDefault("view.zoom", 0)
	v.SetDefault("view.tilesize", 256)
	v.SetDefault("view.originlon", 0.0)
	v.SetDefault("view.originlat", 0.0)
	v.SetDefault("view.degperpixelx", 0.0)
	v.SetDefault("view.degperpixely", 0.0)
	v.SetDefault("view.tiepoints", [][]float64{})
	v.SetDefault("view.robust", false)

	v.SetDefault("render.enabled", true)
	v.SetDefault("render.kernel", "bilinear")
	v.SetDefault("render.tolerance", 1.0)
	v.SetDefault("render.maxlevels", 6)
	v.SetDefault("render.startlevel", 0)
	v.SetDefault("render.tilesize", 256)

	v.SetDefault("output.path", "")
	v.SetDefault("output.level", 0)
	v.SetDefault("output.rect", []int{})
	v.SetDefault("output.ramp", "")
	v.SetDefault("output.gamma", 1.0)
	v.SetDefault("output.quality", 95)

	v.SetDefault("server.bind", "127.0.0.1")
	v.SetDefault("server.port", 8080)

	v.SetDefault("cache.mb", -1)
	v.SetDefault("threads", 0)
}

// Loads settings from defaults, the config file set on v if any, and the environment
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Checks settings for consistency
func (c *Config) Validate() error {
	var errs []error
	if c.Input.Path == "" {
		switch c.Input.Synthetic {
		case "gradient", "checker":
		default:
			errs = append(errs, fmt.Errorf("unknown synthetic input %q", c.Input.Synthetic))
		}
		if c.Input.Width <= 0 || c.Input.Height <= 0 || c.Input.Bands <= 0 {
			errs = append(errs, fmt.Errorf("invalid synthetic input size %dx%dx%d", c.Input.Width, c.Input.Height, c.Input.Bands))
		}
	}
	if c.Input.Overviews < 0 {
		errs = append(errs, fmt.Errorf("negative overview count %d", c.Input.Overviews))
	}

	switch c.View.Kind {
	case "identity", "scale", "mercator":
	case "affine":
		if len(c.View.Affine) != 6 {
			errs = append(errs, fmt.Errorf("affine view needs 6 coefficients, got %d", len(c.View.Affine)))
		}
	case "tiepoints":
		for i, tp := range c.View.TiePoints {
			if len(tp) != 4 {
				errs = append(errs, fmt.Errorf("tie point %d needs 4 values, got %d", i, len(tp)))
			}
		}
	default:
		errs = append(errs, fmt.Errorf("unknown view kind %q", c.View.Kind))
	}

	if _, err := resample.ParseKernel(c.Render.Kernel); err != nil {
		errs = append(errs, err)
	}
	if c.Render.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %g", c.Render.Tolerance))
	}
	if c.Render.MaxLevelsToCompute < 0 || c.Render.StartingLevel < 0 {
		errs = append(errs, errors.New("level settings must not be negative"))
	}
	if c.Render.TileSize <= 0 {
		errs = append(errs, fmt.Errorf("invalid render tile size %d", c.Render.TileSize))
	}

	if n := len(c.Output.Rect); n != 0 && n != 4 {
		errs = append(errs, fmt.Errorf("output rect needs 4 values, got %d", n))
	}
	if c.Output.Level < 0 {
		errs = append(errs, fmt.Errorf("negative output level %d", c.Output.Level))
	}
	if _, err := raster.ParseColorRamp(c.Output.Ramp); err != nil {
		errs = append(errs, err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("negative thread count %d", c.Threads))
	}
	return errors.Join(errs...)
}
