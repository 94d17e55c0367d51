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

package main

import (
	"fmt"
	"io"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mlnoga/georender/internal/config"
	"github.com/mlnoga/georender/internal/logging"
	"github.com/mlnoga/georender/internal/ops"
	"github.com/mlnoga/georender/internal/render"
	"github.com/mlnoga/georender/internal/source"
)

const version = "0.1.0"

const banner = `GeoRender Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.
`

// Command line state shared by all subcommands
type app struct {
	v          *viper.Viper
	cfgFile    string
	logFile    string
	cpuProfile string
	out        io.Writer
	stopProf   func()
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), out: os.Stdout}
	root := &cobra.Command{
		Use:   "georender",
		Short: "Render multi-resolution rasters through image to view transforms",
		Long: banner + `
georender resamples a tiled, multi-resolution raster into a view defined by an
image to view transform. The transform is approximated piecewise bilinearly on
an adaptive quad tree, and input data is read at the decimation level matching
the local scale.

Examples:
  # Render a synthetic gradient, scaled to a quarter, as PNG
  georender render --view-kind scale --scale-x 0.25 --scale-y 0.25 -o out.png

  # Render a TIFF into a web mercator view and serve tiles
  georender serve --input dem.tif --view-kind mercator --zoom 6 --port 8080`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			a.finish()
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config `file` (yaml, json or toml)")
	pf.StringVar(&a.logFile, "log", "", "also save log output to `file`")
	pf.StringVar(&a.cpuProfile, "cpuprofile", "", "write cpu profile to `file`")
	pf.String("input", "", "input TIFF `file`; synthetic data if empty")
	pf.String("synthetic", "gradient", "synthetic input: gradient or checker")
	pf.Int("width", 1024, "synthetic input width")
	pf.Int("height", 1024, "synthetic input height")
	pf.Int("overviews", 8, "decimated levels built for file inputs")
	pf.String("view-kind", "identity", "view transform: identity, scale, affine, mercator or tiepoints")
	pf.Float64("scale-x", 1, "horizontal image to view scale for the scale view")
	pf.Float64("scale-y", 1, "vertical image to view scale for the scale view")
	pf.Int("zoom", 0, "slippy map zoom level for the mercator view")
	pf.String("kernel", "bilinear", "resampling kernel: nearest, bilinear, cubic or lanczos3")
	pf.Float64("tolerance", 1, "bilinear approximation tolerance in full resolution pixels")
	pf.Int("max-levels", 6, "decimation levels synthesized beyond the coarsest input level")
	pf.Int("threads", 0, "worker threads, 0 for one per logical core")
	pf.Int("cache-mb", -1, "input tile cache in MB, 0 to disable, -1 for a quarter of physical memory")

	bind := map[string]string{
		"input.path":       "input",
		"input.synthetic":  "synthetic",
		"input.overviews":  "overviews",
		"view.kind":        "view-kind",
		"view.scalex":      "scale-x",
		"view.scaley":      "scale-y",
		"view.zoom":        "zoom",
		"render.kernel":    "kernel",
		"render.tolerance": "tolerance",
		"render.maxlevels": "max-levels",
		"threads":          "threads",
		"cache.mb":         "cache-mb",
	}
	for key, flag := range bind {
		a.v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		a.newRenderCmd(),
		a.newInfoCmd(),
		a.newServeCmd(),
		newLegalCmd(),
		newVersionCmd(),
	)
	return root
}

// Enables log file output and profiling
func (a *app) init() error {
	if a.logFile != "" {
		if err := logging.LogAlsoToFile(a.logFile); err != nil {
			return err
		}
	}
	a.out = logging.Writer()
	a.stopProf = func() {}
	if a.cpuProfile != "" {
		f, err := os.Create(a.cpuProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		a.stopProf = func() {
			pprof.StopCPUProfile()
			f.Close()
		}
	}
	return nil
}

func (a *app) finish() {
	if a.stopProf != nil {
		a.stopProf()
	}
	logging.Close()
}

// Loads the configuration and builds context, source and renderer. The returned
// function releases the source
func (a *app) setup() (*config.Config, *ops.Context, *render.Renderer, func(), error) {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	c := ops.NewContext(a.out)
	if cfg.Threads > 0 {
		c.MaxThreads = cfg.Threads
	}
	c.Logf("%s\n", c)

	src, closer, err := cfg.BuildSource(c.CacheMB, c.Log)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	view, err := cfg.BuildTransform(src.BoundingRect(0), c.Log)
	if err != nil {
		closer()
		return nil, nil, nil, nil, err
	}
	r, err := cfg.BuildRenderer(src, view)
	if err != nil {
		closer()
		return nil, nil, nil, nil, err
	}
	c.Logf("Using %v\n", r)
	return cfg, c, r, closer, nil
}

// Reports cache efficiency for cached sources
func logCache(c *ops.Context, src source.ImageSource) {
	if cached, ok := src.(*source.Cached); ok {
		hits, loads := cached.Counts()
		c.Logf("Tile cache: %d hits, %d loads\n", hits, loads)
	}
}
