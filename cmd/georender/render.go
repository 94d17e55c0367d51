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
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlnoga/georender/internal/ops"
	"github.com/mlnoga/georender/internal/raster"
)

func (a *app) newRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the view, or a rectangle of it, to a TIFF, PNG or JPEG file",
		Args:  cobra.NoArgs,
	}
	f := cmd.Flags()
	f.StringP("output", "o", "out.tif", "output `file`; the suffix selects TIFF, PNG or JPEG")
	f.Int("level", 0, "output decimation level")
	f.IntSlice("rect", nil, "view rectangle min x, min y, max x, max y; whole view if empty")
	f.String("ramp", "", "color ramp for single band previews: gray, elevation, viridis, heat or hex colors")
	f.Float64("gamma", 1, "preview gamma")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		// serve binds its own ramp flag to the same key
		a.v.BindPFlag("output.path", f.Lookup("output"))
		a.v.BindPFlag("output.level", f.Lookup("level"))
		a.v.BindPFlag("output.rect", f.Lookup("rect"))
		a.v.BindPFlag("output.ramp", f.Lookup("ramp"))
		a.v.BindPFlag("output.gamma", f.Lookup("gamma"))
		return a.runRender()
	}
	return cmd
}

func (a *app) runRender() error {
	start := time.Now()
	cfg, c, r, closer, err := a.setup()
	if err != nil {
		return err
	}
	defer closer()

	ramp, err := raster.ParseColorRamp(cfg.Output.Ramp)
	if err != nil {
		return err
	}
	rect := cfg.OutputRect(r)
	if rect.Empty() {
		return fmt.Errorf("nothing to render: view rectangle %v is empty", rect)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	t, err := ops.Mosaic(ctx, c, r, rect, cfg.Output.Level, cfg.Render.TileSize)
	if err != nil {
		return err
	}
	logCache(c, r.Input())
	ops.Describe(t, c)

	opts := ops.PreviewOptions{Ramp: ramp, Gamma: cfg.Output.Gamma, Quality: cfg.Output.Quality}
	if err := ops.Save(t, cfg.Output.Path, opts, c); err != nil {
		return err
	}
	c.Logf("Done after %v\n", time.Since(start))
	return nil
}
