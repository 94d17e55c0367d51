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

	"github.com/spf13/cobra"

	"github.com/mlnoga/georender/internal/ops"
	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/rest"
)

func (a *app) newServeCmd() *cobra.Command {
	var chroot string
	var setuid int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered view tiles over HTTP",
		Args:  cobra.NoArgs,
	}
	f := cmd.Flags()
	f.String("bind", "127.0.0.1", "address to bind to")
	f.IntP("port", "p", 8080, "port to listen on")
	f.String("ramp", "", "color ramp for single band previews")
	f.StringVar(&chroot, "chroot", "", "change filesystem root to `dir` after loading the input (requires root)")
	f.IntVar(&setuid, "setuid", -1, "switch to user `id` after loading the input")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a.v.BindPFlag("server.bind", f.Lookup("bind"))
		a.v.BindPFlag("server.port", f.Lookup("port"))
		a.v.BindPFlag("output.ramp", f.Lookup("ramp"))
		cfg, c, r, closer, err := a.setup()
		if err != nil {
			return err
		}
		defer closer()

		ramp, err := raster.ParseColorRamp(cfg.Output.Ramp)
		if err != nil {
			return err
		}
		opts := ops.PreviewOptions{Ramp: ramp, Gamma: cfg.Output.Gamma, Quality: cfg.Output.Quality}
		router := rest.NewRouter(c, r, cfg.Render.TileSize, opts)
		if err := rest.MakeSandbox(chroot, setuid, c.Log); err != nil {
			return err
		}
		err = rest.Serve(fmt.Sprintf("%s:%d", cfg.Server.Bind, cfg.Server.Port), router, c.Log)
		logCache(c, r.Input())
		return err
	}
	return cmd
}
