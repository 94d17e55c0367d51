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
	"github.com/spf13/cobra"

	"github.com/mlnoga/georender/internal/ops"
)

func (a *app) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show input and view bounds, levels and host resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, r, closer, err := a.setup()
			if err != nil {
				return err
			}
			defer closer()

			in := r.Input()
			c.Logf("Input: %v, %d levels, %d bands of %v, tile size %v\n",
				in.BoundingRect(0), in.NumDecimationLevels(), in.NumBands(), in.ScalarType(), in.TileSize())
			for level := 0; level < in.NumDecimationLevels(); level++ {
				f, ok := in.DecimationFactor(level)
				c.Logf("  level %d: %v factor %v known %v\n", level, in.BoundingRect(level), f, ok)
			}
			coarsest := in.NumDecimationLevels() - 1
			if t := in.GetTile(in.BoundingRect(coarsest), coarsest); t != nil {
				c.Logf("Statistics of level %d:\n", coarsest)
				ops.Describe(t, c)
			}
			c.Logf("View: %v, %d levels, transform %v\n", r.BoundingRect(0), r.NumDecimationLevels(), r.View())
			return nil
		},
	}
}
