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
	"fmt"
	"math"

	"github.com/mlnoga/georender/internal/raster"
	"github.com/mlnoga/georender/internal/stats"
)

const (
	describeSamples = 4096 // random draws for location and scale
	describeBins    = 256
)

// Statistics of one band of a tile
type BandStats struct {
	stats.Basic
	Mode   float32 // histogram mode, NaN if the fit failed
	StdDev float32 // standard deviation of the fitted histogram peak
}

func (s *BandStats) String() string {
	return fmt.Sprintf("%v Mode %.6g StdDev %.6g", &s.Basic, s.Mode, s.StdDev)
}

// Calculates and logs per band statistics of t. Bands without valid samples yield nil
func Describe(t *raster.Tile, c *Context) []*BandStats {
	res := make([]*BandStats, t.Bands())
	nan := float32(math.NaN())
	for b := range res {
		data := t.Float32s(b)
		basic, err := stats.CalcBasic(data, nan, describeSamples)
		if err != nil {
			c.Logf("Band %d: %v\n", b, err)
			continue
		}
		s := &BandStats{Basic: *basic, Mode: nan, StdDev: nan}
		if basic.Max > basic.Min {
			bins := make([]int32, describeBins)
			stats.Histogram(data, nan, basic.Min, basic.Max, bins)
			if mode, stdDev, err := stats.GetModeStdDevFromHistogram(bins, basic.Min, basic.Max); err == nil {
				s.Mode, s.StdDev = mode, stdDev
			}
		}
		c.Logf("Band %d: %v\n", b, s)
		res[b] = s
	}
	return res
}
