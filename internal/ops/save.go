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
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlnoga/georender/internal/raster"
)

// Options for writing 8-bit previews
type PreviewOptions struct {
	Ramp    *raster.ColorRamp // nil for gray or RGB
	Gamma   float64           // applied after auto stretch, 0 or 1 for linear
	Quality int               // JPEG quality
}

// Saves a tile to a file, choosing the format by suffix: .tif and .tiff keep the
// full sample range, .png and .jpg write auto-stretched previews
func Save(t *raster.Tile, fileName string, opts PreviewOptions, c *Context) (err error) {
	fnLower := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(fnLower, ".tif") || strings.HasSuffix(fnLower, ".tiff"):
		c.Logf("Writing %dx%d pixel %d band %v TIFF to %s\n", t.Width(), t.Height(), t.Bands(), t.ScalarType(), fileName)
		return raster.WriteTIFFFile(fileName, t)
	case strings.HasSuffix(fnLower, ".png"), strings.HasSuffix(fnLower, ".jpg"), strings.HasSuffix(fnLower, ".jpeg"):
	default:
		return fmt.Errorf("unknown suffix for %s", fileName)
	}

	img := raster.ToImage(t, AutoStretches(t, opts.Gamma), opts.Ramp)
	f, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	if strings.HasSuffix(fnLower, ".png") {
		c.Logf("Writing %dx%d pixel PNG to %s\n", t.Width(), t.Height(), fileName)
		err = raster.EncodePNG(w, img)
	} else {
		q := opts.Quality
		if q <= 0 || q > 100 {
			q = 95
		}
		c.Logf("Writing %dx%d pixel JPEG to %s\n", t.Width(), t.Height(), fileName)
		err = raster.EncodeJPEG(w, img, q)
	}
	if err != nil {
		return fmt.Errorf("writing %s: %w", fileName, err)
	}
	return w.Flush()
}

// Returns one auto stretch per band with the given gamma
func AutoStretches(t *raster.Tile, gamma float64) []raster.Stretch {
	s := make([]raster.Stretch, t.Bands())
	for b := range s {
		s[b] = raster.AutoStretch(t, b)
		if gamma > 0 {
			s[b].Gamma = gamma
		}
	}
	return s
}

// Returns nil if a path is considered safe, i.e. not an absolute path,
// and doesn't contain ".." to change to a parent directory
func CheckPathAllowed(p string) error {
	if filepath.IsAbs(p) {
		return errors.New("absolute paths are not allowed")
	}
	if strings.Contains(p, "..") {
		return errors.New("paths outside the current directory tree are not allowed")
	}
	return nil
}
