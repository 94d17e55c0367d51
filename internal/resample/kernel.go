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

// Package resample fills output tiles from source tiles through a separable
// filter kernel, given the source positions of the output corner pixels.
package resample

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/image/draw"
)

// A named, symmetric filter kernel. At(t) is evaluated for 0 <= t <= Support
type Kernel struct {
	Name string
	*draw.Kernel
}

func (k Kernel) String() string {
	return k.Name
}

var (
	// Box filter picking the nearest source pixel
	Nearest = Kernel{"nearest", &draw.Kernel{Support: 0.5, At: func(t float64) float64 {
		if t <= 0.5 {
			return 1
		}
		return 0
	}}}

	// Tent filter
	Bilinear = Kernel{"bilinear", draw.BiLinear}

	// Catmull-Rom cubic filter
	Cubic = Kernel{"cubic", draw.CatmullRom}

	// Windowed sinc filter with three lobes
	Lanczos3 = Kernel{"lanczos3", &draw.Kernel{Support: 3, At: lanczos3}}
)

func lanczos3(t float64) float64 {
	if t == 0 {
		return 1
	}
	if t >= 3 {
		return 0
	}
	if t == math.Trunc(t) {
		return 0
	}
	x := math.Pi * t
	return 3 * math.Sin(x) * math.Sin(x/3) / (x * x)
}

var kernelsByName = map[string]Kernel{
	Nearest.Name:  Nearest,
	Bilinear.Name: Bilinear,
	Cubic.Name:    Cubic,
	Lanczos3.Name: Lanczos3,
	"linear":      Bilinear,
	"catmullrom":  Cubic,
	"lanczos":     Lanczos3,
}

// Returns the kernel with the given name
func ParseKernel(name string) (Kernel, error) {
	k, ok := kernelsByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Kernel{}, fmt.Errorf("unknown kernel '%s', want one of %s", name, strings.Join(KernelNames(), ", "))
	}
	return k, nil
}

// Returns the names of the available kernels, sorted
func KernelNames() []string {
	names := make([]string, 0, len(kernelsByName))
	for n := range kernelsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
