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

// Package stats computes robust statistics on float32 sample arrays, as used
// for stretching rendered tiles into previews. Null samples are excluded
// throughout; a null value of NaN excludes only NaNs.
package stats

import (
	"errors"
	"fmt"
	"math"

	"github.com/valyala/fastrand"
)

// Normalization of the median absolute deviation to a Gaussian sigma
const madToSigma = 1.4826

// Basic statistics on a band of samples
type Basic struct {
	Min   float32 // Minimum
	Max   float32 // Maximum
	Mean  float32 // Mean (average)
	Valid int     // Number of non-null samples

	Location float32 // Median
	Scale    float32 // Normalized median absolute deviation
}

// Pretty print basic stats to string
func (s *Basic) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g Location %.6g Scale %.6g Valid %d",
		s.Min, s.Max, s.Mean, s.Location, s.Scale, s.Valid)
}

// Returns true if v is NaN or equals the null value
func IsNull(v, null float32) bool {
	return v != v || v == null
}

// Calculates basic statistics, using numSamples random draws for location and scale
func CalcBasic(data []float32, null float32, numSamples int) (*Basic, error) {
	s := &Basic{}
	s.Min, s.Mean, s.Max, s.Valid = MinMeanMax(data, null)
	if s.Valid == 0 {
		return s, errNoValidData
	}
	s.Location, s.Scale = LocationScale(data, null, numSamples)
	return s, nil
}

var errNoValidData = errors.New("no valid samples")

// Calculate minimum, mean and maximum of the non-null samples, and their count.
// Returns NaNs if no sample is valid
func MinMeanMax(data []float32, null float32) (min, mean, max float32, valid int) {
	mmin, mmax, sum := float32(math.MaxFloat32), float32(-math.MaxFloat32), float64(0)
	for _, v := range data {
		if IsNull(v, null) {
			continue
		}
		if v < mmin {
			mmin = v
		}
		if v > mmax {
			mmax = v
		}
		sum += float64(v)
		valid++
	}
	if valid == 0 {
		nan := float32(math.NaN())
		return nan, nan, nan, 0
	}
	return mmin, float32(sum / float64(valid)), mmax, valid
}

// Fills samples with random non-null draws from data. Returns the number of samples
// filled, which is less than len(samples) only if valid data is too sparse to find
func drawSamples(data []float32, null float32, samples []float32) int {
	if len(data) == 0 {
		return 0
	}
	max := uint32(len(data))
	rng := fastrand.RNG{}
	misses, n := 0, 0
	for n < len(samples) && misses < 16*len(samples)+1024 {
		d := data[rng.Uint32n(max)]
		if IsNull(d, null) {
			misses++
			continue
		}
		samples[n] = d
		n++
	}
	return n
}

// Calculates a fast approximate median of the (presumably large) data by subsampling
// numSamples non-null values and taking the median of that. Small inputs are
// evaluated exactly
func FastApproxMedian(data []float32, null float32, numSamples int) float32 {
	return FastApproxPercentile(data, null, 0.5, numSamples)
}

// Calculates a fast approximate percentile p in [0,1] of the non-null data by subsampling.
// Returns NaN if no valid sample is found
func FastApproxPercentile(data []float32, null float32, p float32, numSamples int) float32 {
	samples := sampleOrCopy(data, null, numSamples)
	if len(samples) == 0 {
		return float32(math.NaN())
	}
	k := int(p*float32(len(samples)-1)+0.5) + 1
	return QSelectFloat32(samples, k)
}

// Returns a random subsample of the valid data, or a copy of all valid data if it is small
func sampleOrCopy(data []float32, null float32, numSamples int) []float32 {
	if len(data) <= numSamples {
		res := make([]float32, 0, len(data))
		for _, d := range data {
			if !IsNull(d, null) {
				res = append(res, d)
			}
		}
		return res
	}
	samples := make([]float32, numSamples)
	return samples[:drawSamples(data, null, samples)]
}

// Calculates a fast approximate median absolute deviation from location, normalized to a Gaussian sigma
func FastApproxMAD(data []float32, null float32, location float32, numSamples int) float32 {
	samples := sampleOrCopy(data, null, numSamples)
	if len(samples) == 0 {
		return float32(math.NaN())
	}
	for i, s := range samples {
		samples[i] = float32(math.Abs(float64(s - location)))
	}
	return QSelectMedianFloat32(samples) * madToSigma
}

// Returns a robust estimate of location and scale: the sampled median and the
// sampled, normalized median absolute deviation
func LocationScale(data []float32, null float32, numSamples int) (location, scale float32) {
	location = FastApproxMedian(data, null, numSamples)
	if location != location {
		return location, location
	}
	scale = FastApproxMAD(data, null, location, numSamples)
	return location, scale
}
