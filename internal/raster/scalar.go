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

// Package raster provides multi-band pixel tiles with per-band null values,
// stored natively in one of ten numeric scalar types.
package raster

import (
	"fmt"
	"math"
	"strings"
)

// The numeric type of the samples in a tile
type ScalarType int

const (
	Uint8 ScalarType = iota
	Int8
	Uint16
	Int16
	Uint32
	Int32
	Uint64
	Int64
	Float32
	Float64
)

var scalarTypeNames = [...]string{"uint8", "int8", "uint16", "int16", "uint32", "int32", "uint64", "int64", "float32", "float64"}

// Constraint covering all supported sample types
type Number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~uint64 | ~int64 | ~float32 | ~float64
}

func (s ScalarType) String() string {
	if s < 0 || int(s) >= len(scalarTypeNames) {
		return fmt.Sprintf("ScalarType(%d)", int(s))
	}
	return scalarTypeNames[s]
}

// Parses a scalar type name like "uint16" or "float32"
func ParseScalarType(name string) (ScalarType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range scalarTypeNames {
		if s == n {
			return ScalarType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown scalar type '%s'", name)
}

// Returns the number of bits per sample
func (s ScalarType) Bits() int {
	switch s {
	case Uint8, Int8:
		return 8
	case Uint16, Int16:
		return 16
	case Uint32, Int32, Float32:
		return 32
	default:
		return 64
	}
}

func (s ScalarType) IsFloat() bool {
	return s == Float32 || s == Float64
}

// Returns the default null sample value: NaN for floating point types, zero otherwise
func (s ScalarType) DefaultNull() float64 {
	if s.IsFloat() {
		return math.NaN()
	}
	return 0
}

// Returns the smallest and largest representable value
func (s ScalarType) Range() (min, max float64) {
	switch s {
	case Uint8:
		return 0, math.MaxUint8
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint16:
		return 0, math.MaxUint16
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint32:
		return 0, math.MaxUint32
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Uint64:
		return 0, math.MaxUint64
	case Int64:
		return math.MinInt64, math.MaxInt64
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// Converts a float64 into sample type T, rounding and clamping for integer types
func convert[T Number](v float64) T {
	var zero T
	switch any(zero).(type) {
	case float32, float64:
		return T(v)
	}
	if math.IsNaN(v) {
		return zero
	}
	v = math.Round(v)
	st := scalarTypeOf[T]()
	lo, hi := st.Range()
	if st.Bits() == 64 {
		hi = math.Nextafter(hi, 0) // 2^63 and 2^64 overflow the conversion
	}
	if v < lo {
		v = lo
	} else if v > hi {
		v = hi
	}
	return T(v)
}

// Returns the ScalarType matching T
func scalarTypeOf[T Number]() ScalarType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Uint8
	case int8:
		return Int8
	case uint16:
		return Uint16
	case int16:
		return Int16
	case uint32:
		return Uint32
	case int32:
		return Int32
	case uint64:
		return Uint64
	case int64:
		return Int64
	case float32:
		return Float32
	default:
		return Float64
	}
}

// Returns true if v is the null value, treating NaN as null in any case
func isNullValue(v, null float64) bool {
	return v == null || math.IsNaN(v)
}
