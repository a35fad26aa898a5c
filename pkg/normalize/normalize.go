// Package normalize rescales scalar volumes into the unit interval and
// quantizes them into lookup table indices.
package normalize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Bounds are the scalar values mapped to 0 and 1. A nil bound is inferred
// from the data ("auto").
type Bounds struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// Auto infers both bounds from the data
var Auto = Bounds{}

// Fixed pins both bounds
func Fixed(min, max float64) Bounds {
	return Bounds{Min: &min, Max: &max}
}

// IsAuto reports whether both bounds are inferred
func (b Bounds) IsAuto() bool {
	return b.Min == nil && b.Max == nil
}

// Equal reports whether two bounds pin the same values
func (b Bounds) Equal(o Bounds) bool {
	return sameBound(b.Min, o.Min) && sameBound(b.Max, o.Max)
}

func sameBound(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (b Bounds) String() string {
	f := func(v *float64) string {
		if v == nil {
			return "auto"
		}
		return fmt.Sprintf("%g", *v)
	}
	return fmt.Sprintf("(%s, %s)", f(b.Min), f(b.Max))
}

// Resolve fills in any inferred bound from the finite values of data.
// NaN and infinite values are ignored. With no finite values at all both
// inferred bounds are zero.
func (b Bounds) Resolve(data []float64) (min, max float64, err error) {
	if b.Min == nil || b.Max == nil {
		finite := make([]float64, 0, len(data))
		for _, v := range data {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				finite = append(finite, v)
			}
		}
		if len(finite) > 0 {
			min, max = floats.Min(finite), floats.Max(finite)
		}
	}
	if b.Min != nil {
		min = *b.Min
	}
	if b.Max != nil {
		max = *b.Max
	}
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return 0, 0, fmt.Errorf("%w: normalization bounds %s resolve to min %g > max %g",
			volerr.ErrConfiguration, b, min, max)
	}
	return min, max, nil
}

// Normalize maps data onto [0, 1] so that min goes to 0 and max to 1,
// clipping anything outside. NaN entries stay NaN. When min equals max
// every finite value maps to 0.
func Normalize(data []float64, b Bounds) ([]float64, error) {
	min, max, err := b.Resolve(data)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(data))
	copy(out, data)
	if max == min {
		for i, v := range out {
			if !math.IsNaN(v) {
				out[i] = 0
			}
		}
		return out, nil
	}
	floats.AddConst(-min, out)
	floats.Scale(1/(max-min), out)
	for i, v := range out {
		switch {
		case v < 0:
			out[i] = 0
		case v > 1:
			out[i] = 1
		}
	}
	return out, nil
}

// Quantize turns unit-interval values into indices of an n-entry lookup table.
// NaN values become bad.
func Quantize(unit []float64, n int, bad int32) []int32 {
	out := make([]int32, len(unit))
	top := int32(n - 1)
	for i, v := range unit {
		if math.IsNaN(v) {
			out[i] = bad
			continue
		}
		ix := int32(v * float64(n))
		if ix > top {
			ix = top
		} else if ix < 0 {
			ix = 0
		}
		out[i] = ix
	}
	return out
}
