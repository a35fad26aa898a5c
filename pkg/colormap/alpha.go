package colormap

import (
	"fmt"
	"math"

	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Alpha is the opacity setting applied to the main entries of a lookup table.
// It is either one scalar broadcast to every entry or one value per entry.
// The zero value is fully transparent; use Opaque for the usual default.
type Alpha struct {
	scalar float64
	values []float64
}

// Opaque is the alpha setting that leaves every main entry at full opacity
var Opaque = ScalarAlpha(1)

// ScalarAlpha broadcasts a to every main entry
func ScalarAlpha(a float64) Alpha {
	return Alpha{scalar: a}
}

// AlphaValues sets one opacity per main entry. The slice is copied.
func AlphaValues(v []float64) Alpha {
	values := make([]float64, len(v))
	copy(values, v)
	return Alpha{values: values}
}

// IsScalar reports whether the setting is broadcast from one value
func (a Alpha) IsScalar() bool {
	return a.values == nil
}

// Scalar returns the broadcast value; meaningless when IsScalar is false
func (a Alpha) Scalar() float64 {
	return a.scalar
}

// Values returns a copy of the per-entry values, or nil for a scalar setting
func (a Alpha) Values() []float64 {
	if a.values == nil {
		return nil
	}
	out := make([]float64, len(a.values))
	copy(out, a.values)
	return out
}

// Equal reports whether two settings expand to the same per-entry values
func (a Alpha) Equal(b Alpha) bool {
	if a.IsScalar() != b.IsScalar() {
		return false
	}
	if a.IsScalar() {
		return a.scalar == b.scalar
	}
	if len(a.values) != len(b.values) {
		return false
	}
	for i, v := range a.values {
		if b.values[i] != v {
			return false
		}
	}
	return true
}

// Validate checks the setting against a table with n main entries
func (a Alpha) Validate(n int) error {
	_, err := a.Expand(n)
	return err
}

// Expand returns one opacity per main entry for a table with n main entries.
// A per-entry setting of the wrong length is a shape error; any value outside
// [0, 1] is a range error.
func (a Alpha) Expand(n int) ([]float64, error) {
	out := make([]float64, n)
	if a.IsScalar() {
		if !inUnit(a.scalar) {
			return nil, fmt.Errorf("%w: alpha %g outside [0, 1]", volerr.ErrRange, a.scalar)
		}
		for i := range out {
			out[i] = a.scalar
		}
		return out, nil
	}
	if len(a.values) != n {
		return nil, fmt.Errorf("%w: alpha has %d entries, lookup table has %d",
			volerr.ErrShape, len(a.values), n)
	}
	for i, v := range a.values {
		if !inUnit(v) {
			return nil, fmt.Errorf("%w: alpha[%d] = %g outside [0, 1]", volerr.ErrRange, i, v)
		}
		out[i] = v
	}
	return out, nil
}

// alphaByte converts an opacity in [0, 1] to a channel byte.
// Both the full lookup and the alpha-only remap go through here so that
// the two paths agree bit for bit.
func alphaByte(a float64) uint8 {
	return uint8(math.Round(a * 255))
}

func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
