// Package coordmap provides the voxel-to-world affine mapping attached to a grid volume.
//
// An Affine is a homogeneous 4x4 transform whose domain is the array axes
// (i, j, k) and whose range is the spatial axes (x, y, z). The blending
// pipeline composes and inverts these to find the voxel-to-voxel mapping
// between two grids.
package coordmap

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/matthew-brett/xipy/pkg/volerr"
)

// DefaultTolerance is the absolute slack allowed on off-diagonal coefficients
// and on the homogeneous row.
const DefaultTolerance = 1e-6

// Affine maps voxel coordinates to world coordinates
type Affine struct {
	m *mat.Dense
}

// New wraps a 4x4 homogeneous matrix. The matrix is copied.
func New(m mat.Matrix) (*Affine, error) {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return nil, fmt.Errorf("%w: affine must be 4x4, got %dx%d", volerr.ErrShape, r, c)
	}
	for j := 0; j < 4; j++ {
		want := 0.0
		if j == 3 {
			want = 1
		}
		if math.Abs(m.At(3, j)-want) > DefaultTolerance {
			return nil, fmt.Errorf("%w: affine last row must be [0 0 0 1]", volerr.ErrAlignment)
		}
	}
	return &Affine{m: mat.DenseCopyOf(m)}, nil
}

// FromStartStep builds the diagonal affine placing voxel (0,0,0) at start
// with voxel size step along each axis.
func FromStartStep(start, step [3]float64) *Affine {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		m.Set(i, i, step[i])
		m.Set(i, 3, start[i])
	}
	m.Set(3, 3, 1)
	return &Affine{m: m}
}

// Identity returns the affine mapping every voxel onto itself
func Identity() *Affine {
	return FromStartStep([3]float64{}, [3]float64{1, 1, 1})
}

// Matrix returns a copy of the underlying 4x4 matrix
func (a *Affine) Matrix() *mat.Dense {
	return mat.DenseCopyOf(a.m)
}

// At returns a single matrix coefficient
func (a *Affine) At(i, j int) float64 {
	return a.m.At(i, j)
}

// Compose returns the affine that applies inner first, then outer.
func Compose(outer, inner *Affine) *Affine {
	var m mat.Dense
	m.Mul(outer.m, inner.m)
	return &Affine{m: &m}
}

// Inverse returns the world-to-voxel mapping
func (a *Affine) Inverse() (*Affine, error) {
	var m mat.Dense
	if err := m.Inverse(a.m); err != nil {
		return nil, fmt.Errorf("%w: affine is not invertible: %v", volerr.ErrAlignment, err)
	}
	return &Affine{m: &m}, nil
}

// Apply maps a voxel coordinate to a world coordinate
func (a *Affine) Apply(voxel [3]float64) [3]float64 {
	in := mat.NewVecDense(4, []float64{voxel[0], voxel[1], voxel[2], 1})
	var out mat.VecDense
	out.MulVec(a.m, in)
	return [3]float64{out.AtVec(0), out.AtVec(1), out.AtVec(2)}
}

// AxisCorrespondence reports, for each array axis, the spatial axis it
// predominantly moves along. Two array axes landing on the same spatial axis
// means the mapping is too oblique to be reordered into alignment.
func (a *Affine) AxisCorrespondence() ([3]int, error) {
	var axes [3]int
	var seen [3]bool
	for col := 0; col < 3; col++ {
		best, bestAbs := 0, -1.0
		for row := 0; row < 3; row++ {
			if v := math.Abs(a.m.At(row, col)); v > bestAbs {
				best, bestAbs = row, v
			}
		}
		if seen[best] {
			return axes, fmt.Errorf("%w: array axes map onto spatial axis %d more than once",
				volerr.ErrAlignment, best)
		}
		seen[best] = true
		axes[col] = best
	}
	return axes, nil
}

// Reordered returns the affine whose array axis n is this affine's array axis perm[n].
func (a *Affine) Reordered(perm [3]int) (*Affine, error) {
	if !IsPermutation(perm) {
		return nil, fmt.Errorf("%w: %v is not an axis permutation", volerr.ErrShape, perm)
	}
	m := mat.NewDense(4, 4, nil)
	for row := 0; row < 4; row++ {
		for n := 0; n < 3; n++ {
			m.Set(row, n, a.m.At(row, perm[n]))
		}
		m.Set(row, 3, a.m.At(row, 3))
	}
	return &Affine{m: m}, nil
}

// Diagonal splits the affine into a per-axis scale and translation.
// Any off-diagonal linear coefficient larger than tol is an alignment error.
func (a *Affine) Diagonal(tol float64) (scale, offset [3]float64, err error) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i != j && math.Abs(a.m.At(i, j)) > tol {
				return scale, offset, fmt.Errorf("%w: affine is not diagonal (coefficient [%d,%d] = %g)",
					volerr.ErrAlignment, i, j, a.m.At(i, j))
			}
		}
		scale[i] = a.m.At(i, i)
		offset[i] = a.m.At(i, 3)
	}
	return scale, offset, nil
}

// IsIdentity reports whether the affine maps every voxel onto itself within tol
func (a *Affine) IsIdentity(tol float64) bool {
	return mat.EqualApprox(a.m, Identity().m, tol)
}

// Equal reports whether two affines agree within tol
func (a *Affine) Equal(b *Affine, tol float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return mat.EqualApprox(a.m, b.m, tol)
}

// IsPermutation reports whether perm holds each of 0, 1, 2 exactly once
func IsPermutation(perm [3]int) bool {
	var seen [3]bool
	for _, p := range perm {
		if p < 0 || p > 2 || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}
