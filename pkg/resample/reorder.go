package resample

import (
	"fmt"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Transpose returns a copy of src whose array axis n is src's axis perm[n]
func Transpose(src *models.IndexVolume, perm [3]int) (*models.IndexVolume, error) {
	if !coordmap.IsPermutation(perm) {
		return nil, fmt.Errorf("%w: %v is not an axis permutation", volerr.ErrShape, perm)
	}
	if perm == [3]int{0, 1, 2} || src.Empty() {
		return src, nil
	}
	var shape models.Shape
	for n := 0; n < 3; n++ {
		shape[n] = src.Shape[perm[n]]
	}
	out := &models.IndexVolume{Data: make([]int32, len(src.Data)), Shape: shape}

	var old [3]int
	p := 0
	for i := 0; i < shape[0]; i++ {
		old[perm[0]] = i
		for j := 0; j < shape[1]; j++ {
			old[perm[1]] = j
			for k := 0; k < shape[2]; k++ {
				old[perm[2]] = k
				out.Data[p] = src.Data[src.Shape.Offset(old[0], old[1], old[2])]
				p++
			}
		}
	}
	return out, nil
}

// ToAxisOrder reorders an index volume and its coordinate map so that array
// axis n moves along spatial axis order[n]. Inputs already in that order are
// returned as they are.
func ToAxisOrder(src *models.IndexVolume, m *coordmap.Affine, order [3]int) (*models.IndexVolume, *coordmap.Affine, error) {
	if !coordmap.IsPermutation(order) {
		return nil, nil, fmt.Errorf("%w: axis order %v is not a permutation", volerr.ErrShape, order)
	}
	axes, err := m.AxisCorrespondence()
	if err != nil {
		return nil, nil, err
	}
	if axes == order {
		return src, m, nil
	}
	var perm [3]int
	for n, want := range order {
		for a, got := range axes {
			if got == want {
				perm[n] = a
			}
		}
	}
	idx, err := Transpose(src, perm)
	if err != nil {
		return nil, nil, err
	}
	reordered, err := m.Reordered(perm)
	if err != nil {
		return nil, nil, err
	}
	return idx, reordered, nil
}
