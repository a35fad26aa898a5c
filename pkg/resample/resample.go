// Package resample moves LUT-index volumes between grids.
//
// Indices are categorical, so resampling is strictly nearest neighbour:
// each destination voxel copies the index of the source voxel nearest to
// its mapped position, or takes the bad index when that position falls
// outside the source grid.
package resample

import (
	"fmt"
	"math"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Resize samples src onto a grid of dstShape. Destination voxel (i, j, k)
// reads source voxel round(scale*(i, j, k) + offset); anything that lands
// outside src is written as bad.
//
// Parameters:
//   - dstShape: extent of the destination grid, exactly three axes
//   - bad: index written for out-of-domain samples
//   - src: the source index volume
//   - scale, offset: the diagonal voxel-to-voxel transform, three values each
//
// Returns:
//   - A new index volume of dstShape
func Resize(dstShape []int, bad int32, src *models.IndexVolume, scale, offset []float64) (*models.IndexVolume, error) {
	if len(dstShape) != 3 {
		return nil, fmt.Errorf("%w: destination shape %v must have 3 axes", volerr.ErrShape, dstShape)
	}
	if len(scale) != 3 || len(offset) != 3 {
		return nil, fmt.Errorf("%w: scale and offset need 3 values, got %d and %d",
			volerr.ErrShape, len(scale), len(offset))
	}
	var shape models.Shape
	for a, n := range dstShape {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative destination extent %d", volerr.ErrShape, n)
		}
		shape[a] = n
	}

	out := &models.IndexVolume{Data: make([]int32, shape.Size()), Shape: shape}
	if len(out.Data) == 0 {
		return out, nil
	}
	if src.Empty() {
		fill(out.Data, bad)
		return out, nil
	}

	// Source position along each axis for every destination coordinate,
	// -1 where it leaves the source grid. Each axis is independent because
	// the transform is diagonal, so the whole pass reduces to gathers.
	var axes [3][]int
	for a := 0; a < 3; a++ {
		axes[a] = axisTable(shape[a], src.Shape[a], scale[a], offset[a])
	}

	srcRow := src.Shape[2]
	for i, si := range axes[0] {
		for j, sj := range axes[1] {
			row := out.Data[shape.Offset(i, j, 0) : shape.Offset(i, j, 0)+shape[2]]
			if si < 0 || sj < 0 {
				fill(row, bad)
				continue
			}
			base := src.Shape.Offset(si, sj, 0)
			line := src.Data[base : base+srcRow]
			for k, sk := range axes[2] {
				if sk < 0 {
					row[k] = bad
				} else {
					row[k] = line[sk]
				}
			}
		}
	}
	return out, nil
}

// axisTable maps each of n destination coordinates to a source coordinate in
// [0, limit), or -1 when the rounded position falls outside.
func axisTable(n, limit int, scale, offset float64) []int {
	table := make([]int, n)
	for d := range table {
		s := math.Round(scale*float64(d) + offset)
		if s < 0 || s >= float64(limit) || math.IsNaN(s) {
			table[d] = -1
		} else {
			table[d] = int(s)
		}
	}
	return table
}

func fill(data []int32, v int32) {
	for i := range data {
		data[i] = v
	}
}

// VoxelToVoxel returns the diagonal transform taking voxel coordinates of the
// dst grid to voxel coordinates of the src grid, i.e. src⁻¹ ∘ dst. A mapping
// with rotation or shear beyond tol is an alignment error; such grids must be
// reordered into a common axis convention first.
func VoxelToVoxel(src, dst *coordmap.Affine, tol float64) (scale, offset []float64, err error) {
	inv, err := src.Inverse()
	if err != nil {
		return nil, nil, err
	}
	s, o, err := coordmap.Compose(inv, dst).Diagonal(tol)
	if err != nil {
		return nil, nil, err
	}
	return s[:], o[:], nil
}

// Onto resamples src, living on the srcMap grid, onto the dstShape grid
// described by dstMap.
func Onto(dstShape models.Shape, dstMap *coordmap.Affine, bad int32, src *models.IndexVolume, srcMap *coordmap.Affine) (*models.IndexVolume, error) {
	scale, offset, err := VoxelToVoxel(srcMap, dstMap, coordmap.DefaultTolerance)
	if err != nil {
		return nil, err
	}
	return Resize(dstShape[:], bad, src, scale, offset)
}
