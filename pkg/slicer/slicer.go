// Package slicer turns grid volumes into the LUT-index form the blending
// pipeline consumes.
package slicer

import (
	"fmt"
	"math"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/normalize"
	"github.com/matthew-brett/xipy/pkg/resample"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Slicer is a volume already quantized into lookup table indices on a regular grid.
type Slicer interface {
	// IndexArray returns the LUT-index volume
	IndexArray() *models.IndexVolume

	// GridSpacing returns the voxel size along each array axis
	GridSpacing() [3]float64

	// Origin returns the world coordinate of the grid's lower corner
	Origin() [3]float64

	// BBox returns the world extent [min, max] along each spatial axis
	BBox() [3][2]float64

	// CoordMap returns the voxel-to-world mapping
	CoordMap() *coordmap.Affine
}

// Options control how a scalar volume is quantized
type Options struct {
	// Norm gives the scalar values mapped to the first and last table entries
	Norm normalize.Bounds

	// Size is the number of main entries in the target lookup table
	Size int

	// Bad is the index written for NaN voxels
	Bad int32

	// AxisOrder, when set, reorders the grid so array axis n moves along
	// spatial axis AxisOrder[n]
	AxisOrder *[3]int
}

// IndexSlicer is the concrete Slicer produced from a scalar or index volume
type IndexSlicer struct {
	idx     *models.IndexVolume
	cmap    *coordmap.Affine
	spacing [3]float64
	bbox    [3][2]float64
}

// New normalizes and quantizes a scalar volume into an IndexSlicer
func New(vol *models.ScalarVolume, opts Options) (*IndexSlicer, error) {
	if vol == nil {
		return nil, fmt.Errorf("%w: nil scalar volume", volerr.ErrType)
	}
	if opts.Size <= 0 {
		return nil, fmt.Errorf("%w: lookup table size must be positive, got %d", volerr.ErrConfiguration, opts.Size)
	}
	unit, err := normalize.Normalize(vol.Data, opts.Norm)
	if err != nil {
		return nil, err
	}
	idx, err := models.NewIndexVolume(normalize.Quantize(unit, opts.Size, opts.Bad), vol.Shape)
	if err != nil {
		return nil, err
	}
	return FromIndex(idx, vol.CoordMap, opts.AxisOrder)
}

// FromIndex wraps an index volume already in LUT form. When order is given the
// grid is reordered into that axis convention first.
func FromIndex(idx *models.IndexVolume, cmap *coordmap.Affine, order *[3]int) (*IndexSlicer, error) {
	if idx == nil || cmap == nil {
		return nil, fmt.Errorf("%w: index slicer needs an index volume and a coordinate map", volerr.ErrType)
	}
	if order != nil {
		var err error
		idx, cmap, err = resample.ToAxisOrder(idx, cmap, *order)
		if err != nil {
			return nil, err
		}
	}
	s := &IndexSlicer{idx: idx, cmap: cmap}
	s.spacing, s.bbox = geometry(idx.Shape, cmap)
	return s, nil
}

// geometry derives voxel sizes and the world bounding box of a grid
func geometry(shape models.Shape, cmap *coordmap.Affine) (spacing [3]float64, bbox [3][2]float64) {
	for a := 0; a < 3; a++ {
		var sq float64
		for r := 0; r < 3; r++ {
			sq += cmap.At(r, a) * cmap.At(r, a)
		}
		spacing[a] = math.Sqrt(sq)
	}

	for r := range bbox {
		bbox[r] = [2]float64{math.Inf(1), math.Inf(-1)}
	}
	for corner := 0; corner < 8; corner++ {
		var v [3]float64
		for a := 0; a < 3; a++ {
			if corner&(1<<a) != 0 && shape[a] > 0 {
				v[a] = float64(shape[a] - 1)
			}
		}
		w := cmap.Apply(v)
		for r := 0; r < 3; r++ {
			bbox[r][0] = math.Min(bbox[r][0], w[r])
			bbox[r][1] = math.Max(bbox[r][1], w[r])
		}
	}
	return spacing, bbox
}

func (s *IndexSlicer) IndexArray() *models.IndexVolume { return s.idx }
func (s *IndexSlicer) GridSpacing() [3]float64         { return s.spacing }
func (s *IndexSlicer) BBox() [3][2]float64             { return s.bbox }
func (s *IndexSlicer) CoordMap() *coordmap.Affine      { return s.cmap }

// Origin returns the lower corner of the bounding box
func (s *IndexSlicer) Origin() [3]float64 {
	return [3]float64{s.bbox[0][0], s.bbox[1][0], s.bbox[2][0]}
}
