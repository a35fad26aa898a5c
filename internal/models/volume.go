package models

import (
	"fmt"

	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Shape holds the extent of a 3D grid along each array axis.
// Data in every volume is stored row-major with the last axis fastest,
// so voxel (i, j, k) lives at (i*Shape[1]+j)*Shape[2]+k.
type Shape [3]int

// Size returns the number of voxels in the grid
func (s Shape) Size() int {
	return s[0] * s[1] * s[2]
}

// Offset returns the flat position of voxel (i, j, k)
func (s Shape) Offset(i, j, k int) int {
	return (i*s[1]+j)*s[2] + k
}

// ScalarVolume is a regular-grid scalar image with its voxel-to-world mapping.
// This is what a caller attaches before it has been turned into LUT indices.
type ScalarVolume struct {
	// Data holds one scalar per voxel in row-major order
	Data []float64

	// Shape is the grid extent along each array axis
	Shape Shape

	// CoordMap maps voxel coordinates to world coordinates
	CoordMap *coordmap.Affine
}

// NewScalarVolume validates that data matches shape before wrapping it
func NewScalarVolume(data []float64, shape Shape, cmap *coordmap.Affine) (*ScalarVolume, error) {
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("%w: scalar data has %d values, shape %v needs %d",
			volerr.ErrShape, len(data), shape, shape.Size())
	}
	if cmap == nil {
		return nil, fmt.Errorf("%w: scalar volume needs a coordinate map", volerr.ErrConfiguration)
	}
	return &ScalarVolume{Data: data, Shape: shape, CoordMap: cmap}, nil
}

// IndexVolume is a grid of lookup table rows.
// A volume with no voxels means the side it belongs to is unloaded.
type IndexVolume struct {
	Data  []int32
	Shape Shape
}

// NewIndexVolume validates that data matches shape before wrapping it
func NewIndexVolume(data []int32, shape Shape) (*IndexVolume, error) {
	if len(data) != shape.Size() {
		return nil, fmt.Errorf("%w: index data has %d values, shape %v needs %d",
			volerr.ErrShape, len(data), shape, shape.Size())
	}
	return &IndexVolume{Data: data, Shape: shape}, nil
}

// FilledIndexVolume returns a volume of the given shape with every voxel set to value
func FilledIndexVolume(shape Shape, value int32) *IndexVolume {
	data := make([]int32, shape.Size())
	for i := range data {
		data[i] = value
	}
	return &IndexVolume{Data: data, Shape: shape}
}

// Empty reports whether the volume holds no voxels
func (v *IndexVolume) Empty() bool {
	return v == nil || len(v.Data) == 0
}

// Equal reports whether two index volumes have the same shape and contents
func (v *IndexVolume) Equal(o *IndexVolume) bool {
	if v == o {
		return true
	}
	if v.Empty() || o.Empty() {
		return v.Empty() && o.Empty()
	}
	if v.Shape != o.Shape {
		return false
	}
	for i, x := range v.Data {
		if o.Data[i] != x {
			return false
		}
	}
	return true
}

// RGBAVolume is a grid of 4-byte colors, the (X, Y, Z, 4) array consumed by renderers.
type RGBAVolume struct {
	Data  []uint8
	Shape Shape
}

// NewRGBAVolume allocates a zero-filled volume of the given shape
func NewRGBAVolume(shape Shape) *RGBAVolume {
	return &RGBAVolume{Data: make([]uint8, 4*shape.Size()), Shape: shape}
}

// EmptyRGBA returns the empty (0, 0, 0, 4) volume
func EmptyRGBA() *RGBAVolume {
	return &RGBAVolume{Data: []uint8{}}
}

// Empty reports whether the volume holds no voxels
func (v *RGBAVolume) Empty() bool {
	return v == nil || len(v.Data) == 0
}

// At returns the color of voxel (i, j, k)
func (v *RGBAVolume) At(i, j, k int) [4]uint8 {
	o := 4 * v.Shape.Offset(i, j, k)
	return [4]uint8{v.Data[o], v.Data[o+1], v.Data[o+2], v.Data[o+3]}
}

// Clone returns a deep copy of the volume
func (v *RGBAVolume) Clone() *RGBAVolume {
	if v == nil {
		return EmptyRGBA()
	}
	data := make([]uint8, len(v.Data))
	copy(data, v.Data)
	return &RGBAVolume{Data: data, Shape: v.Shape}
}
