// Package volume presents the blended main and over images to a renderer.
//
// Images accepts either scalar volumes, which it quantizes through each side's
// colormap and normalization, or ready-made slicers. It republishes the
// prevailing grid's spacing, origin and shape together with the composited
// RGBA volume. Before anything is attached a small placeholder grid is
// reported so callers can query it at any time.
package volume

import (
	"fmt"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/blend"
	"github.com/matthew-brett/xipy/pkg/colormap"
	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/logging"
	"github.com/matthew-brett/xipy/pkg/normalize"
	"github.com/matthew-brett/xipy/pkg/slicer"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Placeholder grid reported while neither side is loaded
var (
	PlaceholderSpacing = [3]float64{1, 1, 1}
	PlaceholderOrigin  = [3]float64{-10, -10, -10}
	PlaceholderShape   = models.Shape{10, 10, 10}
)

// Renderable is what a display backend needs from the adapter
type Renderable interface {
	Spacing() [3]float64
	Origin() [3]float64
	Shape() models.Shape
	ImageArray() (*models.RGBAVolume, error)
	NullPlanes() [3]*Plane
}

// Plane is a 2-D RGBA image of Rows x Cols pixels
type Plane struct {
	Data []uint8
	Rows int
	Cols int
}

func newPlane(rows, cols int) *Plane {
	return &Plane{Data: make([]uint8, rows*cols*4), Rows: rows, Cols: cols}
}

// Options configure a new Images
type Options struct {
	// AxisOrder, when set, reorders attached volumes into this axis
	// convention. Scalar volumes are reordered before they are quantized.
	AxisOrder *[3]int

	// Blend options for the underlying state
	Blend []blend.Option
}

// Images is the volume adapter around a blend.State
type Images struct {
	state     *blend.State
	axisOrder *[3]int

	// sources holds the scalar volumes as attached so they can be re-sliced
	sources [2]*models.ScalarVolume
	slicers [2]slicer.Slicer
	planes  [3]*Plane
}

var _ Renderable = (*Images)(nil)

// New creates an adapter with nothing attached
func New(opts Options) (*Images, error) {
	if opts.AxisOrder != nil && !coordmap.IsPermutation(*opts.AxisOrder) {
		return nil, fmt.Errorf("%w: axis order %v is not a permutation", volerr.ErrConfiguration, *opts.AxisOrder)
	}
	state, err := blend.New(opts.Blend...)
	if err != nil {
		return nil, err
	}
	im := &Images{state: state, axisOrder: opts.AxisOrder}
	im.planes = nullPlanes(PlaceholderShape)
	return im, nil
}

// State exposes the underlying blend state
func (im *Images) State() *blend.State {
	return im.state
}

// SetMain attaches the main image. src may be nil to unload, a
// *models.ScalarVolume or a slicer.Slicer.
func (im *Images) SetMain(src any) error {
	return im.set(blend.Main, src)
}

// SetOver attaches the over image, which is aligned onto the main grid
func (im *Images) SetOver(src any) error {
	return im.set(blend.Over, src)
}

func (im *Images) set(side blend.Side, src any) error {
	var (
		vol *models.ScalarVolume
		sl  slicer.Slicer
		err error
	)
	switch v := src.(type) {
	case nil:
	case *models.ScalarVolume:
		vol = v
		sl, err = im.slice(v, im.state.Colormap(side), im.state.Norm(side))
		if err != nil {
			return fmt.Errorf("slicing %s image: %w", side, err)
		}
	case slicer.Slicer:
		if is, ok := v.(*slicer.IndexSlicer); ok && is == nil {
			return fmt.Errorf("%w: nil slicer for %s image", volerr.ErrType, side)
		}
		if v.IndexArray() == nil || v.CoordMap() == nil {
			return fmt.Errorf("%w: %s slicer has no index or coordinate map", volerr.ErrType, side)
		}
		sl = v
		if im.axisOrder != nil {
			if sl, err = slicer.FromIndex(v.IndexArray(), v.CoordMap(), im.axisOrder); err != nil {
				return fmt.Errorf("reordering %s image: %w", side, err)
			}
		}
	default:
		return fmt.Errorf("%w: cannot attach %T as %s image", volerr.ErrType, src, side)
	}
	return im.attach(side, sl, vol)
}

// slice quantizes a scalar volume for a side's lookup table
func (im *Images) slice(vol *models.ScalarVolume, lut *colormap.LookupTable, norm normalize.Bounds) (*slicer.IndexSlicer, error) {
	return slicer.New(vol, slicer.Options{
		Norm:      norm,
		Size:      lut.N(),
		Bad:       lut.Bad(),
		AxisOrder: im.axisOrder,
	})
}

func (im *Images) attach(side blend.Side, sl slicer.Slicer, vol *models.ScalarVolume) error {
	var (
		idx  *models.IndexVolume
		grid *coordmap.Affine
	)
	if sl != nil {
		idx, grid = sl.IndexArray(), sl.CoordMap()
	}
	if err := im.state.SetIndex(side, idx, grid); err != nil {
		return err
	}
	im.sources[side], im.slicers[side] = vol, sl
	if sl == nil {
		logging.Infof("unloaded %s image", side)
	} else {
		logging.Infof("attached %s image %v, spacing %v, origin %v",
			side, sl.IndexArray().Shape, sl.GridSpacing(), sl.Origin())
	}
	im.planes = nullPlanes(im.Shape())
	return nil
}

// Update applies several settings of one side at once. A scalar source is
// re-quantized when its normalization or table size changes; the new settings
// and index are committed together or not at all.
func (im *Images) Update(side blend.Side, props blend.Props) error {
	var next *slicer.IndexSlicer
	if vol := im.source(side); vol != nil {
		lut, norm := im.state.Colormap(side), im.state.Norm(side)
		reslice := false
		if props.Colormap != nil && props.Colormap.N() != lut.N() {
			lut, reslice = props.Colormap, true
		}
		if props.Norm != nil && !props.Norm.Equal(norm) {
			norm, reslice = *props.Norm, true
		}
		if reslice {
			var err error
			if next, err = im.slice(vol, lut, norm); err != nil {
				return fmt.Errorf("re-slicing %s image: %w", side, err)
			}
		}
	}
	if next == nil {
		return im.state.Update(side, props)
	}
	if err := im.state.UpdateIndex(side, props, next.IndexArray(), next.CoordMap()); err != nil {
		return err
	}
	logging.Debugf("re-sliced %s image with norm %s", side, im.state.Norm(side))
	im.slicers[side] = next
	return nil
}

// SetColormap replaces the lookup table of a side
func (im *Images) SetColormap(side blend.Side, lut *colormap.LookupTable) error {
	if lut == nil {
		return fmt.Errorf("%w: nil lookup table for %s", volerr.ErrConfiguration, side)
	}
	return im.Update(side, blend.Props{Colormap: lut})
}

// SetAlpha replaces the alpha setting of a side
func (im *Images) SetAlpha(side blend.Side, a colormap.Alpha) error {
	return im.Update(side, blend.Props{Alpha: &a})
}

// SetNorm replaces the normalization bounds of a side
func (im *Images) SetNorm(side blend.Side, b normalize.Bounds) error {
	return im.Update(side, blend.Props{Norm: &b})
}

func (im *Images) source(side blend.Side) *models.ScalarVolume {
	if side != blend.Main && side != blend.Over {
		return nil
	}
	return im.sources[side]
}

// prevailing is the slicer whose grid the blended image lives on
func (im *Images) prevailing() slicer.Slicer {
	if im.state.Loaded(blend.Main) {
		return im.slicers[blend.Main]
	}
	if im.state.Loaded(blend.Over) {
		return im.slicers[blend.Over]
	}
	return nil
}

// Spacing returns the voxel size of the prevailing grid
func (im *Images) Spacing() [3]float64 {
	if sl := im.prevailing(); sl != nil {
		return sl.GridSpacing()
	}
	return PlaceholderSpacing
}

// Origin returns the world position of the prevailing grid's lower corner
func (im *Images) Origin() [3]float64 {
	if sl := im.prevailing(); sl != nil {
		return sl.Origin()
	}
	return PlaceholderOrigin
}

// Shape returns the grid extent of the blended image
func (im *Images) Shape() models.Shape {
	for _, side := range []blend.Side{blend.Main, blend.Over} {
		if im.state.Loaded(side) {
			return im.state.Index(side).Shape
		}
	}
	return PlaceholderShape
}

// CoordMap returns the voxel-to-world mapping of the blended image
func (im *Images) CoordMap() *coordmap.Affine {
	if sl := im.prevailing(); sl != nil {
		return sl.CoordMap()
	}
	return coordmap.FromStartStep(PlaceholderOrigin, PlaceholderSpacing)
}

// ImageArray returns the composited RGBA volume. With nothing attached it is
// the empty (0, 0, 0, 4) volume.
func (im *Images) ImageArray() (*models.RGBAVolume, error) {
	return im.state.Blended()
}

// NullPlanes returns blank RGBA planes spanning axes (0, 1), (0, 2) and (1, 2)
// of the current shape
func (im *Images) NullPlanes() [3]*Plane {
	return im.planes
}

func nullPlanes(s models.Shape) [3]*Plane {
	return [3]*Plane{
		newPlane(s[0], s[1]),
		newPlane(s[0], s[2]),
		newPlane(s[1], s[2]),
	}
}
