package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/logging"
)

// Viewer cuts axis-aligned slices out of a blended RGBA volume so they can be
// inspected as ordinary images.
type Viewer struct {
	// volume holds the blended color volume
	volume *models.RGBAVolume

	// spacing is the voxel size along each array axis
	spacing [3]float64
}

// NewViewer creates a viewer over an RGBA volume
func NewViewer(volume *models.RGBAVolume, spacing [3]float64) *Viewer {
	return &Viewer{
		volume:  volume,
		spacing: spacing,
	}
}

// axisIndex maps an axis name onto the array axis it slices across
func axisIndex(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return 0, nil
	case "y", "Y":
		return 1, nil
	case "z", "Z":
		return 2, nil
	}
	return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
}

// ExtractSlice extracts a 2D slice across the given axis.
// An x slice is laid out with z across and y down, a y slice with x across and
// z down, and a z slice with x across and y down.
func (v *Viewer) ExtractSlice(axis string, position int) (*image.NRGBA, error) {
	a, err := axisIndex(axis)
	if err != nil {
		return nil, err
	}
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	shape := v.volume.Shape
	if position >= shape[a] {
		return nil, fmt.Errorf("position %d exceeds %s extent %d", position, axis, shape[a])
	}

	// voxel returns the (i, j, k) index of a pixel
	var cols, rows int
	var voxel func(col, row int) (int, int, int)
	switch a {
	case 0:
		cols, rows = shape[2], shape[1]
		voxel = func(col, row int) (int, int, int) { return position, row, col }
	case 1:
		cols, rows = shape[0], shape[2]
		voxel = func(col, row int) (int, int, int) { return col, position, row }
	default:
		cols, rows = shape[0], shape[1]
		voxel = func(col, row int) (int, int, int) { return col, row, position }
	}

	img := image.NewNRGBA(image.Rect(0, 0, cols, rows))
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := v.volume.At(voxel(col, row))
			img.SetNRGBA(col, row, color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]})
		}
	}
	return img, nil
}

// AspectRatio returns the physical width over height of one pixel in a slice
// across the given axis
func (v *Viewer) AspectRatio(axis string) (float64, error) {
	a, err := axisIndex(axis)
	if err != nil {
		return 0, err
	}
	switch a {
	case 0:
		return v.spacing[2] / v.spacing[1], nil
	case 1:
		return v.spacing[0] / v.spacing[2], nil
	}
	return v.spacing[0] / v.spacing[1], nil
}

// SaveSlice saves an extracted slice as a PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SaveSliceSequence extracts and saves every slice across the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	a, err := axisIndex(axis)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < v.volume.Shape[a]; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}
	logging.Debugf("saved %d %s slices to %s", v.volume.Shape[a], axis, outputDir)

	return nil
}
