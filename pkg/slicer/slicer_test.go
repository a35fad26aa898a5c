package slicer

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/normalize"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// TestNewQuantizes verifies normalization, quantization and geometry
func TestNewQuantizes(t *testing.T) {
	shape := models.Shape{2, 2, 2}
	data := []float64{0, 1, 2, 3, 4, 5, 6, math.NaN()}
	vol, err := models.NewScalarVolume(data, shape,
		coordmap.FromStartStep([3]float64{-1, -2, -3}, [3]float64{2, 3, 4}))
	if err != nil {
		t.Fatalf("NewScalarVolume failed: %v", err)
	}

	s, err := New(vol, Options{Norm: normalize.Fixed(0, 6), Size: 256, Bad: 258})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	idx := s.IndexArray()
	if idx.Shape != shape {
		t.Fatalf("Expected shape %v, got %v", shape, idx.Shape)
	}
	if idx.Data[0] != 0 || idx.Data[3] != 128 || idx.Data[6] != 255 || idx.Data[7] != 258 {
		t.Errorf("Unexpected indices %v", idx.Data)
	}

	if s.GridSpacing() != [3]float64{2, 3, 4} {
		t.Errorf("Expected spacing [2 3 4], got %v", s.GridSpacing())
	}
	if s.Origin() != [3]float64{-1, -2, -3} {
		t.Errorf("Expected origin [-1 -2 -3], got %v", s.Origin())
	}
	if s.BBox()[2] != [2]float64{-3, 1} {
		t.Errorf("Expected z extent [-3 1], got %v", s.BBox()[2])
	}
}

// TestNewFlippedAxisOrigin verifies that a negative step puts the origin at
// the far end of the array
func TestNewFlippedAxisOrigin(t *testing.T) {
	idx := models.FilledIndexVolume(models.Shape{3, 1, 1}, 1)
	s, err := FromIndex(idx, coordmap.FromStartStep([3]float64{10, 0, 0}, [3]float64{-2, 1, 1}), nil)
	if err != nil {
		t.Fatalf("FromIndex failed: %v", err)
	}
	if s.Origin()[0] != 6 || s.BBox()[0][1] != 10 {
		t.Errorf("Expected x extent [6 10], got %v", s.BBox()[0])
	}
	if s.GridSpacing()[0] != 2 {
		t.Errorf("Expected spacing 2, got %f", s.GridSpacing()[0])
	}
}

// TestFromIndexAxisOrder verifies reordering into a requested axis convention
func TestFromIndexAxisOrder(t *testing.T) {
	idx := &models.IndexVolume{Data: []int32{0, 1, 2, 3, 4, 5}, Shape: models.Shape{1, 2, 3}}
	order := [3]int{2, 1, 0}
	s, err := FromIndex(idx, coordmap.Identity(), &order)
	if err != nil {
		t.Fatalf("FromIndex failed: %v", err)
	}
	if got := s.IndexArray().Shape; got != (models.Shape{3, 2, 1}) {
		t.Errorf("Expected shape [3 2 1], got %v", got)
	}
	axes, err := s.CoordMap().AxisCorrespondence()
	if err != nil {
		t.Fatalf("AxisCorrespondence failed: %v", err)
	}
	if axes != order {
		t.Errorf("Expected axes %v, got %v", order, axes)
	}
}

// TestNewErrors verifies argument validation
func TestNewErrors(t *testing.T) {
	if _, err := New(nil, Options{Size: 256}); !errors.Is(err, volerr.ErrType) {
		t.Errorf("Expected ErrType for nil volume, got %v", err)
	}
	vol, err := models.NewScalarVolume([]float64{1}, models.Shape{1, 1, 1}, coordmap.Identity())
	if err != nil {
		t.Fatalf("NewScalarVolume failed: %v", err)
	}
	if _, err := New(vol, Options{}); !errors.Is(err, volerr.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for zero size, got %v", err)
	}
	if _, err := New(vol, Options{Size: 8, Norm: normalize.Fixed(2, 1)}); !errors.Is(err, volerr.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for inverted bounds, got %v", err)
	}

	oblique, err := coordmap.New(mat.NewDense(4, 4, []float64{
		1, 1, 0, 0,
		0, 0.1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}))
	if err != nil {
		t.Fatalf("coordmap.New failed: %v", err)
	}
	order := [3]int{0, 1, 2}
	if _, err := FromIndex(models.FilledIndexVolume(models.Shape{1, 1, 1}, 0), oblique, &order); !errors.Is(err, volerr.ErrAlignment) {
		t.Errorf("Expected ErrAlignment for collapsed axes, got %v", err)
	}
}
