package coordmap

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/matthew-brett/xipy/pkg/volerr"
)

// TestFromStartStep verifies voxel-to-world mapping of a diagonal affine
func TestFromStartStep(t *testing.T) {
	a := FromStartStep([3]float64{-10, 5, 0}, [3]float64{2, 1, 0.5})

	got := a.Apply([3]float64{1, 2, 4})
	want := [3]float64{-8, 7, 2}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Errorf("Expected world coordinate %v, got %v", want, got)
			break
		}
	}
}

// TestNewRejectsBadMatrices verifies shape and homogeneous-row validation
func TestNewRejectsBadMatrices(t *testing.T) {
	if _, err := New(mat.NewDense(3, 3, nil)); !errors.Is(err, volerr.ErrShape) {
		t.Errorf("Expected ErrShape for 3x3 matrix, got %v", err)
	}

	m := mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 1, 0, 1,
	})
	if _, err := New(m); !errors.Is(err, volerr.ErrAlignment) {
		t.Errorf("Expected ErrAlignment for bad last row, got %v", err)
	}
}

// TestComposeInverse verifies that an affine composed with its inverse is the identity
func TestComposeInverse(t *testing.T) {
	a := FromStartStep([3]float64{3, -4, 7}, [3]float64{2, 3, 0.25})
	inv, err := a.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}
	if !Compose(inv, a).IsIdentity(1e-9) {
		t.Errorf("Expected inverse composed with affine to be identity, got %v",
			mat.Formatted(Compose(inv, a).Matrix()))
	}

	singular := FromStartStep([3]float64{}, [3]float64{1, 0, 1})
	if _, err := singular.Inverse(); !errors.Is(err, volerr.ErrAlignment) {
		t.Errorf("Expected ErrAlignment for singular affine, got %v", err)
	}
}

// TestAxisCorrespondence verifies detection of swapped array axes
func TestAxisCorrespondence(t *testing.T) {
	// array axis 0 moves along z, axis 2 along x
	m := mat.NewDense(4, 4, []float64{
		0, 0, 2, 1,
		0, 1, 0, 2,
		3, 0, 0, 3,
		0, 0, 0, 1,
	})
	a, err := New(m)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	axes, err := a.AxisCorrespondence()
	if err != nil {
		t.Fatalf("AxisCorrespondence failed: %v", err)
	}
	if axes != [3]int{2, 1, 0} {
		t.Errorf("Expected axes [2 1 0], got %v", axes)
	}

	r, err := a.Reordered([3]int{2, 1, 0})
	if err != nil {
		t.Fatalf("Reordered failed: %v", err)
	}
	axes, err = r.AxisCorrespondence()
	if err != nil {
		t.Fatalf("AxisCorrespondence after reorder failed: %v", err)
	}
	if axes != [3]int{0, 1, 2} {
		t.Errorf("Expected reordered axes [0 1 2], got %v", axes)
	}
	scale, offset, err := r.Diagonal(DefaultTolerance)
	if err != nil {
		t.Fatalf("Diagonal failed: %v", err)
	}
	if scale != [3]float64{2, 1, 3} || offset != [3]float64{1, 2, 3} {
		t.Errorf("Expected scale [2 1 3] offset [1 2 3], got %v %v", scale, offset)
	}
}

// TestAxisCorrespondenceOblique verifies that collapsed axes are rejected
func TestAxisCorrespondenceOblique(t *testing.T) {
	m := mat.NewDense(4, 4, []float64{
		1, 1, 0, 0,
		0.1, 0.2, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	a, err := New(m)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, err := a.AxisCorrespondence(); !errors.Is(err, volerr.ErrAlignment) {
		t.Errorf("Expected ErrAlignment, got %v", err)
	}
}

// TestDiagonalRejectsShear verifies that a sheared affine is not approximated
func TestDiagonalRejectsShear(t *testing.T) {
	m := mat.NewDense(4, 4, []float64{
		1, 0.5, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	})
	a, err := New(m)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := a.Diagonal(DefaultTolerance); !errors.Is(err, volerr.ErrAlignment) {
		t.Errorf("Expected ErrAlignment, got %v", err)
	}
}

// TestReorderedRejectsNonPermutation verifies permutation validation
func TestReorderedRejectsNonPermutation(t *testing.T) {
	if _, err := Identity().Reordered([3]int{0, 0, 1}); !errors.Is(err, volerr.ErrShape) {
		t.Errorf("Expected ErrShape, got %v", err)
	}
}
