package resample

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/coordmap"
)

// TestTranspose verifies voxel placement after an axis permutation
func TestTranspose(t *testing.T) {
	src := patterned(models.Shape{2, 3, 4})
	out, err := Transpose(src, [3]int{2, 0, 1})
	if err != nil {
		t.Fatalf("Transpose failed: %v", err)
	}
	if out.Shape != (models.Shape{4, 2, 3}) {
		t.Fatalf("Expected shape [4 2 3], got %v", out.Shape)
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 2; j++ {
			for k := 0; k < 3; k++ {
				want := src.Data[src.Shape.Offset(j, k, i)]
				if got := out.Data[out.Shape.Offset(i, j, k)]; got != want {
					t.Fatalf("Voxel (%d,%d,%d): expected %d, got %d", i, j, k, want, got)
				}
			}
		}
	}
}

// TestToAxisOrder verifies that a z,y,x-ordered grid is brought into x,y,z order
func TestToAxisOrder(t *testing.T) {
	src := patterned(models.Shape{2, 3, 4})
	m, err := coordmap.New(mat.NewDense(4, 4, []float64{
		0, 0, 1, 10,
		0, 2, 0, 20,
		3, 0, 0, 30,
		0, 0, 0, 1,
	}))
	if err != nil {
		t.Fatalf("coordmap.New failed: %v", err)
	}

	idx, reordered, err := ToAxisOrder(src, m, [3]int{0, 1, 2})
	if err != nil {
		t.Fatalf("ToAxisOrder failed: %v", err)
	}
	if idx.Shape != (models.Shape{4, 3, 2}) {
		t.Errorf("Expected shape [4 3 2], got %v", idx.Shape)
	}
	scale, offset, err := reordered.Diagonal(coordmap.DefaultTolerance)
	if err != nil {
		t.Fatalf("Expected a diagonal affine after reordering: %v", err)
	}
	if scale != [3]float64{1, 2, 3} || offset != [3]float64{10, 20, 30} {
		t.Errorf("Expected scale [1 2 3] offset [10 20 30], got %v %v", scale, offset)
	}

	// the same world point must be reached from both layouts
	for _, v := range [][3]int{{1, 2, 3}, {0, 0, 0}, {1, 1, 2}} {
		before := m.Apply([3]float64{float64(v[0]), float64(v[1]), float64(v[2])})
		after := reordered.Apply([3]float64{float64(v[2]), float64(v[1]), float64(v[0])})
		if before != after {
			t.Errorf("Voxel %v: expected world %v after reorder, got %v", v, before, after)
		}
		if src.Data[src.Shape.Offset(v[0], v[1], v[2])] != idx.Data[idx.Shape.Offset(v[2], v[1], v[0])] {
			t.Errorf("Voxel %v: index value moved to the wrong place", v)
		}
	}

	same, sameMap, err := ToAxisOrder(idx, reordered, [3]int{0, 1, 2})
	if err != nil {
		t.Fatalf("ToAxisOrder failed: %v", err)
	}
	if same != idx || sameMap != reordered {
		t.Errorf("Expected already-ordered input to pass through untouched")
	}
}
