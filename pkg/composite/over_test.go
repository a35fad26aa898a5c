package composite

import (
	"bytes"
	"errors"
	"testing"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

func filled(shape models.Shape, c [4]uint8) *models.RGBAVolume {
	v := models.NewRGBAVolume(shape)
	for p := 0; p < len(v.Data); p += 4 {
		copy(v.Data[p:p+4], c[:])
	}
	return v
}

// TestOverHalfBlueOnRed verifies the rounding rule on a half-transparent overlay
func TestOverHalfBlueOnRed(t *testing.T) {
	shape := models.Shape{2, 3, 4}
	base := filled(shape, [4]uint8{255, 0, 0, 255})
	over := filled(shape, [4]uint8{0, 0, 255, 128})

	out, err := Over(base, over)
	if err != nil {
		t.Fatalf("Over failed: %v", err)
	}
	if out != base {
		t.Errorf("Expected composite to be written into base")
	}
	want := [4]uint8{127, 0, 128, 255}
	for i := 0; i < shape.Size(); i++ {
		got := [4]uint8(out.Data[4*i : 4*i+4])
		if got != want {
			t.Fatalf("Voxel %d: expected %v, got %v", i, want, got)
		}
	}
}

// TestOverLimits verifies fully opaque and fully transparent overlays
func TestOverLimits(t *testing.T) {
	shape := models.Shape{1, 1, 2}
	base := filled(shape, [4]uint8{10, 20, 30, 40})

	out, err := Over(base.Clone(), filled(shape, [4]uint8{200, 100, 50, 0}))
	if err != nil {
		t.Fatalf("Over failed: %v", err)
	}
	if !bytes.Equal(out.Data, base.Data) {
		t.Errorf("Expected transparent overlay to leave base unchanged, got %v", out.Data)
	}

	out, err = Over(base.Clone(), filled(shape, [4]uint8{200, 100, 50, 255}))
	if err != nil {
		t.Fatalf("Over failed: %v", err)
	}
	if got := out.At(0, 0, 1); got != [4]uint8{200, 100, 50, 255} {
		t.Errorf("Expected opaque overlay to replace base, got %v", got)
	}
}

// TestOverEmpty verifies the unloaded-side rules
func TestOverEmpty(t *testing.T) {
	a := filled(models.Shape{2, 2, 2}, [4]uint8{1, 2, 3, 4})

	t.Run("EmptyOver", func(t *testing.T) {
		out, err := Over(a, models.EmptyRGBA())
		if err != nil {
			t.Fatalf("Over failed: %v", err)
		}
		if out != a {
			t.Errorf("Expected base returned as-is")
		}
	})

	t.Run("EmptyBase", func(t *testing.T) {
		out, err := Over(models.EmptyRGBA(), a)
		if err != nil {
			t.Fatalf("Over failed: %v", err)
		}
		if out != a {
			t.Errorf("Expected over returned as-is")
		}
	})

	t.Run("BothEmpty", func(t *testing.T) {
		out, err := Over(models.EmptyRGBA(), nil)
		if err != nil {
			t.Fatalf("Over failed: %v", err)
		}
		if !out.Empty() || out.Shape != (models.Shape{}) {
			t.Errorf("Expected empty (0,0,0,4) volume, got shape %v", out.Shape)
		}
	})
}

// TestOverShapeMismatch verifies that differently shaped layers are rejected
func TestOverShapeMismatch(t *testing.T) {
	a := filled(models.Shape{2, 2, 2}, [4]uint8{})
	b := filled(models.Shape{2, 2, 3}, [4]uint8{})
	if _, err := Over(a, b); !errors.Is(err, volerr.ErrShape) {
		t.Errorf("Expected ErrShape, got %v", err)
	}
}
