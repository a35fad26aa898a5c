// Package composite merges two RGBA volumes with the "over" operator.
package composite

import (
	"fmt"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Over places over on top of base, weighting each layer by the over alpha:
//
//	out.c = (over.c*oa + base.c*(255-oa) + 127) / 255
//	out.a = oa + (base.a*(255-oa) + 127) / 255
//
// The result is written into base, which is returned. Callers that need the
// original base must pass a copy.
//
// An empty over returns base untouched, an empty base returns over itself,
// and two empty inputs give the empty (0, 0, 0, 4) volume.
func Over(base, over *models.RGBAVolume) (*models.RGBAVolume, error) {
	switch {
	case over.Empty() && base.Empty():
		return models.EmptyRGBA(), nil
	case over.Empty():
		return base, nil
	case base.Empty():
		return over, nil
	}
	if base.Shape != over.Shape || len(base.Data) != len(over.Data) {
		return nil, fmt.Errorf("%w: cannot composite %v over %v",
			volerr.ErrShape, over.Shape, base.Shape)
	}

	b, o := base.Data, over.Data
	for p := 0; p+3 < len(b); p += 4 {
		oa := uint32(o[p+3])
		if oa == 0 {
			continue
		}
		inv := 255 - oa
		b[p] = uint8((uint32(o[p])*oa + uint32(b[p])*inv + 127) / 255)
		b[p+1] = uint8((uint32(o[p+1])*oa + uint32(b[p+1])*inv + 127) / 255)
		b[p+2] = uint8((uint32(o[p+2])*oa + uint32(b[p+2])*inv + 127) / 255)
		b[p+3] = uint8(oa + (uint32(b[p+3])*inv+127)/255)
	}
	return base, nil
}
