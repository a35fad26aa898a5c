// Package colormap implements the RGBA lookup tables that turn LUT-index
// volumes into color volumes.
//
// A LookupTable has N main entries followed by three reserved rows: under
// (row N), over (row N+1) and bad (row N+2). Lookups are a single gather
// through a flat byte table so they stay cheap on volumes with millions of
// voxels.
package colormap

import (
	"fmt"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// DefaultSize is the usual number of main entries
const DefaultSize = 256

// LookupTable is a fixed-size indexed color table with reserved under, over
// and bad rows.
type LookupTable struct {
	name    string
	entries [][4]uint8 // n main entries followed by under, over, bad
}

// New builds a table from its main entries and the three reserved rows.
// The entries are copied, so tables never share rows.
func New(name string, entries [][4]uint8, under, over, bad [4]uint8) (*LookupTable, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: lookup table %q has no entries", volerr.ErrConfiguration, name)
	}
	rows := make([][4]uint8, len(entries), len(entries)+3)
	copy(rows, entries)
	rows = append(rows, under, over, bad)
	return &LookupTable{name: name, entries: rows}, nil
}

// Name returns the colormap name the table was built from
func (t *LookupTable) Name() string { return t.name }

// N returns the number of main entries
func (t *LookupTable) N() int { return len(t.entries) - 3 }

// Under returns the index of the under-range row
func (t *LookupTable) Under() int32 { return int32(t.N()) }

// Over returns the index of the over-range row
func (t *LookupTable) Over() int32 { return int32(t.N() + 1) }

// Bad returns the index of the invalid-value row
func (t *LookupTable) Bad() int32 { return int32(t.N() + 2) }

// Entry returns row i of the table, reserved rows included
func (t *LookupTable) Entry(i int) [4]uint8 {
	return t.entries[i]
}

// SetReserved replaces the under, over and bad rows
func (t *LookupTable) SetReserved(under, over, bad [4]uint8) {
	n := t.N()
	t.entries[n], t.entries[n+1], t.entries[n+2] = under, over, bad
}

// Clone returns an independent copy of the table
func (t *LookupTable) Clone() *LookupTable {
	rows := make([][4]uint8, len(t.entries))
	copy(rows, t.entries)
	return &LookupTable{name: t.name, entries: rows}
}

// row maps any stored index onto a table row: negative indices read the
// under row and indices past the bad row read the over row.
func (t *LookupTable) row(ix int32) int32 {
	if ix < 0 {
		return t.Under()
	}
	if ix > t.Bad() {
		return t.Over()
	}
	return ix
}

// table flattens the rows into one byte slice with the main alphas replaced
func (t *LookupTable) table(alphas []float64) []uint8 {
	flat := make([]uint8, 4*len(t.entries))
	for i, e := range t.entries {
		copy(flat[4*i:], e[:])
	}
	for i, a := range alphas {
		flat[4*i+3] = alphaByte(a)
	}
	return flat
}

// Lookup maps every index to its RGBA color. The alpha setting overrides
// only the fourth channel of the main entries; the reserved rows keep
// their own alpha.
func (t *LookupTable) Lookup(idx *models.IndexVolume, alpha Alpha) (*models.RGBAVolume, error) {
	alphas, err := alpha.Expand(t.N())
	if err != nil {
		return nil, err
	}
	if idx.Empty() {
		return models.EmptyRGBA(), nil
	}
	flat := t.table(alphas)
	out := models.NewRGBAVolume(idx.Shape)
	for i, ix := range idx.Data {
		r := 4 * t.row(ix)
		copy(out.Data[4*i:4*i+4], flat[r:r+4])
	}
	return out, nil
}

// AlphaTable returns the alpha byte of every row: the main entries come from
// the setting and the under, over and bad rows keep the table's own alpha.
func (t *LookupTable) AlphaTable(alpha Alpha) ([]uint8, error) {
	alphas, err := alpha.Expand(t.N())
	if err != nil {
		return nil, err
	}
	n := t.N()
	out := make([]uint8, n+3)
	for i, a := range alphas {
		out[i] = alphaByte(a)
	}
	for i := n; i < n+3; i++ {
		out[i] = t.entries[i][3]
	}
	return out, nil
}

// RemapAlpha overwrites only the alpha channel of rgba in place, reading the
// new value for each voxel through its index. Color channels are untouched.
func (t *LookupTable) RemapAlpha(idx *models.IndexVolume, alpha Alpha, rgba *models.RGBAVolume) error {
	if idx.Empty() {
		return fmt.Errorf("%w: cannot remap alpha through an empty index", volerr.ErrShape)
	}
	if rgba.Empty() || rgba.Shape != idx.Shape {
		return fmt.Errorf("%w: rgba shape %v does not match index shape %v",
			volerr.ErrShape, rgba.Shape, idx.Shape)
	}
	lut, err := t.AlphaTable(alpha)
	if err != nil {
		return err
	}
	for i, ix := range idx.Data {
		rgba.Data[4*i+3] = lut[t.row(ix)]
	}
	return nil
}

// Reindex carries an index volume built for one table over to another of a
// different size. Under, over and bad voxels move to the new reserved rows;
// main entries past the end of the new table clamp to its last entry.
func Reindex(idx *models.IndexVolume, from, to *LookupTable) *models.IndexVolume {
	if idx.Empty() || from.N() == to.N() {
		return idx
	}
	out := &models.IndexVolume{Data: make([]int32, len(idx.Data)), Shape: idx.Shape}
	top := int32(to.N() - 1)
	for i, ix := range idx.Data {
		switch r := from.row(ix); {
		case r == from.Under():
			out.Data[i] = to.Under()
		case r == from.Over():
			out.Data[i] = to.Over()
		case r == from.Bad():
			out.Data[i] = to.Bad()
		case r > top:
			out.Data[i] = top
		default:
			out.Data[i] = r
		}
	}
	return out
}
