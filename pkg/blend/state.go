// Package blend holds the incremental color-mapping and compositing state for
// a main and an over volume.
//
// Each side runs index -> RGBA through its own lookup table and alpha
// setting, and the two RGBA volumes are composited with the over operator.
// Mutations record what changed; reads recompute only the stale stages:
//
//   - a new index, a new colormap, or two or more settings changed together
//     redo the full lookup for that side
//   - an alpha change on its own only rewrites the alpha channel of the
//     existing RGBA volume through the index (the fast path)
//   - the composite is cached against the version of both sides' RGBA
//
// The over side is always aligned onto the main grid before any lookup: it is
// reordered into main's axis order and resampled with nearest neighbour when
// its shape or affine differ from main's.
//
// A State is single-owner and not safe for concurrent use. Volumes returned by
// its read methods belong to the State and may be rewritten in place by a later
// read; clone them to keep a snapshot.
package blend

import (
	"fmt"

	"github.com/matthew-brett/xipy/internal/models"
	"github.com/matthew-brett/xipy/pkg/colormap"
	"github.com/matthew-brett/xipy/pkg/composite"
	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/logging"
	"github.com/matthew-brett/xipy/pkg/normalize"
	"github.com/matthew-brett/xipy/pkg/resample"
	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Side selects one of the two pipelines
type Side int

const (
	Main Side = iota
	Over
)

func (s Side) String() string {
	switch s {
	case Main:
		return "main"
	case Over:
		return "over"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

func (s Side) valid() bool {
	return s == Main || s == Over
}

// Default colormaps, rebuilt for every State
const (
	DefaultMainColormap = "gray"
	DefaultOverColormap = "jet"
)

// Props carries an atomic update of a side's settings. Nil fields are left alone.
type Props struct {
	Colormap *colormap.LookupTable
	Alpha    *colormap.Alpha
	Norm     *normalize.Bounds
}

// Stats counts the recomputations a State has performed
type Stats struct {
	FullLookups [2]int
	AlphaRemaps [2]int
	Resamples   int
	Composites  int
}

// staleness orders how much of a side's RGBA must be redone
type staleness uint8

const (
	fresh staleness = iota
	staleAlpha
	staleFull
)

// pipeline is the per-side state: inputs, cached output and its freshness
type pipeline struct {
	side    Side
	idx     *models.IndexVolume
	grid    *coordmap.Affine
	cmap    *colormap.LookupTable
	alpha   colormap.Alpha
	norm    normalize.Bounds
	rgba    *models.RGBAVolume
	stale   staleness
	version uint64
}

func (p *pipeline) mark(s staleness) {
	if s > p.stale {
		p.stale = s
	}
}

// source is the over input as supplied, before alignment to main
type source struct {
	idx  *models.IndexVolume
	grid *coordmap.Affine
}

// State is the blend dependency graph for a main and an over volume.
type State struct {
	sides     [2]*pipeline
	overSrc   source
	blended   *models.RGBAVolume
	blendedAt [2]uint64
	hasBlend  bool
	stats     Stats
}

// Option customizes a new State
type Option func(*State)

// WithColormap sets the initial lookup table of a side
func WithColormap(side Side, lut *colormap.LookupTable) Option {
	return func(s *State) {
		if side.valid() && lut != nil {
			s.sides[side].cmap = lut
		}
	}
}

// WithAlpha sets the initial alpha setting of a side
func WithAlpha(side Side, a colormap.Alpha) Option {
	return func(s *State) {
		if side.valid() {
			s.sides[side].alpha = a
		}
	}
}

// WithNorm sets the initial normalization bounds of a side
func WithNorm(side Side, b normalize.Bounds) Option {
	return func(s *State) {
		if side.valid() {
			s.sides[side].norm = b
		}
	}
}

// New creates an empty State. Unless overridden, main uses a fresh gray table,
// over a fresh jet table, both fully opaque with automatic normalization.
func New(opts ...Option) (*State, error) {
	s := &State{}
	defaults := [2]string{DefaultMainColormap, DefaultOverColormap}
	for side := range s.sides {
		s.sides[side] = &pipeline{
			side:  Side(side),
			idx:   &models.IndexVolume{},
			cmap:  colormap.MustNamed(defaults[side], colormap.DefaultSize),
			alpha: colormap.Opaque,
			norm:  normalize.Auto,
			rgba:  models.EmptyRGBA(),
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range s.sides {
		if err := p.alpha.Validate(p.cmap.N()); err != nil {
			return nil, fmt.Errorf("%s alpha: %w", p.side, err)
		}
	}
	return s, nil
}

func (s *State) pipeline(side Side) (*pipeline, error) {
	if !side.valid() {
		return nil, fmt.Errorf("%w: unknown side %d", volerr.ErrType, int(side))
	}
	return s.sides[side], nil
}

// SetIndex replaces the index volume of a side. grid maps the volume's voxels to
// world space; nil means voxel space itself. A nil or empty idx unloads the side.
//
// Setting main re-aligns the over side onto the new main grid. Setting over
// aligns it onto the current main grid. Assigning an index equal to the current
// one changes nothing.
func (s *State) SetIndex(side Side, idx *models.IndexVolume, grid *coordmap.Affine) error {
	p, err := s.pipeline(side)
	if err != nil {
		return err
	}
	if idx == nil {
		idx = &models.IndexVolume{}
	}
	if len(idx.Data) != idx.Shape.Size() {
		return fmt.Errorf("%w: %s index has %d values for shape %v",
			volerr.ErrShape, side, len(idx.Data), idx.Shape)
	}
	if grid == nil {
		grid = coordmap.FromStartStep([3]float64{}, [3]float64{1, 1, 1})
	}

	if side == Over {
		aligned, err := s.align(s.sides[Main], source{idx, grid})
		if err != nil {
			return err
		}
		s.overSrc = source{idx, grid}
		s.assign(p, aligned, grid)
		return nil
	}

	// Work out the over side against the new main grid before committing
	// anything, so a failed alignment leaves the State as it was.
	next := &pipeline{idx: idx, grid: grid}
	aligned, err := s.align(next, s.overSrc)
	if err != nil {
		return err
	}
	s.assign(p, idx, grid)
	s.assign(s.sides[Over], aligned, s.overSrc.grid)
	return nil
}

// assign stores a side's authoritative index, skipping equal reassignments
func (s *State) assign(p *pipeline, idx *models.IndexVolume, grid *coordmap.Affine) {
	p.grid = grid
	if p.idx.Equal(idx) {
		return
	}
	p.idx = idx
	p.mark(staleFull)
	logging.Debugf("%s index changed to shape %v", p.side, idx.Shape)
}

// align brings an over source onto main's grid. With main unloaded the source
// is used as it is.
func (s *State) align(main *pipeline, src source) (*models.IndexVolume, error) {
	if src.idx.Empty() {
		return &models.IndexVolume{}, nil
	}
	if main.idx.Empty() {
		return src.idx, nil
	}
	order, err := main.grid.AxisCorrespondence()
	if err != nil {
		return nil, fmt.Errorf("main grid: %w", err)
	}
	idx, grid, err := resample.ToAxisOrder(src.idx, src.grid, order)
	if err != nil {
		return nil, fmt.Errorf("over grid: %w", err)
	}
	if idx.Shape == main.idx.Shape && grid.Equal(main.grid, coordmap.DefaultTolerance) {
		return idx, nil
	}
	logging.Debugf("resampling over %v onto main %v", idx.Shape, main.idx.Shape)
	out, err := resample.Onto(main.idx.Shape, main.grid, s.sides[Over].cmap.Bad(), idx, grid)
	if err != nil {
		return nil, err
	}
	s.stats.Resamples++
	return out, nil
}

// Update applies several settings of one side at once. Changing two or more of
// them, or the colormap alone, redoes that side's full lookup; changing only the
// alpha takes the alpha-channel fast path. Normalization bounds are recorded for
// whoever produces the index; on their own they leave the RGBA alone.
func (s *State) Update(side Side, props Props) error {
	p, err := s.pipeline(side)
	if err != nil {
		return err
	}

	cmap, alpha, norm := p.cmap, p.alpha, p.norm
	changed := 0
	cmapChanged, alphaChanged := false, false
	if props.Colormap != nil && props.Colormap != p.cmap {
		cmap, cmapChanged = props.Colormap, true
		changed++
	}
	if props.Alpha != nil && !props.Alpha.Equal(p.alpha) {
		alpha, alphaChanged = *props.Alpha, true
		changed++
	}
	if props.Norm != nil && !props.Norm.Equal(p.norm) {
		norm = *props.Norm
		changed++
	}
	if changed == 0 {
		return nil
	}
	if err := alpha.Validate(cmap.N()); err != nil {
		return fmt.Errorf("%s alpha: %w", side, err)
	}

	// A table with a different size moves the reserved rows, so indices
	// tagged under, over or bad are carried to the new ones. The resampled
	// over index also fills with the bad row and is aligned again.
	resized := cmapChanged && cmap.N() != p.cmap.N()
	prev, prevSrc := *p, s.overSrc
	p.cmap, p.alpha, p.norm = cmap, alpha, norm
	if resized {
		if side == Over {
			s.overSrc.idx = colormap.Reindex(s.overSrc.idx, prev.cmap, cmap)
			aligned, err := s.align(s.sides[Main], s.overSrc)
			if err != nil {
				*p, s.overSrc = prev, prevSrc
				return err
			}
			s.assign(p, aligned, s.overSrc.grid)
		} else {
			s.assign(p, colormap.Reindex(p.idx, prev.cmap, cmap), p.grid)
		}
	}

	switch {
	case changed >= 2 || cmapChanged:
		logging.Debugf("remapping %s through %q", side, p.cmap.Name())
		p.mark(staleFull)
	case alphaChanged:
		logging.Debugf("remapping %s alpha channel", side)
		p.mark(staleAlpha)
	}
	return nil
}

// SetColormap replaces the lookup table of a side
func (s *State) SetColormap(side Side, lut *colormap.LookupTable) error {
	if lut == nil {
		return fmt.Errorf("%w: nil lookup table for %s", volerr.ErrConfiguration, side)
	}
	return s.Update(side, Props{Colormap: lut})
}

// SetAlpha replaces the alpha setting of a side
func (s *State) SetAlpha(side Side, a colormap.Alpha) error {
	return s.Update(side, Props{Alpha: &a})
}

// SetNorm replaces the normalization bounds of a side
func (s *State) SetNorm(side Side, b normalize.Bounds) error {
	return s.Update(side, Props{Norm: &b})
}

// UpdateIndex applies settings and a replacement index for one side together.
// If either step fails the State is left as it was before the call.
func (s *State) UpdateIndex(side Side, props Props, idx *models.IndexVolume, grid *coordmap.Affine) error {
	if !side.valid() {
		return fmt.Errorf("%w: unknown side %d", volerr.ErrType, int(side))
	}
	saved := [2]pipeline{*s.sides[Main], *s.sides[Over]}
	savedSrc, savedStats := s.overSrc, s.stats
	err := s.Update(side, props)
	if err == nil {
		err = s.SetIndex(side, idx, grid)
	}
	if err != nil {
		*s.sides[Main], *s.sides[Over] = saved[Main], saved[Over]
		s.overSrc, s.stats = savedSrc, savedStats
	}
	return err
}

// refresh brings a side's RGBA up to date with its inputs
func (s *State) refresh(p *pipeline) error {
	if p.stale == fresh {
		return nil
	}
	if p.idx.Empty() {
		if !p.rgba.Empty() {
			p.rgba = models.EmptyRGBA()
			p.version++
		}
		p.stale = fresh
		return nil
	}

	if p.stale == staleAlpha && !p.rgba.Empty() && p.rgba.Shape == p.idx.Shape {
		if err := p.cmap.RemapAlpha(p.idx, p.alpha, p.rgba); err != nil {
			return fmt.Errorf("%s alpha remap: %w", p.side, err)
		}
		s.stats.AlphaRemaps[p.side]++
		logging.Debugf("looked up new %s alpha channel", p.side)
	} else {
		rgba, err := p.cmap.Lookup(p.idx, p.alpha)
		if err != nil {
			return fmt.Errorf("%s lookup: %w", p.side, err)
		}
		p.rgba = rgba
		s.stats.FullLookups[p.side]++
		logging.Debugf("mapped %s index %v to %s of RGBA", p.side, p.idx.Shape, logging.Bytes(len(rgba.Data)))
	}
	p.version++
	p.stale = fresh
	return nil
}

// RGBA returns the up-to-date color volume of one side
func (s *State) RGBA(side Side) (*models.RGBAVolume, error) {
	p, err := s.pipeline(side)
	if err != nil {
		return nil, err
	}
	if err := s.refresh(p); err != nil {
		return nil, err
	}
	return p.rgba, nil
}

// Blended returns the over volume composited onto the main volume. When one
// side is unloaded the other side's RGBA is returned as it is; with neither
// loaded the result is the empty (0, 0, 0, 4) volume.
func (s *State) Blended() (*models.RGBAVolume, error) {
	for _, p := range s.sides {
		if err := s.refresh(p); err != nil {
			return nil, err
		}
	}
	at := [2]uint64{s.sides[Main].version, s.sides[Over].version}
	if s.hasBlend && at == s.blendedAt {
		return s.blended, nil
	}

	base, over := s.sides[Main].rgba, s.sides[Over].rgba
	if !base.Empty() && !over.Empty() {
		base = base.Clone()
	}
	out, err := composite.Over(base, over)
	if err != nil {
		return nil, err
	}
	s.blended, s.blendedAt, s.hasBlend = out, at, true
	s.stats.Composites++
	logging.Debugf("update to blended image: %v", out.Shape)
	return out, nil
}

// Index returns the authoritative index of a side; for over this is the
// volume aligned onto the main grid.
func (s *State) Index(side Side) *models.IndexVolume {
	if !side.valid() {
		return nil
	}
	return s.sides[side].idx
}

// Grid returns the voxel-to-world mapping of a side's authoritative index
func (s *State) Grid(side Side) *coordmap.Affine {
	if !side.valid() {
		return nil
	}
	p := s.sides[side]
	if side == Over && !s.sides[Main].idx.Empty() {
		return s.sides[Main].grid
	}
	return p.grid
}

// Loaded reports whether a side currently holds a non-empty index
func (s *State) Loaded(side Side) bool {
	return side.valid() && !s.sides[side].idx.Empty()
}

// Colormap returns the lookup table of a side
func (s *State) Colormap(side Side) *colormap.LookupTable {
	if !side.valid() {
		return nil
	}
	return s.sides[side].cmap
}

// Alpha returns the alpha setting of a side
func (s *State) Alpha(side Side) colormap.Alpha {
	if !side.valid() {
		return colormap.Alpha{}
	}
	return s.sides[side].alpha
}

// Norm returns the normalization bounds of a side
func (s *State) Norm(side Side) normalize.Bounds {
	if !side.valid() {
		return normalize.Auto
	}
	return s.sides[side].norm
}

// Stats returns the recomputation counters
func (s *State) Stats() Stats {
	return s.stats
}
