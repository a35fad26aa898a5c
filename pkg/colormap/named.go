package colormap

import (
	"fmt"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/matthew-brett/xipy/pkg/volerr"
)

// Stop pins a color at a position in [0, 1] along a colormap
type Stop struct {
	Pos   float64 `yaml:"pos"`
	Color string  `yaml:"color"` // "#rrggbb"
}

// stops for the built-in colormaps, sampled from the matplotlib definitions
var builtin = map[string][]Stop{
	"gray": {{0, "#000000"}, {1, "#ffffff"}},
	"bone": {{0, "#000000"}, {0.365, "#51515f"}, {0.746, "#a6c4c4"}, {1, "#ffffff"}},
	"hot":  {{0, "#0a0000"}, {0.365, "#ff0000"}, {0.746, "#ffff00"}, {1, "#ffffff"}},
	"cool": {{0, "#00ffff"}, {1, "#ff00ff"}},
	"jet": {
		{0, "#000080"}, {0.11, "#0000ff"}, {0.125, "#0000ff"}, {0.34, "#00dbff"},
		{0.35, "#00e5f8"}, {0.375, "#14ffe2"}, {0.64, "#ffff00"}, {0.65, "#fff000"},
		{0.89, "#ff1200"}, {0.91, "#e80000"}, {1, "#800000"},
	},
	"viridis": {
		{0, "#440154"}, {0.125, "#46327e"}, {0.25, "#365c8d"}, {0.375, "#277f8e"},
		{0.5, "#1fa187"}, {0.625, "#4ac16d"}, {0.75, "#a0da39"}, {0.875, "#d6e21a"},
		{1, "#fde725"},
	},
}

// Names lists the built-in colormaps in sorted order
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Named builds a fresh n-entry table for a built-in colormap.
// Every call returns a new table; nothing is shared between callers.
func Named(name string, n int) (*LookupTable, error) {
	stops, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown colormap %q", volerr.ErrConfiguration, name)
	}
	return FromStops(name, stops, n)
}

// MustNamed is Named for the built-in defaults, panicking on an unknown name
func MustNamed(name string, n int) *LookupTable {
	t, err := Named(name, n)
	if err != nil {
		panic(err)
	}
	return t
}

// FromStops builds an n-entry table by interpolating between color stops in RGB.
// Under takes the first entry, over the last, and bad is transparent black.
func FromStops(name string, stops []Stop, n int) (*LookupTable, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: colormap %q needs at least one entry, got %d",
			volerr.ErrConfiguration, name, n)
	}
	if len(stops) < 2 {
		return nil, fmt.Errorf("%w: colormap %q needs at least two stops", volerr.ErrConfiguration, name)
	}
	cols := make([]colorful.Color, len(stops))
	for i, s := range stops {
		if i > 0 && s.Pos < stops[i-1].Pos {
			return nil, fmt.Errorf("%w: colormap %q stops are not sorted", volerr.ErrConfiguration, name)
		}
		c, err := colorful.Hex(s.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: colormap %q: %v", volerr.ErrConfiguration, name, err)
		}
		cols[i] = c
	}

	entries := make([][4]uint8, n)
	seg := 0
	for i := range entries {
		x := 0.0
		if n > 1 {
			x = float64(i) / float64(n-1)
		}
		for seg < len(stops)-2 && x > stops[seg+1].Pos {
			seg++
		}
		lo, hi := stops[seg], stops[seg+1]
		t := 0.0
		if hi.Pos > lo.Pos {
			t = (x - lo.Pos) / (hi.Pos - lo.Pos)
		}
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
		r, g, b := cols[seg].BlendRgb(cols[seg+1], t).Clamped().RGB255()
		entries[i] = [4]uint8{r, g, b, 255}
	}
	return New(name, entries, entries[0], entries[n-1], [4]uint8{})
}
