// Package config provides configuration loading and management for volblend.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/matthew-brett/xipy/pkg/blend"
	"github.com/matthew-brett/xipy/pkg/colormap"
	"github.com/matthew-brett/xipy/pkg/coordmap"
	"github.com/matthew-brett/xipy/pkg/logging"
	"github.com/matthew-brett/xipy/pkg/normalize"
	"github.com/matthew-brett/xipy/pkg/volerr"
	"github.com/matthew-brett/xipy/pkg/volume"
)

// Alpha is an alpha setting as written in YAML: either a single number or a
// list with one value per colormap entry
type Alpha struct {
	colormap.Alpha
}

// UnmarshalYAML accepts a scalar or a sequence node
func (a *Alpha) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		a.Alpha = colormap.ScalarAlpha(v)
	case yaml.SequenceNode:
		var v []float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		a.Alpha = colormap.AlphaValues(v)
	default:
		return fmt.Errorf("line %d: alpha must be a number or a list of numbers", node.Line)
	}
	return nil
}

// MarshalYAML writes the setting back in the form it was read
func (a Alpha) MarshalYAML() (interface{}, error) {
	if a.IsScalar() {
		return a.Scalar(), nil
	}
	return a.Values(), nil
}

// Side holds the settings of one blending pipeline
type Side struct {
	// Colormap names a built-in colormap or one from the Colormaps section
	Colormap string `yaml:"colormap"`

	// Alpha is the opacity of the colormap's main entries
	Alpha Alpha `yaml:"alpha"`

	// Norm gives the scalar values mapped to the ends of the colormap; leave
	// a bound out to infer it from the data
	Norm normalize.Bounds `yaml:"norm"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Blending parameters
	Blend struct {
		// LUTSize is the number of main entries in every lookup table
		LUTSize int `yaml:"lutSize"`

		// AxisOrder, when set, reorders attached volumes so array axis n runs
		// along spatial axis AxisOrder[n]
		AxisOrder []int `yaml:"axisOrder,omitempty"`

		Main Side `yaml:"main"`
		Over Side `yaml:"over"`
	} `yaml:"blend"`

	// Colormaps defines extra colormaps as color stops
	Colormaps map[string][]colormap.Stop `yaml:"colormaps,omitempty"`

	// Logging controls the leveled logger
	Logging logging.LogConfig `yaml:"logging"`

	// Output parameters
	Output struct {
		// SaveSlices determines whether slices of the blended volume are written out
		SaveSlices bool `yaml:"saveSlices"`

		// SliceDir is the directory slices are written to
		SliceDir string `yaml:"sliceDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Blend.LUTSize = colormap.DefaultSize
	cfg.Blend.Main = Side{
		Colormap: blend.DefaultMainColormap,
		Alpha:    Alpha{colormap.Opaque},
	}
	cfg.Blend.Over = Side{
		Colormap: blend.DefaultOverColormap,
		Alpha:    Alpha{colormap.ScalarAlpha(0.5)},
	}

	cfg.Logging.MaxSize = 10
	cfg.Logging.MaxAge = 7

	cfg.Output.SaveSlices = false
	cfg.Output.SliceDir = "blended_slices"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks that the settings can build a blend state
func (c *Config) Validate() error {
	if c.Blend.LUTSize <= 0 {
		return fmt.Errorf("%w: lutSize must be positive, got %d", volerr.ErrConfiguration, c.Blend.LUTSize)
	}
	if _, err := c.axisOrder(); err != nil {
		return err
	}
	for _, side := range []blend.Side{blend.Main, blend.Over} {
		lut, err := c.Colormap(side)
		if err != nil {
			return err
		}
		if err := c.side(side).Alpha.Validate(lut.N()); err != nil {
			return fmt.Errorf("%s alpha: %w", side, err)
		}
		if n := c.side(side).Norm; n.Min != nil && n.Max != nil && *n.Min > *n.Max {
			return fmt.Errorf("%w: %s norm %s has min above max", volerr.ErrConfiguration, side, n)
		}
	}
	return nil
}

func (c *Config) side(side blend.Side) *Side {
	if side == blend.Over {
		return &c.Blend.Over
	}
	return &c.Blend.Main
}

func (c *Config) axisOrder() (*[3]int, error) {
	if len(c.Blend.AxisOrder) == 0 {
		return nil, nil
	}
	var order [3]int
	if len(c.Blend.AxisOrder) != 3 || copy(order[:], c.Blend.AxisOrder) != 3 || !coordmap.IsPermutation(order) {
		return nil, fmt.Errorf("%w: axisOrder %v is not a permutation of 0, 1, 2",
			volerr.ErrConfiguration, c.Blend.AxisOrder)
	}
	return &order, nil
}

// Colormap builds a fresh lookup table for a side. Colormaps defined in the
// file take precedence over built-in ones of the same name.
func (c *Config) Colormap(side blend.Side) (*colormap.LookupTable, error) {
	name := c.side(side).Colormap
	if stops, ok := c.Colormaps[name]; ok {
		return colormap.FromStops(name, stops, c.Blend.LUTSize)
	}
	return colormap.Named(name, c.Blend.LUTSize)
}

// VolumeOptions turns the blending section into options for a volume adapter
func (c *Config) VolumeOptions() (volume.Options, error) {
	order, err := c.axisOrder()
	if err != nil {
		return volume.Options{}, err
	}
	opts := volume.Options{AxisOrder: order}
	for _, side := range []blend.Side{blend.Main, blend.Over} {
		lut, err := c.Colormap(side)
		if err != nil {
			return volume.Options{}, err
		}
		s := c.side(side)
		opts.Blend = append(opts.Blend,
			blend.WithColormap(side, lut),
			blend.WithAlpha(side, s.Alpha.Alpha),
			blend.WithNorm(side, s.Norm))
	}
	return opts, nil
}
