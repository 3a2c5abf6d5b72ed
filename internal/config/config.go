package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt           = 0.005
	DefaultSteps        = 200
	DefaultThreads      = 4
	DefaultCellCount    = 200
	DefaultDomainSize   = 30.0
	DefaultSigma        = 1.0
	DefaultEpsilon      = 0.01
	DefaultBound        = 0.1
	DefaultCutoff       = 1.0
	DefaultMass         = 1.0
	DefaultDamping      = 1.0
	DefaultSaveInterval = 20
)

type Config struct {
	Domain   DomainConfig `yaml:"domain"`
	Threads  int          `yaml:"threads"`
	Dt       float64      `yaml:"dt"`
	Steps    int          `yaml:"steps"`
	Seed     uint64       `yaml:"seed"`
	SaveInt  int          `yaml:"save_interval"`
	Cells    CellConfig   `yaml:"cells"`
	Gravity  []float64    `yaml:"gravity"`
	DataDir  string       `yaml:"data_dir"`
	LogLevel string       `yaml:"log_level"`
}

type DomainConfig struct {
	Min []float64 `yaml:"min"`
	Max []float64 `yaml:"max"`
	// InteractionRange discretizes the domain so every voxel side covers
	// the force cutoff; NVoxels overrides it when set.
	InteractionRange float64 `yaml:"interaction_range"`
	NVoxels          []int   `yaml:"n_voxels"`
}

type CellConfig struct {
	Count       int     `yaml:"count"`
	Mass        float64 `yaml:"mass"`
	Damping     float64 `yaml:"damping"`
	Epsilon     float64 `yaml:"epsilon"`
	Sigma       float64 `yaml:"sigma"`
	Bound       float64 `yaml:"bound"`
	Cutoff      float64 `yaml:"cutoff"`
	DivisionAge float64 `yaml:"division_age"`
}

func DefaultConfig() *Config {
	return &Config{
		Domain: DomainConfig{
			Min:              []float64{0, 0},
			Max:              []float64{DefaultDomainSize, DefaultDomainSize},
			InteractionRange: DefaultCutoff,
		},
		Threads: DefaultThreads,
		Dt:      DefaultDt,
		Steps:   DefaultSteps,
		SaveInt: DefaultSaveInterval,
		Cells: CellConfig{
			Count:   DefaultCellCount,
			Mass:    DefaultMass,
			Damping: DefaultDamping,
			Epsilon: DefaultEpsilon,
			Sigma:   DefaultSigma,
			Bound:   DefaultBound,
			Cutoff:  DefaultCutoff,
		},
		DataDir:  ".cellsim",
		LogLevel: "info",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate catches setup errors before a run starts.
func (c *Config) Validate() error {
	if len(c.Domain.Min) == 0 || len(c.Domain.Min) != len(c.Domain.Max) {
		return fmt.Errorf("config: domain min/max must share a positive dimension")
	}
	if c.Domain.InteractionRange <= 0 && len(c.Domain.NVoxels) == 0 {
		return fmt.Errorf("config: either interaction_range or n_voxels is required")
	}
	if len(c.Domain.NVoxels) != 0 && len(c.Domain.NVoxels) != len(c.Domain.Min) {
		return fmt.Errorf("config: n_voxels dimension %d does not match domain dimension %d", len(c.Domain.NVoxels), len(c.Domain.Min))
	}
	if len(c.Gravity) != 0 && len(c.Gravity) != len(c.Domain.Min) {
		return fmt.Errorf("config: gravity dimension %d does not match domain dimension %d", len(c.Gravity), len(c.Domain.Min))
	}
	if c.Threads < 1 {
		return fmt.Errorf("config: threads must be positive, got %d", c.Threads)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %f", c.Dt)
	}
	if c.Steps < 1 {
		return fmt.Errorf("config: steps must be positive, got %d", c.Steps)
	}
	if c.Cells.Count < 0 {
		return fmt.Errorf("config: cell count must not be negative, got %d", c.Cells.Count)
	}
	return nil
}

var presets = map[string]func(*Config){
	"small": func(c *Config) {
		c.Cells.Count = 50
		c.Steps = 100
		c.Threads = 2
	},
	"crowded": func(c *Config) {
		c.Cells.Count = 800
		c.Steps = 400
		c.Threads = 8
	},
	"growth": func(c *Config) {
		c.Cells.Count = 40
		c.Steps = 600
		c.Cells.DivisionAge = 1.0
	},
}

// GetPreset returns a named preset configuration, or nil if unknown.
func GetPreset(name string) *Config {
	apply, ok := presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
