package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"mismatched bounds", func(c *Config) { c.Domain.Max = []float64{1} }},
		{"no discretization", func(c *Config) { c.Domain.InteractionRange = 0; c.Domain.NVoxels = nil }},
		{"wrong n_voxels dim", func(c *Config) { c.Domain.NVoxels = []int{4} }},
		{"wrong gravity dim", func(c *Config) { c.Gravity = []float64{0, 0, -9.81} }},
		{"zero threads", func(c *Config) { c.Threads = 0 }},
		{"negative dt", func(c *Config) { c.Dt = -0.1 }},
		{"zero steps", func(c *Config) { c.Steps = 0 }},
		{"negative cells", func(c *Config) { c.Cells.Count = -1 }},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Threads = 7
	cfg.Steps = 321
	cfg.Seed = 99
	cfg.Cells.DivisionAge = 2.5
	cfg.Gravity = []float64{0, -9.81}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Threads != 7 || loaded.Steps != 321 || loaded.Seed != 99 {
		t.Errorf("loaded %+v, values lost in round trip", loaded)
	}
	if loaded.Cells.DivisionAge != 2.5 {
		t.Errorf("division age = %f, want 2.5", loaded.Cells.DivisionAge)
	}
	if len(loaded.Gravity) != 2 || loaded.Gravity[1] != -9.81 {
		t.Errorf("gravity = %v, want [0 -9.81]", loaded.Gravity)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestPresets(t *testing.T) {
	names := ListPresets()
	if len(names) == 0 {
		t.Fatal("no presets registered")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("preset names not sorted: %v", names)
		}
	}
	for _, name := range names {
		cfg := GetPreset(name)
		if cfg == nil {
			t.Errorf("listed preset %q not retrievable", name)
			continue
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %q invalid: %v", name, err)
		}
	}
	if GetPreset("no-such-preset") != nil {
		t.Error("unknown preset should return nil")
	}
}
